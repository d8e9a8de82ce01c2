package importers

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
)

// Library receives imported books. library.Store implements it.
type Library interface {
	AddBook(ctx context.Context, draft entities.BookDraft) (entities.Book, error)
}

// File is one input of a batch import.
type File struct {
	Name string
	Data []byte
	Path string // Read lazily when Data is nil
}

// FileResult reports the outcome for one file.
type FileResult struct {
	Name  string         `json:"name"`
	Book  *entities.Book `json:"book,omitempty"`
	Error string         `json:"error,omitempty"`
	Code  errors.Code    `json:"code,omitempty"`
}

// OK reports whether the file was imported.
func (r FileResult) OK() bool { return r.Book != nil }

// BatchResult holds per-file results in input order.
type BatchResult struct {
	Imported int          `json:"imported"`
	Failed   int          `json:"failed"`
	Files    []FileResult `json:"files"`
}

// Pipeline handles the batch workflow: import → add to library → report.
// One bad file never blocks its siblings.
type Pipeline struct {
	importer *Importer
}

// NewPipeline creates a new import pipeline.
func NewPipeline(importer *Importer) *Pipeline {
	return &Pipeline{importer: importer}
}

// Importer returns the single-file importer.
func (p *Pipeline) Importer() *Importer {
	return p.importer
}

// ImportOne imports a single file and adds it to lib.
func (p *Pipeline) ImportOne(ctx context.Context, lib Library, f File) (entities.Book, error) {
	var (
		draft entities.BookDraft
		err   error
	)
	if f.Data == nil && f.Path != "" {
		draft, err = p.importer.ImportPath(ctx, f.Path)
	} else {
		draft, err = p.importer.ImportBytes(ctx, f.Name, f.Data)
	}
	if err != nil {
		return entities.Book{}, err
	}

	book, err := lib.AddBook(ctx, draft)
	if err != nil {
		p.importer.Discard(ctx, draft)
		return entities.Book{}, err
	}
	return book, nil
}

// ImportFiles imports files sequentially into lib and reports each outcome.
func (p *Pipeline) ImportFiles(ctx context.Context, lib Library, files []File) BatchResult {
	result := BatchResult{Files: make([]FileResult, 0, len(files))}

	for _, f := range files {
		name := f.Name
		if name == "" {
			name = filepath.Base(f.Path)
		}
		fr := FileResult{Name: name}

		if err := ctx.Err(); err != nil {
			fr.Error = err.Error()
			fr.Code = errors.CodeIO
		} else if book, err := p.ImportOne(ctx, lib, f); err != nil {
			fr.Error = err.Error()
			fr.Code = errors.CodeOf(err)
			p.importer.logger.Warn("import failed", "file", name, "code", fr.Code, "error", err)
		} else {
			fr.Book = &book
		}

		if fr.OK() {
			result.Imported++
		} else {
			result.Failed++
		}
		result.Files = append(result.Files, fr)
	}

	return result
}

// supportedExtensions lists the files picked up from a directory.
var supportedExtensions = map[string]bool{".epub": true, ".pdf": true}

// ScanDir returns the importable files below dir in lexical order.
func ScanDir(dir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, File{Name: d.Name(), Path: path})
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "scan %s", dir)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ImportDir imports every supported file found below dir.
func (p *Pipeline) ImportDir(ctx context.Context, lib Library, dir string) (BatchResult, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return BatchResult{}, errors.Wrapf(err, errors.CodeIO, "open %s", dir)
	}
	if !info.IsDir() {
		return BatchResult{}, errors.Validationf("%s is not a directory", dir)
	}

	files, err := ScanDir(dir)
	if err != nil {
		return BatchResult{}, err
	}
	return p.ImportFiles(ctx, lib, files), nil
}
