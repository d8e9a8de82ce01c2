package importers

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/id"
	"github.com/mrlokans/bookshelf/internal/renderer"
	"github.com/mrlokans/bookshelf/internal/storage"
)

// Importer turns one document into a BookDraft: it identifies the format,
// reads metadata via the renderer, stores the bytes and renders a cover.
type Importer struct {
	renderers *renderer.Registry
	files     storage.Client
	covers    *covers.Cache // Optional
	logger    *slog.Logger
}

// NewImporter creates an importer. covers may be nil to skip thumbnails.
func NewImporter(renderers *renderer.Registry, files storage.Client, coverCache *covers.Cache, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{renderers: renderers, files: files, covers: coverCache, logger: logger}
}

// ImportPath reads a file from disk and imports it.
func (i *Importer) ImportPath(ctx context.Context, path string) (entities.BookDraft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return entities.BookDraft{}, errors.Wrapf(err, errors.CodeIO, "read %s", filepath.Base(path))
	}
	return i.ImportBytes(ctx, filepath.Base(path), data)
}

// ImportBytes imports a document held in memory. Failures are
// UNSUPPORTED_FORMAT, CORRUPT_DOCUMENT or IO_ERROR; nothing is left in
// storage when an import fails.
func (i *Importer) ImportBytes(ctx context.Context, name string, data []byte) (entities.BookDraft, error) {
	if len(data) == 0 {
		return entities.BookDraft{}, errors.Wrapf(errors.ErrCorruptDocument, errors.CodeCorruptDocument, "%s is empty", name)
	}

	format, err := i.renderers.Detect(name, data)
	if err != nil {
		return entities.BookDraft{}, err
	}

	doc, err := i.renderers.Open(ctx, format, data)
	if err != nil {
		return entities.BookDraft{}, err
	}
	defer doc.Close()

	meta := doc.Metadata()
	draft := entities.BookDraft{
		Title:      meta.Title,
		Author:     meta.Author,
		Format:     format,
		Genre:      meta.Genre,
		TotalPages: doc.Layout().PageCount,
	}
	applyFallbacks(&draft, name)

	docID, err := id.Generate(id.PrefixDocument)
	if err != nil {
		return entities.BookDraft{}, errors.Wrap(err, errors.CodeInternal, "generate document id")
	}
	draft.File = docID + "." + string(format)
	if err := i.files.Upload(ctx, draft.File, bytes.NewReader(data)); err != nil {
		return entities.BookDraft{}, errors.Wrapf(err, errors.CodeIO, "store %s", name)
	}

	if len(meta.Cover) > 0 && i.covers != nil {
		thumb, err := i.covers.SaveThumbnail(docID, meta.Cover)
		if err != nil {
			// A broken cover image does not fail the import.
			i.logger.Warn("cover thumbnail failed", "file", name, "error", err)
		} else {
			draft.Cover = thumb.Key
			draft.CoverBlurHash = thumb.BlurHash
		}
	}

	i.logger.Debug("document imported",
		"file", name,
		"format", format,
		"title", draft.Title,
		"stored_as", draft.File,
	)
	return draft, nil
}

// Discard removes the stored bytes and cover of a draft that was not added.
func (i *Importer) Discard(ctx context.Context, draft entities.BookDraft) {
	if draft.File != "" {
		if err := i.files.Delete(ctx, draft.File); err != nil {
			i.logger.Warn("discard document failed", "file", draft.File, "error", err)
		}
	}
	if draft.Cover != "" && i.covers != nil {
		if err := i.covers.Remove(draft.Cover); err != nil {
			i.logger.Warn("discard cover failed", "cover", draft.Cover, "error", err)
		}
	}
}

// applyFallbacks fills missing metadata. PDFs without a title use the file
// name; everything else uses the Unknown placeholders.
func applyFallbacks(draft *entities.BookDraft, name string) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Author = strings.TrimSpace(draft.Author)
	if draft.Title == "" {
		if draft.Format == entities.FormatPDF {
			draft.Title = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		}
		if draft.Title == "" {
			draft.Title = entities.UnknownTitle
		}
	}
	if draft.Author == "" {
		draft.Author = entities.UnknownAuthor
	}
}
