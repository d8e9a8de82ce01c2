// Package renderer is the Document Renderer capability: it opens document
// bytes and answers layout, position and page queries for the reader.
//
// The renderers here read structure and text only. RenderPage returns a
// text layer; Raster is nil unless a renderer can rasterize the page.
package renderer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
)

// Position addresses a page (paginated) or an opaque location (reflowable).
// The zero Position means "the start of the document".
type Position struct {
	Page     int    `json:"page,omitempty"`
	Location string `json:"location,omitempty"`
}

func (p Position) String() string {
	if p.Location != "" {
		return p.Location
	}
	return fmt.Sprintf("page %d", p.Page)
}

// TOCEntry is one node of a table of contents.
type TOCEntry struct {
	Title    string     `json:"title"`
	Page     int        `json:"page,omitempty"`
	Location string     `json:"location,omitempty"`
	Children []TOCEntry `json:"children,omitempty"`
}

// Layout is what a renderer reports once a document is open. Exactly one of
// PageCount and Locations is populated. An empty TOC is not an error.
type Layout struct {
	PageCount int        `json:"page_count,omitempty"`
	Locations []string   `json:"locations,omitempty"`
	TOC       []TOCEntry `json:"toc"`
}

// LocationCount returns the number of addressable positions.
func (l Layout) LocationCount() int {
	if l.PageCount > 0 {
		return l.PageCount
	}
	return len(l.Locations)
}

// Metadata is what the importer needs from a document.
type Metadata struct {
	Title     string
	Author    string
	Genre     string
	Cover     []byte // Raw embedded cover image, if any
	CoverType string
}

// Page is a rendered position.
type Page struct {
	Position Position    `json:"position"`
	Text     string      `json:"text"`
	Raster   image.Image `json:"-"`
}

// Document is an open file.
type Document interface {
	Format() entities.Format
	Layout() Layout
	Metadata() Metadata
	// RenderPage renders the addressed position. Position 1 / page 1 is
	// always valid for a non-empty document.
	RenderPage(ctx context.Context, pos Position, scale float64) (Page, error)
	// LocationFromPosition maps a position to a fraction in [0, 1]. Unknown
	// positions yield INVALID_LOCATION.
	LocationFromPosition(pos Position) (float64, error)
	Close() error
}

// Renderer opens documents of one format.
type Renderer interface {
	Format() entities.Format
	Open(ctx context.Context, r io.ReaderAt, size int64) (Document, error)
}

// Registry picks a renderer by format.
type Registry struct {
	renderers map[entities.Format]Renderer
}

// NewRegistry creates a registry holding the given renderers.
func NewRegistry(renderers ...Renderer) *Registry {
	r := &Registry{renderers: make(map[entities.Format]Renderer, len(renderers))}
	for _, rd := range renderers {
		r.renderers[rd.Format()] = rd
	}
	return r
}

// NewDefaultRegistry returns a registry with the EPUB and PDF renderers.
func NewDefaultRegistry() *Registry {
	return NewRegistry(NewEPUB(), NewPDF())
}

// Get returns the renderer for a format.
func (r *Registry) Get(format entities.Format) (Renderer, error) {
	rd, ok := r.renderers[format]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnsupportedFormat, errors.CodeUnsupportedFormat, "no renderer for format %q", format)
	}
	return rd, nil
}

// Open opens data with the renderer registered for format.
func (r *Registry) Open(ctx context.Context, format entities.Format, data []byte) (Document, error) {
	rd, err := r.Get(format)
	if err != nil {
		return nil, err
	}
	return rd.Open(ctx, bytes.NewReader(data), int64(len(data)))
}

// Detect identifies the document format from its leading bytes, falling back
// to the file extension. Formats without a registered renderer are rejected.
func (r *Registry) Detect(name string, head []byte) (entities.Format, error) {
	format := formatFromMIME(mimetype.Detect(head))
	if format == "" {
		format = formatFromExtension(name)
	}
	if format == "" {
		return "", errors.Wrapf(errors.ErrUnsupportedFormat, errors.CodeUnsupportedFormat, "unsupported file %q", filepath.Base(name))
	}
	if _, err := r.Get(format); err != nil {
		return "", err
	}
	return format, nil
}

func formatFromMIME(m *mimetype.MIME) entities.Format {
	for ; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/epub+zip"):
			return entities.FormatEPUB
		case m.Is("application/pdf"):
			return entities.FormatPDF
		case m.Is("application/x-mobipocket-ebook"):
			return entities.FormatMOBI
		}
	}
	return ""
}

func formatFromExtension(name string) entities.Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".epub":
		return entities.FormatEPUB
	case ".pdf":
		return entities.FormatPDF
	case ".mobi", ".azw", ".azw3":
		return entities.FormatMOBI
	}
	return ""
}

func corrupt(err error, format string, args ...any) error {
	return errors.Wrapf(err, errors.CodeCorruptDocument, format, args...)
}
