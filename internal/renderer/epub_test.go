package renderer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/renderer/renderertest"
)

func openEPUB(t *testing.T, opts renderertest.EPUBOptions) Document {
	t.Helper()
	doc, err := NewDefaultRegistry().Open(context.Background(), NewEPUB().Format(), renderertest.EPUB(opts))
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	return doc
}

func TestEPUB_MetadataAndLayout(t *testing.T) {
	doc := openEPUB(t, renderertest.EPUBOptions{
		Title:    "Dune",
		Author:   "Frank Herbert",
		Subject:  "Science Fiction",
		Chapters: []string{"one", "two", "three", "four"},
		Cover:    true,
	})

	meta := doc.Metadata()
	assert.Equal(t, "Dune", meta.Title)
	assert.Equal(t, "Frank Herbert", meta.Author)
	assert.Equal(t, "Science Fiction", meta.Genre)
	assert.NotEmpty(t, meta.Cover)
	assert.Equal(t, "image/jpeg", meta.CoverType)

	layout := doc.Layout()
	assert.Zero(t, layout.PageCount)
	assert.Equal(t, []string{
		"OEBPS/text/ch1.xhtml",
		"OEBPS/text/ch2.xhtml",
		"OEBPS/text/ch3.xhtml",
		"OEBPS/text/ch4.xhtml",
	}, layout.Locations)

	require.Len(t, layout.TOC, 4)
	assert.Equal(t, "Chapter 2", layout.TOC[1].Title)
	assert.Equal(t, "OEBPS/text/ch2.xhtml", layout.TOC[1].Location)
	assert.Equal(t, 2, layout.TOC[1].Page)
}

func TestEPUB_NavDocument(t *testing.T) {
	doc := openEPUB(t, renderertest.EPUBOptions{Title: "T", Author: "A", Nav: true})

	toc := doc.Layout().TOC
	require.Len(t, toc, 2)
	assert.Equal(t, "Chapter 1", toc[0].Title)
	assert.Equal(t, "OEBPS/text/ch1.xhtml", toc[0].Location)
}

func TestEPUB_MissingMetadata(t *testing.T) {
	doc := openEPUB(t, renderertest.EPUBOptions{})

	meta := doc.Metadata()
	assert.Empty(t, meta.Title)
	assert.Empty(t, meta.Author)
	assert.Empty(t, meta.Cover)
}

func TestEPUB_LocationFromPosition(t *testing.T) {
	doc := openEPUB(t, renderertest.EPUBOptions{Chapters: []string{"a", "b", "c", "d"}})

	tests := []struct {
		name     string
		pos      Position
		expected float64
		invalid  bool
	}{
		{name: "first open", pos: Position{}, expected: 0},
		{name: "page one", pos: Position{Page: 1}, expected: 0},
		{name: "by location", pos: Position{Location: "OEBPS/text/ch3.xhtml"}, expected: 0.5},
		{name: "last chapter starts at three quarters", pos: Position{Page: 4}, expected: 0.75},
		{name: "fragment ignored", pos: Position{Location: "OEBPS/text/ch2.xhtml#sec"}, expected: 0.25},
		{name: "unknown location", pos: Position{Location: "nope.xhtml"}, invalid: true},
		{name: "page past end", pos: Position{Page: 5}, invalid: true},
		{name: "negative page", pos: Position{Page: -1}, invalid: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frac, err := doc.LocationFromPosition(tt.pos)
			if tt.invalid {
				assert.ErrorIs(t, err, errors.ErrInvalidLocation)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, frac, 1e-9)
		})
	}
}

func TestEPUB_RenderPage(t *testing.T) {
	doc := openEPUB(t, renderertest.EPUBOptions{Chapters: []string{"Call me Ishmael.", "Later."}})

	page, err := doc.RenderPage(context.Background(), Position{Page: 1}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Position.Page)
	assert.Equal(t, "OEBPS/text/ch1.xhtml", page.Position.Location)
	assert.Contains(t, page.Text, "Call me Ishmael.")
	assert.Nil(t, page.Raster)

	_, err = doc.RenderPage(context.Background(), Position{Location: "missing"}, 1)
	assert.ErrorIs(t, err, errors.ErrInvalidLocation)
}

func TestEPUB_RenderPageCancelled(t *testing.T) {
	doc := openEPUB(t, renderertest.EPUBOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := doc.RenderPage(ctx, Position{}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
