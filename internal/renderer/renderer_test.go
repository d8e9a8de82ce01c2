package renderer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/renderer/renderertest"
)

func TestRegistry_Detect(t *testing.T) {
	reg := NewDefaultRegistry()

	tests := []struct {
		name     string
		file     string
		data     []byte
		expected entities.Format
		code     errors.Code
	}{
		{name: "epub by content", file: "book.bin", data: renderertest.EPUB(renderertest.EPUBOptions{}), expected: entities.FormatEPUB},
		{name: "pdf by content", file: "book", data: renderertest.PDF("T", "A", 1), expected: entities.FormatPDF},
		{name: "epub by extension", file: "Book.EPUB", data: []byte("garbage"), expected: entities.FormatEPUB},
		{name: "text file", file: "notes.txt", data: []byte("hello"), code: errors.CodeUnsupportedFormat},
		{name: "mobi has no renderer", file: "book.mobi", data: []byte("garbage"), code: errors.CodeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := reg.Detect(tt.file, tt.data)
			if tt.code != "" {
				assert.Equal(t, tt.code, errors.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format)
		})
	}
}

func TestRegistry_GetUnknown(t *testing.T) {
	_, err := NewRegistry().Get(entities.FormatEPUB)
	assert.ErrorIs(t, err, errors.ErrUnsupportedFormat)
}

func TestLayout_LocationCount(t *testing.T) {
	assert.Equal(t, 12, Layout{PageCount: 12}.LocationCount())
	assert.Equal(t, 2, Layout{Locations: []string{"a", "b"}}.LocationCount())
	assert.Equal(t, 0, Layout{}.LocationCount())
}

func TestPosition_String(t *testing.T) {
	assert.Equal(t, "page 3", Position{Page: 3}.String())
	assert.Equal(t, "ch1.xhtml", Position{Page: 3, Location: "ch1.xhtml"}.String())
}

func TestRegistry_OpenCorrupt(t *testing.T) {
	ctx := context.Background()
	reg := NewDefaultRegistry()

	_, err := reg.Open(ctx, entities.FormatEPUB, []byte("not a zip"))
	assert.Equal(t, errors.CodeCorruptDocument, errors.CodeOf(err))

	_, err = reg.Open(ctx, entities.FormatPDF, []byte("plain text"))
	assert.Equal(t, errors.CodeCorruptDocument, errors.CodeOf(err))

	_, err = reg.Open(ctx, entities.FormatPDF, []byte("%PDF-1.4\ntrailer\n"))
	assert.Equal(t, errors.CodeCorruptDocument, errors.CodeOf(err))
}
