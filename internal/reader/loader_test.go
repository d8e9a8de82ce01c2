package reader

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/renderer"
	"github.com/mrlokans/bookshelf/internal/renderer/renderertest"
	"github.com/mrlokans/bookshelf/internal/storage"
)

func TestStorageLoader(t *testing.T) {
	ctx := context.Background()
	files, err := storage.NewLocal(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	require.NoError(t, files.Upload(ctx, "doc-a.pdf", bytes.NewReader(renderertest.PDF("A", "B", 3))))

	loader := NewStorageLoader(files, renderer.NewDefaultRegistry())

	doc, err := loader.Load(ctx, entities.Book{ID: "book-1", Format: entities.FormatPDF, File: "doc-a.pdf"})
	require.NoError(t, err)
	defer doc.Close()
	assert.Equal(t, 3, doc.Layout().PageCount)

	_, err = loader.Load(ctx, entities.Book{ID: "book-2", Format: entities.FormatPDF, File: "doc-missing.pdf"})
	assert.ErrorIs(t, err, errors.ErrIO)

	_, err = loader.Load(ctx, entities.Book{ID: "book-3", Format: entities.FormatPDF})
	assert.ErrorIs(t, err, errors.ErrValidation)

	// Bytes that do not match the stored format are corrupt.
	_, err = loader.Load(ctx, entities.Book{ID: "book-4", Format: entities.FormatEPUB, File: "doc-a.pdf"})
	assert.ErrorIs(t, err, errors.ErrCorruptDocument)
}
