package http

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/importers"
	"github.com/mrlokans/bookshelf/internal/renderer/renderertest"
)

type upload struct {
	name string
	data []byte
}

func multipartRequest(t *testing.T, field string, files ...upload) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/books/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestImportController_Import(t *testing.T) {
	env := newTestEnv(t)
	epub := renderertest.EPUB(renderertest.EPUBOptions{Title: "Lavinia", Author: "Le Guin", Cover: true})

	req := multipartRequest(t, "files",
		upload{"lavinia.epub", epub},
		upload{"notes.txt", []byte("plain text is not a book")},
		upload{"broken.pdf", []byte("%PDF-1.4 no pages")},
		upload{"manual.pdf", renderertest.PDF("", "", 2)},
		upload{"lavinia-copy.epub", epub},
	)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[importers.BatchResult](t, w)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 3, result.Failed)
	require.Len(t, result.Files, 5)

	assert.True(t, result.Files[0].OK())
	assert.NotEmpty(t, result.Files[0].Book.Cover)
	assert.Equal(t, errors.CodeUnsupportedFormat, result.Files[1].Code)
	assert.Equal(t, errors.CodeCorruptDocument, result.Files[2].Code)
	require.True(t, result.Files[3].OK())
	assert.Equal(t, "manual", result.Files[3].Book.Title)
	assert.Equal(t, "Unknown Author", result.Files[3].Book.Author)
	assert.Equal(t, errors.CodeDuplicateBook, result.Files[4].Code)

	assert.Len(t, env.store(t).Snapshot().Books, 2)
}

func TestImportController_SingleFileField(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t, "file", upload{"knuth.pdf", renderertest.PDF("TAOCP", "Knuth", 3)})
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[importers.BatchResult](t, w)
	assert.Equal(t, 1, result.Imported)
}

func TestImportController_NoFiles(t *testing.T) {
	env := newTestEnv(t)

	req := multipartRequest(t, "files")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPost, "/api/books/import", map[string]any{"file": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
