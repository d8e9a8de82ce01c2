package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/renderer/renderertest"
)

func TestCoversController_GetCover(t *testing.T) {
	env := newTestEnv(t)

	t.Run("serves generated thumbnail", func(t *testing.T) {
		book := env.importBook(t, "cover.epub", renderertest.EPUB(renderertest.EPUBOptions{
			Title: "Malafrena", Author: "Le Guin", Cover: true,
		}))
		require.NotEmpty(t, book.Cover)

		w := env.do(http.MethodGet, "/api/books/"+book.ID+"/cover", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
		assert.Equal(t, book.CoverBlurHash, w.Header().Get("X-Cover-Blurhash"))
		assert.NotEmpty(t, w.Body.Bytes())
	})

	t.Run("book without cover", func(t *testing.T) {
		book := env.importPDF(t, "No Cover", 1)
		w := env.do(http.MethodGet, "/api/books/"+book.ID+"/cover", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("unknown book", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/books/book-missing/cover", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("missing thumbnail file", func(t *testing.T) {
		book := env.importBook(t, "gone.epub", renderertest.EPUB(renderertest.EPUBOptions{
			Title: "Orsinian Tales", Author: "Le Guin", Cover: true,
		}))
		require.NoError(t, env.covers.Remove(book.Cover))

		w := env.do(http.MethodGet, "/api/books/"+book.ID+"/cover", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
