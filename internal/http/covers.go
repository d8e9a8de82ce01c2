package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/covers"
)

// CoversController handles book cover requests.
type CoversController struct {
	cache     *covers.Cache
	libraries LibraryProvider
}

// NewCoversController creates a new CoversController.
func NewCoversController(cache *covers.Cache, libraries LibraryProvider) *CoversController {
	return &CoversController{
		cache:     cache,
		libraries: libraries,
	}
}

// GetCover serves the stored thumbnail, or a remote cover cached on first use.
// GET /api/books/:id/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	store, ok := storeFor(c, cc.libraries)
	if !ok {
		return
	}

	book, found := store.Snapshot().Book(bookID)
	if !found || book.Cover == "" {
		c.Status(http.StatusNotFound)
		return
	}

	cachePath, err := cc.cache.Resolve(c.Request.Context(), book.ID, book.Cover)
	if err != nil || cachePath == "" {
		if covers.IsRemote(book.Cover) {
			// Fallback: redirect to original URL
			c.Redirect(http.StatusTemporaryRedirect, book.Cover)
			return
		}
		c.Status(http.StatusNotFound)
		return
	}

	if book.CoverBlurHash != "" {
		c.Header("X-Cover-Blurhash", book.CoverBlurHash)
	}
	c.Header("Cache-Control", "private, max-age=86400")
	c.File(cachePath)
}
