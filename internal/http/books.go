package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// BooksController handles book mutations.
type BooksController struct {
	libraries LibraryProvider
	sessions  SessionRegistry // Optional
	purger    BookPurger      // Optional
}

func NewBooksController(libraries LibraryProvider, sessions SessionRegistry, purger BookPurger) *BooksController {
	return &BooksController{libraries: libraries, sessions: sessions, purger: purger}
}

// GetBook returns one book with its notes and bookmarks.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	store, ok := storeFor(c, bc.libraries)
	if !ok {
		return
	}
	book, found := store.Snapshot().Book(bookID)
	if !found {
		respondNotFound(c, "book")
		return
	}
	c.JSON(http.StatusOK, book)
}

type addBookRequest struct {
	Title         string          `json:"title" binding:"required,max=512"`
	Author        string          `json:"author" binding:"required,max=256"`
	Format        entities.Format `json:"format" binding:"required,bookformat"`
	File          string          `json:"file" binding:"required,max=1024"`
	Cover         string          `json:"cover" binding:"omitempty,max=2048"`
	CoverBlurHash string          `json:"cover_blurhash" binding:"omitempty,max=64"`
	Genre         string          `json:"genre" binding:"omitempty,max=128"`
	Tags          []string        `json:"tags"`
	TotalPages    int             `json:"total_pages" binding:"min=0"`
}

// AddBook adds a book from a draft whose file is already stored.
// POST /api/books
func (bc *BooksController) AddBook(c *gin.Context) {
	var req addBookRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, bc.libraries)
	if !ok {
		return
	}

	book, err := store.AddBook(c.Request.Context(), entities.BookDraft{
		Title:         req.Title,
		Author:        req.Author,
		Format:        req.Format,
		File:          req.File,
		Cover:         req.Cover,
		CoverBlurHash: req.CoverBlurHash,
		Genre:         req.Genre,
		Tags:          req.Tags,
		TotalPages:    req.TotalPages,
	})
	if err != nil {
		respondError(c, err, "add book")
		return
	}
	respondCreated(c, book)
}

// RemoveBook deletes a book. Deleting an unknown id succeeds.
// DELETE /api/books/:id
func (bc *BooksController) RemoveBook(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	store, ok := storeFor(c, bc.libraries)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	// Close open sessions first so their final flush lands before the delete
	if bc.sessions != nil {
		bc.sessions.CloseBook(ctx, GetUserID(c), bookID)
	}

	removed, found, err := store.RemoveBook(ctx, bookID)
	if err != nil {
		respondError(c, err, "remove book")
		return
	}
	if found && bc.purger != nil {
		bc.purger.PurgeBook(ctx, removed)
	}
	if found {
		slog.Info("Book removed", "owner", GetUserID(c), "book", bookID, "title", removed.Title)
	}
	c.JSON(http.StatusOK, gin.H{"removed": found})
}

type progressRequest struct {
	Percentage  *float64 `json:"percentage" binding:"omitempty,min=0,max=100"`
	Location    string   `json:"location" binding:"max=1024"`
	CurrentPage int      `json:"current_page" binding:"min=0"`
	TotalPages  int      `json:"total_pages" binding:"min=0"`
}

// UpdateProgress records a reading position. The variant follows the book's
// format: page numbers for PDF, percentage and location otherwise.
// PUT /api/books/:id/progress
func (bc *BooksController) UpdateProgress(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req progressRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, bc.libraries)
	if !ok {
		return
	}
	book, found := store.Snapshot().Book(bookID)
	if !found {
		respondNotFound(c, "book")
		return
	}

	var progress entities.Progress
	if book.Format.ProgressKind() == entities.ProgressPaginated {
		progress = entities.PageOf(req.CurrentPage, req.TotalPages)
	} else {
		pct := 0.0
		if req.Percentage != nil {
			pct = *req.Percentage
		}
		progress = entities.ReflowablePercent(req.Location, pct)
	}

	updated, err := store.UpdateBookProgress(c.Request.Context(), bookID, progress)
	if err != nil {
		respondError(c, err, "update progress")
		return
	}
	c.JSON(http.StatusOK, updated)
}

type scaleRequest struct {
	Scale float64 `json:"scale" binding:"required"`
}

// UpdateScale stores the zoom factor.
// PUT /api/books/:id/scale
func (bc *BooksController) UpdateScale(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req scaleRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, bc.libraries)
	if !ok {
		return
	}

	updated, err := store.UpdateBookScale(c.Request.Context(), bookID, req.Scale)
	if err != nil {
		respondError(c, err, "update scale")
		return
	}
	c.JSON(http.StatusOK, updated)
}

type genreRequest struct {
	Genre string `json:"genre" binding:"max=128"`
}

// SetGenre replaces the genre. An empty genre clears it.
// PUT /api/books/:id/genre
func (bc *BooksController) SetGenre(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req genreRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, bc.libraries)
	if !ok {
		return
	}

	updated, err := store.SetBookGenre(c.Request.Context(), bookID, req.Genre)
	if err != nil {
		respondError(c, err, "set genre")
		return
	}
	c.JSON(http.StatusOK, updated)
}
