package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// AnnotationsController handles notes and bookmarks of a book.
type AnnotationsController struct {
	libraries LibraryProvider
}

func NewAnnotationsController(libraries LibraryProvider) *AnnotationsController {
	return &AnnotationsController{libraries: libraries}
}

type noteRequest struct {
	Content  string `json:"content" binding:"required,max=10000"`
	Location string `json:"location" binding:"max=256"`
}

// AddNote appends a note to a book.
// POST /api/books/:id/notes
func (ac *AnnotationsController) AddNote(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req noteRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, ac.libraries)
	if !ok {
		return
	}

	note, err := store.AddNote(c.Request.Context(), bookID, entities.NoteDraft{
		Content:  req.Content,
		Location: req.Location,
	})
	if err != nil {
		respondError(c, err, "add note")
		return
	}
	if note.ID == "" {
		respondNotFound(c, "book")
		return
	}
	respondCreated(c, note)
}

type editNoteRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
}

// EditNote replaces a note's content.
// PATCH /api/books/:id/notes/:noteId
func (ac *AnnotationsController) EditNote(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req editNoteRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, ac.libraries)
	if !ok {
		return
	}

	noteID := c.Param("noteId")
	edited, err := store.EditNote(c.Request.Context(), bookID, noteID, req.Content)
	if err != nil {
		respondError(c, err, "edit note")
		return
	}
	if !edited {
		respondNotFound(c, "note")
		return
	}

	book, _ := store.Snapshot().Book(bookID)
	if i := book.FindNote(noteID); i >= 0 {
		c.JSON(http.StatusOK, book.Notes[i])
		return
	}
	respondNotFound(c, "note")
}

// RemoveNote deletes a note. Deleting an unknown note succeeds.
// DELETE /api/books/:id/notes/:noteId
func (ac *AnnotationsController) RemoveNote(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	store, ok := storeFor(c, ac.libraries)
	if !ok {
		return
	}

	removed, err := store.RemoveNote(c.Request.Context(), bookID, c.Param("noteId"))
	if err != nil {
		respondError(c, err, "remove note")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

type bookmarkRequest struct {
	Page     int    `json:"page" binding:"min=0"`
	Location string `json:"location" binding:"max=1024"`
	Note     string `json:"note" binding:"max=512"`
}

func (r bookmarkRequest) marker() entities.Marker {
	return entities.Marker{Page: r.Page, Location: r.Location}
}

// ListBookmarks returns bookmarks in display order.
// GET /api/books/:id/bookmarks
func (ac *AnnotationsController) ListBookmarks(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	store, ok := storeFor(c, ac.libraries)
	if !ok {
		return
	}
	book, found := store.Snapshot().Book(bookID)
	if !found {
		respondNotFound(c, "book")
		return
	}
	marks := book.SortedBookmarks()
	c.JSON(http.StatusOK, gin.H{"bookmarks": marks, "count": len(marks)})
}

// AddBookmark places a bookmark. An existing bookmark at the same position
// is returned as is.
// POST /api/books/:id/bookmarks
func (ac *AnnotationsController) AddBookmark(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req bookmarkRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, ac.libraries)
	if !ok {
		return
	}

	bm, err := store.AddBookmark(c.Request.Context(), bookID, req.marker(), req.Note)
	if err != nil {
		respondError(c, err, "add bookmark")
		return
	}
	if bm.ID == "" {
		respondNotFound(c, "book")
		return
	}
	respondCreated(c, bm)
}

// ToggleBookmark adds a bookmark at the position or removes the existing one.
// POST /api/books/:id/bookmarks/toggle
func (ac *AnnotationsController) ToggleBookmark(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	var req bookmarkRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, ac.libraries)
	if !ok {
		return
	}

	bm, added, err := store.ToggleBookmark(c.Request.Context(), bookID, req.marker(), req.Note)
	if err != nil {
		respondError(c, err, "toggle bookmark")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmark": bm, "added": added})
}

// RemoveBookmark deletes a bookmark. Deleting an unknown bookmark succeeds.
// DELETE /api/books/:id/bookmarks/:bookmarkId
func (ac *AnnotationsController) RemoveBookmark(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	store, ok := storeFor(c, ac.libraries)
	if !ok {
		return
	}

	removed, err := store.RemoveBookmark(c.Request.Context(), bookID, c.Param("bookmarkId"))
	if err != nil {
		respondError(c, err, "remove bookmark")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
