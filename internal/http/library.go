package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

// LibraryResponse is the projected library as the shelf view renders it.
type LibraryResponse struct {
	Books      []entities.Book    `json:"books"`
	Total      int                `json:"total"` // Before filtering
	View       entities.ViewState `json:"view"`
	SelectedID string             `json:"selected_id,omitempty"`
	Loading    bool               `json:"loading"`
	Error      string             `json:"error,omitempty"`
}

func newLibraryResponse(snap *library.Snapshot, p *library.Projector) LibraryResponse {
	return LibraryResponse{
		Books:      snap.Project(p),
		Total:      len(snap.Books),
		View:       snap.View,
		SelectedID: snap.SelectedID,
		Loading:    snap.Loading,
		Error:      snap.Error,
	}
}

// LibraryController serves the library snapshot and its view state.
type LibraryController struct {
	libraries LibraryProvider
}

func NewLibraryController(libraries LibraryProvider) *LibraryController {
	return &LibraryController{libraries: libraries}
}

// GetLibrary returns the projected books with the view state.
// GET /api/library
func (lc *LibraryController) GetLibrary(c *gin.Context) {
	store, ok := storeFor(c, lc.libraries)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newLibraryResponse(store.Snapshot(), lc.libraries.Projector()))
}

type viewRequest struct {
	View          *entities.ViewMode      `json:"view" binding:"omitempty,viewmode"`
	Theme         *entities.Theme         `json:"theme" binding:"omitempty,theme"`
	SearchQuery   *string                 `json:"search_query" binding:"omitempty,max=256"`
	SortBy        *entities.SortField     `json:"sort_by" binding:"omitempty,booksort"`
	SortDirection *entities.SortDirection `json:"sort_direction" binding:"omitempty,sortdir"`
}

// UpdateView changes any of view, theme, search query and sort order.
// PATCH /api/library/view
func (lc *LibraryController) UpdateView(c *gin.Context) {
	var req viewRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, lc.libraries)
	if !ok {
		return
	}

	_, err := store.UpdateView(c.Request.Context(), library.ViewPatch{
		View:          req.View,
		Theme:         req.Theme,
		SearchQuery:   req.SearchQuery,
		SortBy:        req.SortBy,
		SortDirection: req.SortDirection,
	})
	if err != nil {
		respondError(c, err, "update view")
		return
	}
	c.JSON(http.StatusOK, newLibraryResponse(store.Snapshot(), lc.libraries.Projector()))
}

type selectionRequest struct {
	BookID *string `json:"book_id"`
}

// SetSelection marks a book as open. A null book_id clears the selection.
// PUT /api/library/selection
func (lc *LibraryController) SetSelection(c *gin.Context) {
	var req selectionRequest
	if !bindJSON(c, &req) {
		return
	}
	store, ok := storeFor(c, lc.libraries)
	if !ok {
		return
	}

	bookID := ""
	if req.BookID != nil {
		bookID = *req.BookID
	}
	if err := store.SetSelectedBook(bookID); err != nil {
		respondError(c, err, "select book")
		return
	}

	resp := gin.H{"selected_id": bookID}
	if book, ok := store.Snapshot().Selected(); ok {
		resp["book"] = book
	}
	c.JSON(http.StatusOK, resp)
}

// Reload re-reads the library from its backend.
// POST /api/library/reload
func (lc *LibraryController) Reload(c *gin.Context) {
	store, ok := storeFor(c, lc.libraries)
	if !ok {
		return
	}
	if err := store.Initialize(c.Request.Context()); err != nil {
		respondError(c, err, "reload library")
		return
	}
	c.JSON(http.StatusOK, newLibraryResponse(store.Snapshot(), lc.libraries.Projector()))
}
