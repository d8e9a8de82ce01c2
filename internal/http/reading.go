package http

import (
	"encoding/json"
	"image/jpeg"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/reader"
	"github.com/mrlokans/bookshelf/internal/renderer"
)

// ReaderController exposes reading sessions.
type ReaderController struct {
	sessions SessionRegistry
}

func NewReaderController(sessions SessionRegistry) *ReaderController {
	return &ReaderController{sessions: sessions}
}

func (rc *ReaderController) session(c *gin.Context) (*reader.Session, bool) {
	s, err := rc.sessions.Get(GetUserID(c), c.Param("sid"))
	if err != nil {
		respondError(c, err, "get session")
		return nil, false
	}
	return s, true
}

// Open starts (or rejoins) a reading session on a book.
// POST /api/books/:id/session
func (rc *ReaderController) Open(c *gin.Context) {
	bookID, ok := bookIDParam(c)
	if !ok {
		return
	}
	_, view, err := rc.sessions.Open(c.Request.Context(), GetUserID(c), bookID)
	if err != nil {
		respondError(c, err, "open session")
		return
	}
	respondCreated(c, view)
}

// Get returns the session state.
// GET /api/sessions/:sid
func (rc *ReaderController) Get(c *gin.Context) {
	s, ok := rc.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

// navigateRequest carries either a typed position from the UI or the raw
// location value a renderer reported.
type navigateRequest struct {
	Position *renderer.Position `json:"position"`
	Location json.RawMessage    `json:"location"`
}

type navigateResponse struct {
	View     reader.View `json:"view"`
	Accepted bool        `json:"accepted"`
}

// Navigate moves the session. Rejected locations answer 200 with
// accepted=false and leave the position unchanged.
// POST /api/sessions/:sid/navigate
func (rc *ReaderController) Navigate(c *gin.Context) {
	var req navigateRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Position == nil && len(req.Location) == 0 {
		respondBadRequest(c, "position or location is required")
		return
	}
	s, ok := rc.session(c)
	if !ok {
		return
	}

	var (
		view     reader.View
		accepted bool
		err      error
	)
	if req.Position != nil {
		view, accepted, err = s.Navigate(c.Request.Context(), *req.Position)
	} else {
		view, accepted, err = s.ReportLocation(c.Request.Context(), req.Location)
	}
	if err != nil {
		respondError(c, err, "navigate")
		return
	}
	c.JSON(http.StatusOK, navigateResponse{View: view, Accepted: accepted})
}

// Page renders the current position. ?format=jpeg returns the raster when
// the renderer produced one.
// GET /api/sessions/:sid/page
func (rc *ReaderController) Page(c *gin.Context) {
	s, ok := rc.session(c)
	if !ok {
		return
	}
	page, err := s.RenderPage(c.Request.Context())
	if err != nil {
		respondError(c, err, "render page")
		return
	}

	if c.Query("format") == "jpeg" && page.Raster != nil {
		c.Header("Content-Type", "image/jpeg")
		c.Status(http.StatusOK)
		if err := jpeg.Encode(c.Writer, page.Raster, &jpeg.Options{Quality: 85}); err != nil {
			c.Error(err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"position":   page.Position,
		"text":       page.Text,
		"has_raster": page.Raster != nil,
	})
}

// UpdateSettings changes font, line height, panels or zoom.
// PATCH /api/sessions/:sid/settings
func (rc *ReaderController) UpdateSettings(c *gin.Context) {
	var patch reader.SettingsPatch
	if !bindJSON(c, &patch) {
		return
	}
	s, ok := rc.session(c)
	if !ok {
		return
	}
	view, err := s.UpdateSettings(c.Request.Context(), patch)
	if err != nil {
		respondError(c, err, "update settings")
		return
	}
	c.JSON(http.StatusOK, view)
}

type sessionBookmarkRequest struct {
	Note string `json:"note" binding:"max=512"`
}

// ToggleBookmark toggles a bookmark at the session's current position.
// POST /api/sessions/:sid/bookmarks/toggle
func (rc *ReaderController) ToggleBookmark(c *gin.Context) {
	var req sessionBookmarkRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	s, ok := rc.session(c)
	if !ok {
		return
	}
	bm, added, err := s.ToggleBookmark(c.Request.Context(), req.Note)
	if err != nil {
		respondError(c, err, "toggle bookmark")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookmark": bm, "added": added})
}

// Close ends the session, flushing pending progress.
// DELETE /api/sessions/:sid
func (rc *ReaderController) Close(c *gin.Context) {
	if err := rc.sessions.Close(c.Request.Context(), GetUserID(c), c.Param("sid")); err != nil {
		respondError(c, err, "close session")
		return
	}
	respondSuccess(c, "session closed", nil)
}
