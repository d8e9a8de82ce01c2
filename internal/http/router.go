package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// The returned stop function releases background resources of the auth
// controller.
func NewRouter(cfg RouterConfig) (*gin.Engine, func()) {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	localAuth := cfg.AuthConfig.Mode == config.AuthModeLocal

	// Session must load before the auth middleware reads it
	if localAuth && cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.LoadAndSave())
	}

	authMiddleware := auth.NewMiddleware(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig)
	router.Use(authMiddleware.Handler())

	// CSRF runs after auth so bearer requests can skip it
	if localAuth && len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.AuthConfig.SecureCookies))
	}

	stop := func() {}
	api := router.Group("/api")
	if localAuth && cfg.AuthService != nil {
		authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.AuthConfig)
		authController.RegisterRoutes(api)
		stop = authController.Stop
	}

	// Health endpoints
	health := NewHealthController(cfg.HealthChecks, cfg.Backend, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	protected := api.Group("", authMiddleware.RequireUser())

	libraryController := NewLibraryController(cfg.Libraries)
	protected.GET("/library", libraryController.GetLibrary)
	protected.PATCH("/library/view", libraryController.UpdateView)
	protected.PUT("/library/selection", libraryController.SetSelection)
	protected.POST("/library/reload", libraryController.Reload)

	booksController := NewBooksController(cfg.Libraries, cfg.Sessions, cfg.Purger)
	protected.POST("/books", booksController.AddBook)
	protected.GET("/books/:id", booksController.GetBook)
	protected.DELETE("/books/:id", booksController.RemoveBook)
	protected.PUT("/books/:id/progress", booksController.UpdateProgress)
	protected.PUT("/books/:id/scale", booksController.UpdateScale)
	protected.PUT("/books/:id/genre", booksController.SetGenre)

	if cfg.Importer != nil {
		importController := NewImportController(cfg.Libraries, cfg.Importer)
		protected.POST("/books/import", importController.Import)
	}

	if cfg.Covers != nil {
		coversController := NewCoversController(cfg.Covers, cfg.Libraries)
		protected.GET("/books/:id/cover", coversController.GetCover)
	}

	annotations := NewAnnotationsController(cfg.Libraries)
	protected.POST("/books/:id/notes", annotations.AddNote)
	protected.PATCH("/books/:id/notes/:noteId", annotations.EditNote)
	protected.DELETE("/books/:id/notes/:noteId", annotations.RemoveNote)
	protected.GET("/books/:id/bookmarks", annotations.ListBookmarks)
	protected.POST("/books/:id/bookmarks", annotations.AddBookmark)
	protected.POST("/books/:id/bookmarks/toggle", annotations.ToggleBookmark)
	protected.DELETE("/books/:id/bookmarks/:bookmarkId", annotations.RemoveBookmark)

	if cfg.Sessions != nil {
		readerController := NewReaderController(cfg.Sessions)
		protected.POST("/books/:id/session", readerController.Open)
		protected.GET("/sessions/:sid", readerController.Get)
		protected.POST("/sessions/:sid/navigate", readerController.Navigate)
		protected.GET("/sessions/:sid/page", readerController.Page)
		protected.PATCH("/sessions/:sid/settings", readerController.UpdateSettings)
		protected.POST("/sessions/:sid/bookmarks/toggle", readerController.ToggleBookmark)
		protected.DELETE("/sessions/:sid", readerController.Close)
	}

	return router, stop
}
