package http

import (
	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Libraries LibraryProvider
	Importer  BookImporter
	Sessions  SessionRegistry
	Purger    BookPurger    // Optional
	Covers    *covers.Cache // Optional

	// Health
	HealthChecks map[string]HealthCheck
	Backend      string

	// Authentication (all optional when AUTH_MODE=none)
	AuthConfig     config.Auth
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	CSRFSecret     []byte

	// Application info
	Version string
}
