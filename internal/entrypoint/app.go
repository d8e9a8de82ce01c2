package entrypoint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/mrlokans/bookshelf/internal/auth"
	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/settings"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/importers"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/reader"
	"github.com/mrlokans/bookshelf/internal/renderer"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/snapshot"
	"github.com/mrlokans/bookshelf/internal/storage"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// orphanGrace keeps freshly uploaded files out of the orphan sweep.
const orphanGrace = time.Hour

// libraryBackend is what every storage backend provides to the app.
type libraryBackend interface {
	library.Repository
	scheduler.ReferenceSource
}

// App holds the wired components shared by the server and the CLI.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DB       *database.Database   // nil unless NeedsDatabase
	Snapshot *snapshot.Repository // local backend only

	Libraries *library.Manager
	Files     *storage.Local
	Covers    *covers.Cache
	Renderers *renderer.Registry
	Importer  *importers.Pipeline
	Sessions  *reader.Registry
	Tasks     *tasks.Client // nil when the task queue is disabled
	Purger    *tasks.Purger

	refs    scheduler.ReferenceSource
	closers []func() error
}

// Build opens storage and wires every component. Call Close when done.
func Build(cfg *config.Config, log *slog.Logger) (_ *App, err error) {
	app := &App{Config: cfg, Logger: log}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if cfg.NeedsDatabase() {
		app.DB, err = database.NewDatabase(cfg.Database, cfg.Log.Level)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		app.closers = append(app.closers, app.DB.Close)
	}

	backend, err := app.openBackend()
	if err != nil {
		return nil, err
	}
	app.refs = backend

	app.Files, err = storage.NewLocal(cfg.Storage.FilesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}
	app.Covers, err = covers.NewCache(cfg.Storage.CoversPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cover cache: %w", err)
	}
	log.Info("Storage initialized", "files", cfg.Storage.FilesPath, "covers", cfg.Storage.CoversPath)

	app.Libraries = library.NewManager(backend, library.NewProjector(cfg.Library.Locale), log)
	app.Renderers = renderer.NewDefaultRegistry()
	app.Importer = importers.NewPipeline(importers.NewImporter(app.Renderers, app.Files, app.Covers, log))
	app.Sessions = reader.NewRegistry(
		func(ctx context.Context, owner uint) (reader.Library, error) {
			store, err := app.Libraries.Store(ctx, owner)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
		reader.NewStorageLoader(app.Files, app.Renderers),
		log,
		reader.WithDebounce(cfg.Reader.ProgressDebounce),
	)

	if cfg.Tasks.Enabled {
		app.Tasks, err = tasks.NewClient(cfg.Database.Path, tasks.FromConfig(cfg.Tasks), log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize task queue: %w", err)
		}
		app.closers = append(app.closers, app.Tasks.Close)
	}
	app.Purger = tasks.NewPurger(app.Tasks, app.Files, app.Covers, log)
	if app.Tasks != nil {
		app.Tasks.Register(app.Purger.Queue())
	}

	return app, nil
}

func (a *App) openBackend() (libraryBackend, error) {
	cfg := a.Config
	switch cfg.Storage.Backend {
	case config.StorageMemory:
		a.Logger.Warn("Library storage: memory (books are lost on exit)")
		return library.NewMemoryRepository(), nil

	case config.StorageLocal:
		snap, err := snapshot.Open(cfg.Storage.SnapshotPath, a.Logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open snapshot store: %w", err)
		}
		a.Snapshot = snap
		a.closers = append(a.closers, snap.Close)
		a.Logger.Info("Library storage: local snapshot", "path", cfg.Storage.SnapshotPath)
		return snap, nil

	case config.StorageRemote:
		// Books belong to authenticated users; anonymous requests are rejected.
		a.Logger.Info("Library storage: remote database", "driver", cfg.Database.Driver)
		return books.NewRepository(
			a.DB.DB,
			settings.NewRepository(a.DB.DB),
			books.WithRequireOwner(true),
		), nil
	}
	return nil, fmt.Errorf("unknown library storage %q", cfg.Storage.Backend)
}

// HealthChecks returns the dependency checks for the health endpoint.
func (a *App) HealthChecks() map[string]http_controllers.HealthCheck {
	checks := map[string]http_controllers.HealthCheck{
		"files": func(context.Context) error {
			_, err := os.Stat(a.Files.Root())
			return err
		},
	}
	if a.DB != nil {
		checks["database"] = a.DB.Ping
	}
	return checks
}

// MaintenanceJobs returns the periodic jobs for the configured backend.
func (a *App) MaintenanceJobs() []scheduler.Job {
	jobs := []scheduler.Job{
		&scheduler.OrphanSweepJob{Files: a.Files, Refs: a.refs, Grace: orphanGrace, Logger: a.Logger},
	}
	if a.Snapshot != nil {
		jobs = append(jobs, &scheduler.ValueLogGCJob{Collector: a.Snapshot, Logger: a.Logger})
	}
	return jobs
}

// AuthComponents builds the local auth service, session manager and CSRF
// secret. All are nil when auth is disabled.
func (a *App) AuthComponents(ctx context.Context) (*auth.Service, *auth.SessionManager, []byte, error) {
	cfg := a.Config
	if cfg.Auth.Mode != config.AuthModeLocal {
		a.Logger.Info("Authentication mode: none (no authentication required)")
		return nil, nil, nil, nil
	}
	a.Logger.Info("Authentication mode: local")

	service := auth.NewService(a.DB.DB, cfg.Auth, a.Logger)

	// Persistent sessions need the sqlite store; postgres keeps them in memory
	var sessions *auth.SessionManager
	var err error
	if a.DB.Driver == config.DriverSQLite {
		sqlDB, dbErr := a.DB.DB.DB()
		if dbErr != nil {
			return nil, nil, nil, fmt.Errorf("failed to get SQL DB for sessions: %w", dbErr)
		}
		sessions, err = auth.NewSessionManager(sqlDB, cfg.Auth)
	} else {
		sessions, err = auth.NewSessionManager(nil, cfg.Auth)
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to initialize session manager: %w", err)
	}

	secret, err := csrfSecret(cfg.Auth.SessionSecret)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Auth.SessionSecret == "" {
		a.Logger.Warn("Generated session secret (set AUTH_SESSION_SECRET to persist)")
	}

	if hasUsers, err := service.HasUsers(ctx); err == nil && !hasUsers {
		a.Logger.Info("No users found. POST /api/auth/setup to create an administrator account.")
	}
	return service, sessions, secret, nil
}

// csrfSecret decodes a configured hex secret or generates one. Non-hex
// values are used as raw bytes.
func csrfSecret(configured string) ([]byte, error) {
	if configured == "" {
		secret, err := auth.GenerateSessionSecret()
		if err != nil {
			return nil, fmt.Errorf("failed to generate CSRF secret: %w", err)
		}
		return secret, nil
	}
	if secret, err := hex.DecodeString(configured); err == nil {
		return secret, nil
	}
	return []byte(configured), nil
}

// Close releases storage in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Error("Error closing resource", "error", err)
		}
	}
	a.closers = nil
}
