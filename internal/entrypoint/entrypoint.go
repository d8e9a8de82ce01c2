package entrypoint

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/config"
	http_controllers "github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/logger"
	"github.com/mrlokans/bookshelf/internal/scheduler"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// NewLogger builds the process logger from configuration.
func NewLogger(cfg config.Log) *slog.Logger {
	return logger.New(logger.Config{
		Format:      cfg.Format,
		Environment: cfg.Environment,
		Level:       logger.ParseLevel(cfg.Level),
	})
}

func Serve(router *gin.Engine, cfg *config.Config, log *slog.Logger, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Info("Starting server", "addr", srv.Addr)
		// service connections
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen failed", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be caught, so don't need to add it
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before sessions flush their progress
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server shutdown failed", "error", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Info("Server exiting")
}

// Run serves the HTTP API until SIGINT or SIGTERM.
func Run(cfg *config.Config, version string) error {
	log := NewLogger(cfg.Log)
	slog.SetDefault(log)
	log.Info("Starting Bookshelf", "version", version)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := Build(cfg, log)
	if err != nil {
		return err
	}
	defer app.Close()

	bgCtx, cancelBackground := context.WithCancel(context.Background())
	defer cancelBackground()

	authService, sessionManager, csrfSecret, err := app.AuthComponents(bgCtx)
	if err != nil {
		return fmt.Errorf("failed to initialize authentication: %w", err)
	}

	var maintenance *scheduler.MaintenanceScheduler
	if cfg.Maintenance.Enabled {
		maintenance = scheduler.NewMaintenanceScheduler(cfg.Maintenance.Schedule, log, app.MaintenanceJobs()...)
		if err := maintenance.Start(bgCtx); err != nil {
			return fmt.Errorf("failed to start maintenance scheduler: %w", err)
		}
	}

	if app.Tasks != nil {
		go app.Tasks.Start(bgCtx)
	}
	go app.Sessions.Run(bgCtx, cfg.Reader.IdleTimeout)

	router, stopRouter := http_controllers.NewRouter(http_controllers.RouterConfig{
		Libraries:      app.Libraries,
		Importer:       app.Importer,
		Sessions:       app.Sessions,
		Purger:         app.Purger,
		Covers:         app.Covers,
		HealthChecks:   app.HealthChecks(),
		Backend:        string(cfg.Storage.Backend),
		AuthConfig:     cfg.Auth,
		AuthService:    authService,
		SessionManager: sessionManager,
		CSRFSecret:     csrfSecret,
		Version:        version,
	})

	onShutdown := func(ctx context.Context) {
		stopRouter()
		app.Sessions.CloseAll(ctx)
		if maintenance != nil {
			maintenance.Stop()
		}
		if app.Tasks != nil {
			app.Tasks.Stop(ctx)
		}
		cancelBackground()
	}

	Serve(router, cfg, log, onShutdown)
	return nil
}
