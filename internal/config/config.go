package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeLocal AuthMode = "local" // Local user database with sessions
)

// StorageBackend selects which Book Repository backs the library.
type StorageBackend string

const (
	StorageMemory StorageBackend = "memory" // Lost on process exit
	StorageLocal  StorageBackend = "local"  // Badger snapshot of the whole library
	StorageRemote StorageBackend = "remote" // Relational database keyed by user
)

type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

type (
	Config struct {
		HTTP
		Global
		Storage
		Database
		Library
		Reader
		Tasks
		Maintenance
		Auth
		Log
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Storage struct {
		Backend      StorageBackend
		SnapshotPath string // Badger directory for the local backend
		FilesPath    string // Imported document bytes
		CoversPath   string // Generated and fetched cover thumbnails
	}
	Database struct {
		Driver DatabaseDriver
		Path   string // sqlite file
		DSN    string // postgres connection string
	}
	Library struct {
		Locale string // BCP 47 tag used for collation
	}
	Reader struct {
		ProgressDebounce time.Duration
		IdleTimeout      time.Duration
	}
	Tasks struct {
		Enabled           bool
		Workers           int
		MaxRetries        int
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Maintenance struct {
		Enabled  bool
		Schedule string // Cron format: "0 3 * * *" = daily at 03:00
	}
	Auth struct {
		Mode            AuthMode
		SessionSecret   string
		SessionLifetime time.Duration
		TokenExpiry     time.Duration
		BcryptCost      int
		SecureCookies   bool // Set to false for local dev without HTTPS

		// Rate limiting configuration
		MaxLoginAttempts int           // Max failed attempts before lockout (default: 5)
		RateLimitWindow  time.Duration // Time window for counting attempts (default: 15m)
		LockoutDuration  time.Duration // How long to lock out (default: 30m)
	}
	Log struct {
		Level       string
		Format      string // "text" or "json"
		Environment string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("library_storage", string(StorageLocal))
	v.SetDefault("snapshot_path", DefaultSnapshotPath)
	v.SetDefault("files_path", DefaultFilesPath)
	v.SetDefault("covers_path", DefaultCoversPath)

	v.SetDefault("database_driver", string(DriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")

	v.SetDefault("library_locale", "und")
	v.SetDefault("reader_progress_debounce", "750ms")
	v.SetDefault("reader_idle_timeout", "2h")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_timeout", "1m")
	v.SetDefault("task_release_after", "5m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("maintenance_enabled", true)
	v.SetDefault("maintenance_schedule", "0 3 * * *")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("auth_session_secret", "")       // Auto-generated if empty
	v.SetDefault("auth_session_lifetime", "24h")  // 24 hours
	v.SetDefault("auth_token_expiry", "720h")     // 30 days
	v.SetDefault("auth_bcrypt_cost", 12)          // bcrypt cost factor
	v.SetDefault("auth_secure_cookies", true)     // HTTPS-only cookies
	v.SetDefault("auth_max_login_attempts", 5)    // Max failed attempts
	v.SetDefault("auth_rate_limit_window", "15m") // Window for counting attempts
	v.SetDefault("auth_lockout_duration", "30m")  // Lockout duration

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("environment", "development")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Storage: Storage{
			Backend:      StorageBackend(v.GetString("LIBRARY_STORAGE")),
			SnapshotPath: v.GetString("SNAPSHOT_PATH"),
			FilesPath:    v.GetString("FILES_PATH"),
			CoversPath:   v.GetString("COVERS_PATH"),
		},
		Database: Database{
			Driver: DatabaseDriver(v.GetString("DATABASE_DRIVER")),
			Path:   v.GetString("DATABASE_PATH"),
			DSN:    v.GetString("DATABASE_DSN"),
		},
		Library: Library{
			Locale: v.GetString("LIBRARY_LOCALE"),
		},
		Reader: Reader{
			ProgressDebounce: v.GetDuration("READER_PROGRESS_DEBOUNCE"),
			IdleTimeout:      v.GetDuration("READER_IDLE_TIMEOUT"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Maintenance: Maintenance{
			Enabled:  v.GetBool("MAINTENANCE_ENABLED"),
			Schedule: v.GetString("MAINTENANCE_SCHEDULE"),
		},
		Auth: Auth{
			Mode:             AuthMode(v.GetString("AUTH_MODE")),
			SessionSecret:    v.GetString("AUTH_SESSION_SECRET"),
			SessionLifetime:  v.GetDuration("AUTH_SESSION_LIFETIME"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			BcryptCost:       v.GetInt("AUTH_BCRYPT_COST"),
			SecureCookies:    v.GetBool("AUTH_SECURE_COOKIES"),
			MaxLoginAttempts: v.GetInt("AUTH_MAX_LOGIN_ATTEMPTS"),
			RateLimitWindow:  v.GetDuration("AUTH_RATE_LIMIT_WINDOW"),
			LockoutDuration:  v.GetDuration("AUTH_LOCKOUT_DURATION"),
		},
		Log: Log{
			Level:       v.GetString("LOG_LEVEL"),
			Format:      v.GetString("LOG_FORMAT"),
			Environment: v.GetString("ENVIRONMENT"),
		},
	}
}

// Validate rejects combinations that would otherwise fail later at wiring time.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case StorageMemory, StorageLocal, StorageRemote:
	default:
		return fmt.Errorf("unknown LIBRARY_STORAGE %q (want memory, local or remote)", c.Storage.Backend)
	}

	switch c.Database.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if c.Storage.Backend == StorageRemote && c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q (want sqlite or postgres)", c.Database.Driver)
	}

	switch c.Auth.Mode {
	case AuthModeNone, AuthModeLocal:
	default:
		return fmt.Errorf("unknown AUTH_MODE %q (want none or local)", c.Auth.Mode)
	}

	if c.Reader.ProgressDebounce < 0 {
		return fmt.Errorf("READER_PROGRESS_DEBOUNCE must not be negative")
	}
	return nil
}

// NeedsDatabase reports whether the relational database must be opened.
// Local auth keeps its users there even when books live elsewhere.
func (c *Config) NeedsDatabase() bool {
	return c.Storage.Backend == StorageRemote || c.Auth.Mode == AuthModeLocal
}
