// Package database provides the relational backend for the library.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup (sqlite or postgres), migrations
//	├── books/           # library.Repository over books, notes, bookmarks, stats
//	└── settings/        # Per-user key/value settings (persisted view state)
//
// Users live in the same database but are owned by the auth package.
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database, cfg.Log.Level)
//
//	settingsRepo := settings.NewRepository(db.DB)
//	booksRepo := books.NewRepository(db.DB, settingsRepo, books.WithRequireOwner(true))
//
//	store := library.NewStore(booksRepo, userID)
//	err = store.Initialize(ctx)
//
// # Ownership
//
// Every row hangs off a user id. With authentication enabled the books
// repository refuses owner 0 with NOT_AUTHENTICATED instead of reading the
// shared anonymous library.
//
// # Adding a New Domain
//
//  1. Create a new sub-package: internal/database/<domain>/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
