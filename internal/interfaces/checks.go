package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/bookshelf/internal/database/books"
	"github.com/mrlokans/bookshelf/internal/database/settings"
	"github.com/mrlokans/bookshelf/internal/http"
	"github.com/mrlokans/bookshelf/internal/importers"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/reader"
	"github.com/mrlokans/bookshelf/internal/renderer"
	"github.com/mrlokans/bookshelf/internal/scheduler"
	"github.com/mrlokans/bookshelf/internal/snapshot"
	"github.com/mrlokans/bookshelf/internal/storage"
	"github.com/mrlokans/bookshelf/internal/tasks"
)

// =============================================================================
// Library Storage Backends
// =============================================================================

// Repository implementations
var _ library.Repository = (*library.MemoryRepository)(nil)
var _ library.Repository = (*snapshot.Repository)(nil)
var _ library.Repository = (*books.Repository)(nil)

// ReferenceSource implementations (orphan sweep)
var _ scheduler.ReferenceSource = (*library.MemoryRepository)(nil)
var _ scheduler.ReferenceSource = (*snapshot.Repository)(nil)
var _ scheduler.ReferenceSource = (*books.Repository)(nil)

// ValueLogCollector implementations
var _ scheduler.ValueLogCollector = (*snapshot.Repository)(nil)

// ViewStateStore implementations
var _ books.ViewStateStore = (*settings.Repository)(nil)

// =============================================================================
// Library Store Consumers
// =============================================================================

var _ importers.Library = (*library.Store)(nil)
var _ reader.Library = (*library.Store)(nil)

// =============================================================================
// Documents and Files
// =============================================================================

// Renderer implementations
var _ renderer.Renderer = (*renderer.EPUB)(nil)
var _ renderer.Renderer = (*renderer.PDF)(nil)

// Loader implementations
var _ reader.Loader = (*reader.StorageLoader)(nil)
var _ reader.Loader = reader.LoaderFunc(nil)

// Client implementations
var _ storage.Client = (*storage.Local)(nil)

// =============================================================================
// HTTP Dependencies
// =============================================================================

var _ http.LibraryProvider = (*library.Manager)(nil)
var _ http.SessionRegistry = (*reader.Registry)(nil)
var _ http.BookImporter = (*importers.Pipeline)(nil)
var _ http.BookPurger = (*tasks.Purger)(nil)
