// Package interfaces documents the core abstractions used throughout the application.
//
// This package consolidates interface documentation to help contributors find
// extension points and how to implement new functionality.
//
// # Interface Categories
//
// ## Library Storage
//
//   - Repository: durable side of a library (internal/library/repository.go)
//   - ReferenceSource: files still referenced by books (internal/scheduler/jobs.go)
//   - ValueLogCollector: badger value log GC (internal/scheduler/jobs.go)
//   - ViewStateStore: per-user view settings (internal/database/books/repository.go)
//
// ## Documents
//
//   - Renderer / Document: format specific parsing and rendering (internal/renderer/renderer.go)
//   - Loader: opens the document of a book for a reading session (internal/reader/session.go)
//   - storage.Client: document bytes (internal/storage/client.go)
//
// ## Library Consumers
//
//   - importers.Library: receives imported books (internal/importers/pipeline.go)
//   - reader.Library: receives progress, scale, stats and bookmarks (internal/reader/session.go)
//
// ## HTTP Dependencies
//
//   - LibraryProvider, SessionRegistry, BookImporter, BookPurger (internal/http/stores.go)
//
// # Adding a New Document Format
//
//  1. Implement Renderer in internal/renderer/
//
//     type MOBI struct{}
//
//     func (*MOBI) Format() entities.Format { return entities.FormatMOBI }
//     func (*MOBI) Open(ctx context.Context, r io.ReaderAt, size int64) (Document, error)
//
//     var _ Renderer = (*MOBI)(nil)
//
//  2. Register it in NewDefaultRegistry and map its MIME type in Detect
//
//  3. Add the extension to supportedExtensions in internal/importers/pipeline.go
//
// # Adding a New Storage Backend
//
//  1. Implement library.Repository and scheduler.ReferenceSource
//
//     type Repository struct { ... }
//
//     func (r *Repository) LoadLibrary(ctx context.Context, owner uint) (library.Aggregate, error)
//     func (r *Repository) InsertBook(ctx context.Context, owner uint, book entities.Book) error
//     // ...
//
//  2. Add a StorageBackend constant in internal/config and a case in
//     entrypoint.openBackend
//
//  3. Add compile-time checks to checks.go
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
