package http

import (
	"context"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/importers"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/reader"
)

// Store interfaces used by the controllers. Each controller takes only what
// it calls so tests can pass lightweight fakes.

// LibraryProvider resolves the library of the request's owner.
type LibraryProvider interface {
	Store(ctx context.Context, owner uint) (*library.Store, error)
	Projector() *library.Projector
}

// BookPurger removes stored files of a deleted book.
type BookPurger interface {
	PurgeBook(ctx context.Context, book entities.Book)
}

// SessionRegistry is the part of reader.Registry the controllers use.
type SessionRegistry interface {
	Open(ctx context.Context, owner uint, bookID string) (*reader.Session, reader.View, error)
	Get(owner uint, sessionID string) (*reader.Session, error)
	Close(ctx context.Context, owner uint, sessionID string) error
	CloseBook(ctx context.Context, owner uint, bookID string)
}

// BookImporter runs batch imports into a library.
type BookImporter interface {
	ImportFiles(ctx context.Context, lib importers.Library, files []importers.File) importers.BatchResult
}

// HealthCheck reports the status of one dependency. A nil error means ok.
type HealthCheck func(ctx context.Context) error
