package library

import (
	"context"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Repository is the persistence capability the Store is built against.
// Implementations write incrementally; the Store has already validated the
// change and only calls a method when the in-memory transition succeeded.
type Repository interface {
	// LoadLibrary returns the owner's books in the backend's natural order
	// plus persisted view state.
	LoadLibrary(ctx context.Context, owner uint) (Aggregate, error)

	InsertBook(ctx context.Context, owner uint, book entities.Book) error
	UpdateBook(ctx context.Context, owner uint, bookID string, update BookUpdate) error
	// DeleteBook also removes the book's notes, bookmarks and stats.
	DeleteBook(ctx context.Context, owner uint, bookID string) error

	InsertNote(ctx context.Context, owner uint, bookID string, note entities.Note) error
	UpdateNote(ctx context.Context, owner uint, bookID, noteID, content string) error
	DeleteNote(ctx context.Context, owner uint, bookID, noteID string) error

	InsertBookmark(ctx context.Context, owner uint, bookID string, bookmark entities.Bookmark) error
	DeleteBookmark(ctx context.Context, owner uint, bookID, bookmarkID string) error

	SaveViewState(ctx context.Context, owner uint, view entities.ViewState) error
}
