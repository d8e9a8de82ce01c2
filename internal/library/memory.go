package library

import (
	"context"
	"strings"
	"sync"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// MemoryRepository keeps libraries in process memory only.
type MemoryRepository struct {
	mu        sync.Mutex
	libraries map[uint]Aggregate
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{libraries: make(map[uint]Aggregate)}
}

func (r *MemoryRepository) LoadLibrary(_ context.Context, owner uint) (Aggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.libraries[owner]
	if !ok {
		return NewAggregate(), nil
	}
	return a.Clone(), nil
}

func (r *MemoryRepository) InsertBook(_ context.Context, owner uint, book entities.Book) error {
	r.apply(owner, func(a Aggregate) Aggregate { return a.InsertBook(book.Clone()) })
	return nil
}

func (r *MemoryRepository) UpdateBook(_ context.Context, owner uint, bookID string, update BookUpdate) error {
	r.apply(owner, func(a Aggregate) Aggregate {
		next, _ := a.UpdateBook(bookID, update)
		return next
	})
	return nil
}

func (r *MemoryRepository) DeleteBook(_ context.Context, owner uint, bookID string) error {
	r.apply(owner, func(a Aggregate) Aggregate { return a.DeleteBook(bookID) })
	return nil
}

func (r *MemoryRepository) InsertNote(_ context.Context, owner uint, bookID string, note entities.Note) error {
	r.apply(owner, func(a Aggregate) Aggregate {
		next, _ := a.InsertNote(bookID, note)
		return next
	})
	return nil
}

func (r *MemoryRepository) UpdateNote(_ context.Context, owner uint, bookID, noteID, content string) error {
	r.apply(owner, func(a Aggregate) Aggregate {
		next, _ := a.UpdateNote(bookID, noteID, content)
		return next
	})
	return nil
}

func (r *MemoryRepository) DeleteNote(_ context.Context, owner uint, bookID, noteID string) error {
	r.apply(owner, func(a Aggregate) Aggregate {
		next, _ := a.DeleteNote(bookID, noteID)
		return next
	})
	return nil
}

func (r *MemoryRepository) InsertBookmark(_ context.Context, owner uint, bookID string, bookmark entities.Bookmark) error {
	r.apply(owner, func(a Aggregate) Aggregate {
		next, _ := a.InsertBookmark(bookID, bookmark)
		return next
	})
	return nil
}

func (r *MemoryRepository) DeleteBookmark(_ context.Context, owner uint, bookID, bookmarkID string) error {
	r.apply(owner, func(a Aggregate) Aggregate {
		next, _ := a.DeleteBookmark(bookID, bookmarkID)
		return next
	})
	return nil
}

func (r *MemoryRepository) SaveViewState(_ context.Context, owner uint, view entities.ViewState) error {
	r.apply(owner, func(a Aggregate) Aggregate { return a.WithView(view) })
	return nil
}

// ReferencedFiles returns every document and stored cover across all owners.
func (r *MemoryRepository) ReferencedFiles(_ context.Context) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	refs := make(map[string]bool)
	for _, a := range r.libraries {
		for _, b := range a.Books {
			refs[b.File] = true
			if b.Cover != "" && !strings.Contains(b.Cover, "://") {
				refs[b.Cover] = true
			}
		}
	}
	return refs, nil
}

func (r *MemoryRepository) apply(owner uint, fn func(Aggregate) Aggregate) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.libraries[owner]
	if !ok {
		a = NewAggregate()
	}
	r.libraries[owner] = fn(a)
}
