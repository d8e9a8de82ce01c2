// Package snapshot persists each owner's whole library as one JSON document
// in BadgerDB. The document is read once per owner and cached; every mutation
// rewrites it in a single transaction.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/library"
)

const (
	keyPrefix     = "library:"
	formatVersion = 1
)

type document struct {
	Version int               `json:"version"`
	SavedAt time.Time         `json:"saved_at"`
	Library library.Aggregate `json:"library"`
}

// Repository is a library.Repository backed by a badger snapshot per owner.
type Repository struct {
	db     *badger.DB
	logger *slog.Logger

	mu    sync.Mutex
	cache map[uint]library.Aggregate
}

// Open opens (or creates) the badger directory at path.
func Open(path string, logger *slog.Logger) (*Repository, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	return open(opts, logger)
}

// OpenInMemory opens a throwaway badger instance. Used by tests.
func OpenInMemory(logger *slog.Logger) (*Repository, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Repository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	if opts.Dir != "" {
		logger.Info("Library snapshot opened", "path", opts.Dir)
	}
	return &Repository{db: db, logger: logger, cache: make(map[uint]library.Aggregate)}, nil
}

// Close closes the badger database.
func (r *Repository) Close() error {
	return r.db.Close()
}

func ownerKey(owner uint) []byte {
	return []byte(keyPrefix + strconv.FormatUint(uint64(owner), 10))
}

// LoadLibrary returns the cached aggregate, reading badger on first access.
func (r *Repository) LoadLibrary(_ context.Context, owner uint) (library.Aggregate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.loadLocked(owner)
	if err != nil {
		return library.Aggregate{}, err
	}
	return a.Clone(), nil
}

func (r *Repository) loadLocked(owner uint) (library.Aggregate, error) {
	if a, ok := r.cache[owner]; ok {
		return a, nil
	}

	var doc document
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(ownerKey(owner))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		a := library.NewAggregate()
		r.cache[owner] = a
		return a, nil
	}
	if err != nil {
		return library.Aggregate{}, fmt.Errorf("read snapshot for owner %d: %w", owner, err)
	}
	if doc.Version > formatVersion {
		return library.Aggregate{}, fmt.Errorf("snapshot for owner %d has version %d, newer than supported %d", owner, doc.Version, formatVersion)
	}

	a := doc.Library
	if a.Books == nil {
		a.Books = []entities.Book{}
	}
	r.cache[owner] = a
	return a, nil
}

// write applies fn to the owner's aggregate and persists the result. The
// cache only advances when badger accepted the write.
func (r *Repository) write(owner uint, fn func(library.Aggregate) library.Aggregate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.loadLocked(owner)
	if err != nil {
		return err
	}
	next := fn(cur)

	data, err := json.Marshal(document{Version: formatVersion, SavedAt: time.Now().UTC(), Library: next})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	if err := r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(ownerKey(owner), data)
	}); err != nil {
		return fmt.Errorf("write snapshot for owner %d: %w", owner, err)
	}

	r.cache[owner] = next
	return nil
}

func (r *Repository) InsertBook(_ context.Context, owner uint, book entities.Book) error {
	return r.write(owner, func(a library.Aggregate) library.Aggregate {
		return a.InsertBook(book.Clone())
	})
}

func (r *Repository) UpdateBook(_ context.Context, owner uint, bookID string, update library.BookUpdate) error {
	return r.write(owner, func(a library.Aggregate) library.Aggregate {
		next, _ := a.UpdateBook(bookID, update)
		return next
	})
}

func (r *Repository) DeleteBook(_ context.Context, owner uint, bookID string) error {
	return r.write(owner, func(a library.Aggregate) library.Aggregate {
		return a.DeleteBook(bookID)
	})
}

func (r *Repository) InsertNote(_ context.Context, owner uint, bookID string, note entities.Note) error {
	return r.write(owner, func(a library.Aggregate) library.Aggregate {
		next, _ := a.InsertNote(bookID, note)
		return next
	})
}

func (r *Repository) UpdateNote(_ context.Context, owner uint, bookID, noteID, content string) error {
	return r.write(owner, func(a library.Aggregate) library.Aggregate {
		next, _ := a.UpdateNote(bookID, noteID, content)
		return next
	})
}

func (r *Repository) DeleteNote(_ context.Context, owner uint, bookID, noteID string) error {
	return r.write(owner, func(a library.Aggregate) library.Aggregate {
		next, _ := a.DeleteNote(bookID, noteID)
		return next
	})
}

func (r *Repository) InsertBookmark(_ context.Context, owner uint, bookID string, bookmark entities.Bookmark) error {
	return r.write(owner, func(a library.Aggregate) library.Aggregate {
		next, _ := a.InsertBookmark(bookID, bookmark)
		return next
	})
}

func (r *Repository) DeleteBookmark(_ context.Context, owner uint, bookID, bookmarkID string) error {
	return r.write(owner, func(a library.Aggregate) library.Aggregate {
		next, _ := a.DeleteBookmark(bookID, bookmarkID)
		return next
	})
}

func (r *Repository) SaveViewState(_ context.Context, owner uint, view entities.ViewState) error {
	return r.write(owner, func(a library.Aggregate) library.Aggregate {
		return a.WithView(view)
	})
}

// ReferencedFiles returns every document and cover reference across all
// stored libraries.
func (r *Repository) ReferencedFiles(_ context.Context) (map[string]bool, error) {
	refs := make(map[string]bool)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var doc document
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			for _, b := range doc.Library.Books {
				refs[b.File] = true
				if b.Cover != "" && !strings.Contains(b.Cover, "://") {
					refs[b.Cover] = true
				}
			}
		}
		return nil
	})
	return refs, err
}

// RunGC reclaims value log space until badger reports nothing left to rewrite.
func (r *Repository) RunGC(discardRatio float64) (int, error) {
	rounds := 0
	for {
		err := r.db.RunValueLogGC(discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return rounds, nil
		}
		if err != nil {
			return rounds, err
		}
		rounds++
	}
}
