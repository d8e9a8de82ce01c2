// Package library owns the canonical book collection and its view state.
//
// A Store serializes every mutation for one owner and publishes an immutable
// Snapshot after each one, so readers never take a lock and never observe a
// half-applied change. Persistence goes through the Repository interface; the
// memory, badger snapshot and relational backends all implement it on top of
// the same Aggregate transitions.
//
// # Usage
//
//	repo := library.NewMemoryRepository()
//	store := library.NewStore(repo, 0, library.WithLogger(log))
//	_ = store.Initialize(ctx)
//	book, err := store.AddBook(ctx, draft)
//	books := store.Snapshot().Project(projector)
package library
