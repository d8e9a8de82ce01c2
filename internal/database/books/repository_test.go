package books

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/database"
	"github.com/mrlokans/bookshelf/internal/database/settings"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/logger"
)

func setupTestDB(t *testing.T, opts ...Option) (*Repository, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "books.db"),
	}, "error")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return NewRepository(db.DB, settings.NewRepository(db.DB), opts...), db.DB
}

func sampleBook(id, title string) entities.Book {
	return entities.Book{
		ID:        id,
		Title:     title,
		Author:    "Author",
		Format:    entities.FormatEPUB,
		File:      "files/" + id + ".epub",
		Cover:     "covers/" + id + ".jpg",
		Tags:      []string{},
		Progress:  entities.InitialProgress(entities.FormatEPUB, 0),
		Scale:     1,
		DateAdded: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Notes:     []entities.Note{},
		Bookmarks: []entities.Bookmark{},
		Stats:     entities.ReadingStats{BookID: id},
	}
}

func TestRepository_EmptyLibrary(t *testing.T) {
	repo, _ := setupTestDB(t)

	a, err := repo.LoadLibrary(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, a.Books)
	assert.Equal(t, entities.DefaultViewState(), a.View)
}

func TestRepository_BacksStore(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)

	store := library.NewStore(repo, 1, library.WithLogger(logger.Discard()))
	require.NoError(t, store.Initialize(ctx))

	book, err := store.AddBook(ctx, entities.BookDraft{
		Title:  "Dune",
		Author: "Frank Herbert",
		Format: entities.FormatEPUB,
		File:   "files/dune.epub",
	})
	require.NoError(t, err)

	note, err := store.AddNote(ctx, book.ID, entities.NoteDraft{Content: "spice", Location: "ch1.xhtml"})
	require.NoError(t, err)
	_, err = store.AddNote(ctx, book.ID, entities.NoteDraft{Content: "sandworm"})
	require.NoError(t, err)
	_, err = store.EditNote(ctx, book.ID, note.ID, "the spice must flow")
	require.NoError(t, err)
	_, err = store.AddBookmark(ctx, book.ID, entities.Marker{Location: "ch2.xhtml"}, "arrakis")
	require.NoError(t, err)
	_, err = store.UpdateBookProgress(ctx, book.ID, entities.ReflowableAt("ch2.xhtml", 0.4))
	require.NoError(t, err)
	_, err = store.UpdateBookScale(ctx, book.ID, 1.5)
	require.NoError(t, err)
	_, err = store.SetBookGenre(ctx, book.ID, "Science Fiction")
	require.NoError(t, err)
	_, err = store.RecordReadingSession(ctx, book.ID, entities.SessionDelta{Duration: 90 * time.Second, PositionsSeen: 3, EndedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store.SetTheme(ctx, entities.ThemeDark))

	reloaded := library.NewStore(repo, 1, library.WithLogger(logger.Discard()))
	require.NoError(t, reloaded.Initialize(ctx))
	snap := reloaded.Snapshot()

	require.Len(t, snap.Books, 1)
	got := snap.Books[0]
	assert.Equal(t, book.ID, got.ID)
	assert.Equal(t, "Science Fiction", got.Genre)
	assert.Equal(t, 1.5, got.Scale)
	assert.Equal(t, entities.ProgressReflowable, got.Progress.Kind)
	assert.InDelta(t, 40.0, got.Progress.Percentage, 0.0001)
	assert.Equal(t, "ch2.xhtml", got.Progress.Location)
	require.NotNil(t, got.LastReadAt)

	require.Len(t, got.Notes, 2)
	assert.Equal(t, "the spice must flow", got.Notes[0].Content)
	assert.Equal(t, "sandworm", got.Notes[1].Content)
	require.Len(t, got.Bookmarks, 1)
	assert.Equal(t, "arrakis", got.Bookmarks[0].Note)

	assert.Equal(t, 1, got.Stats.Sessions)
	assert.Equal(t, int64(90), got.Stats.SecondsRead)
	assert.Equal(t, 3, got.Stats.PositionsSeen)

	assert.Equal(t, entities.ThemeDark, snap.View.Theme)
}

func TestRepository_MostRecentlyUpdatedFirst(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)

	require.NoError(t, repo.InsertBook(ctx, 1, sampleBook("book-a", "A")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, repo.InsertBook(ctx, 1, sampleBook("book-b", "B")))
	time.Sleep(5 * time.Millisecond)

	genre := "Fantasy"
	require.NoError(t, repo.UpdateBook(ctx, 1, "book-a", library.BookUpdate{Genre: &genre}))

	a, err := repo.LoadLibrary(ctx, 1)
	require.NoError(t, err)
	require.Len(t, a.Books, 2)
	assert.Equal(t, "book-a", a.Books[0].ID)
	assert.Equal(t, "book-b", a.Books[1].ID)
}

func TestRepository_DeleteBookCascades(t *testing.T) {
	ctx := context.Background()
	repo, db := setupTestDB(t)

	require.NoError(t, repo.InsertBook(ctx, 1, sampleBook("book-a", "A")))
	require.NoError(t, repo.InsertNote(ctx, 1, "book-a", entities.Note{ID: "note-1", Content: "x", Seq: 1}))
	require.NoError(t, repo.InsertBookmark(ctx, 1, "book-a", entities.Bookmark{ID: "bm-1", Location: "loc", Seq: 1}))

	require.NoError(t, repo.DeleteBook(ctx, 1, "book-a"))
	// Idempotent
	require.NoError(t, repo.DeleteBook(ctx, 1, "book-a"))

	for _, model := range []any{&entities.Book{}, &entities.Note{}, &entities.Bookmark{}, &entities.ReadingStats{}} {
		var count int64
		require.NoError(t, db.Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T rows left behind", model)
	}
}

func TestRepository_OwnerIsolation(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)

	require.NoError(t, repo.InsertBook(ctx, 1, sampleBook("book-a", "A")))
	require.NoError(t, repo.InsertBook(ctx, 2, sampleBook("book-b", "A")))

	first, err := repo.LoadLibrary(ctx, 1)
	require.NoError(t, err)
	require.Len(t, first.Books, 1)
	assert.Equal(t, "book-a", first.Books[0].ID)

	// Another owner's book is not found for child writes
	err = repo.InsertNote(ctx, 1, "book-b", entities.Note{ID: "note-x", Content: "x"})
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))

	// Nor is it deleted
	require.NoError(t, repo.DeleteBook(ctx, 1, "book-b"))
	second, err := repo.LoadLibrary(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, second.Books, 1)
}

func TestRepository_RequireOwner(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t, WithRequireOwner(true))

	_, err := repo.LoadLibrary(ctx, 0)
	assert.ErrorIs(t, err, errors.ErrNotAuthenticated)

	err = repo.InsertBook(ctx, 0, sampleBook("book-a", "A"))
	assert.ErrorIs(t, err, errors.ErrNotAuthenticated)

	store := library.NewStore(repo, 0, library.WithLogger(logger.Discard()))
	err = store.Initialize(ctx)
	assert.Equal(t, errors.CodeNotAuthenticated, errors.CodeOf(err))
	assert.NotEmpty(t, store.Snapshot().Error)
}

func TestRepository_DuplicateIdentity(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)

	require.NoError(t, repo.InsertBook(ctx, 1, sampleBook("book-a", "Same")))
	err := repo.InsertBook(ctx, 1, sampleBook("book-b", "Same"))
	assert.Equal(t, errors.CodeDuplicateBook, errors.CodeOf(err))
}

func TestRepository_UpdateMissingBook(t *testing.T) {
	scale := 2.0
	repo, _ := setupTestDB(t)

	err := repo.UpdateBook(context.Background(), 1, "nope", library.BookUpdate{Scale: &scale})
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
}

func TestRepository_ReferencedFiles(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupTestDB(t)

	remote := sampleBook("book-b", "B")
	remote.Cover = "https://example.com/cover.jpg"
	require.NoError(t, repo.InsertBook(ctx, 1, sampleBook("book-a", "A")))
	require.NoError(t, repo.InsertBook(ctx, 2, remote))

	refs, err := repo.ReferencedFiles(ctx)
	require.NoError(t, err)
	assert.True(t, refs["files/book-a.epub"])
	assert.True(t, refs["covers/book-a.jpg"])
	assert.True(t, refs["files/book-b.epub"])
	assert.False(t, refs["https://example.com/cover.jpg"])
}
