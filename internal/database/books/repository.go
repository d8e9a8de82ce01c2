// Package books is the relational library.Repository: books, their notes,
// bookmarks and reading stats, scoped by owning user.
//
// # Interface Implementation
//
//	var _ library.Repository = (*Repository)(nil)
//
// # Usage
//
//	repo := books.NewRepository(db, settings.NewRepository(db))
//	store := library.NewStore(repo, userID)
package books

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/library"
)

var _ library.Repository = (*Repository)(nil)

// ViewStateStore persists the per-user library view.
type ViewStateStore interface {
	GetJSON(ctx context.Context, userID uint, key string, out any) (bool, error)
	SetJSON(ctx context.Context, userID uint, key string, v any) error
}

// Repository handles all book database operations.
type Repository struct {
	db           *gorm.DB
	views        ViewStateStore
	requireOwner bool
}

// Option configures a Repository.
type Option func(*Repository)

// WithRequireOwner rejects the anonymous owner (0) with NOT_AUTHENTICATED.
func WithRequireOwner(require bool) Option {
	return func(r *Repository) { r.requireOwner = require }
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB, views ViewStateStore, opts ...Option) *Repository {
	r := &Repository{db: db, views: views}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Repository) checkOwner(owner uint) error {
	if r.requireOwner && owner == 0 {
		return errors.ErrNotAuthenticated
	}
	return nil
}

func orderBySeq(db *gorm.DB) *gorm.DB {
	return db.Order("seq ASC")
}

// LoadLibrary returns the owner's books, most recently updated first.
func (r *Repository) LoadLibrary(ctx context.Context, owner uint) (library.Aggregate, error) {
	if err := r.checkOwner(owner); err != nil {
		return library.Aggregate{}, err
	}

	var books []entities.Book
	err := r.db.WithContext(ctx).
		Preload("Notes", orderBySeq).
		Preload("Bookmarks", orderBySeq).
		Preload("Stats").
		Where("user_id = ?", owner).
		Order("updated_at DESC").
		Order("date_added DESC").
		Find(&books).Error
	if err != nil {
		return library.Aggregate{}, err
	}

	agg := library.NewAggregate()
	for _, b := range books {
		if b.Notes == nil {
			b.Notes = []entities.Note{}
		}
		if b.Bookmarks == nil {
			b.Bookmarks = []entities.Bookmark{}
		}
		if b.Tags == nil {
			b.Tags = []string{}
		}
		agg.Books = append(agg.Books, b)
	}

	if r.views != nil {
		var view entities.ViewState
		found, err := r.views.GetJSON(ctx, owner, entities.SettingKeyViewState, &view)
		if err != nil {
			return library.Aggregate{}, err
		}
		if found {
			agg.View = view
		}
	}
	return agg, nil
}

// InsertBook stores a new book with its empty stats row.
func (r *Repository) InsertBook(ctx context.Context, owner uint, book entities.Book) error {
	if err := r.checkOwner(owner); err != nil {
		return err
	}
	book.UserID = owner
	stats := book.Stats
	stats.BookID = book.ID

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&book).Error; err != nil {
			return err
		}
		return tx.Create(&stats).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errors.DuplicateBook(book.Title, book.Author)
	}
	return err
}

// UpdateBook overwrites the fields named by update.
func (r *Repository) UpdateBook(ctx context.Context, owner uint, bookID string, update library.BookUpdate) error {
	if err := r.checkOwner(owner); err != nil {
		return err
	}

	columns := map[string]any{}
	if p := update.Progress; p != nil {
		columns["progress_kind"] = p.Kind
		columns["progress_percentage"] = p.Percentage
		columns["progress_location"] = p.Location
		columns["progress_current_page"] = p.CurrentPage
		columns["progress_total_pages"] = p.TotalPages
	}
	if update.LastReadAt != nil {
		columns["last_read_at"] = *update.LastReadAt
	}
	if update.Scale != nil {
		columns["scale"] = *update.Scale
	}
	if update.Genre != nil {
		columns["genre"] = *update.Genre
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&entities.Book{}).Where("id = ? AND user_id = ?", bookID, owner)
		var result *gorm.DB
		if len(columns) > 0 {
			result = q.Updates(columns)
		} else {
			// Stats-only changes still bump updated_at for ordering.
			result = q.Update("updated_at", tx.NowFunc())
		}
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errors.NotFoundf("book %s not found", bookID)
		}

		if update.Stats != nil {
			stats := *update.Stats
			stats.BookID = bookID
			return tx.Save(&stats).Error
		}
		return nil
	})
}

// DeleteBook removes a book with its notes, bookmarks and stats. Deleting a
// missing book is not an error.
func (r *Repository) DeleteBook(ctx context.Context, owner uint, bookID string) error {
	if err := r.checkOwner(owner); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Book{}).Where("id = ? AND user_id = ?", bookID, owner).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return nil
		}
		if err := tx.Where("book_id = ?", bookID).Delete(&entities.Note{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", bookID).Delete(&entities.Bookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Where("book_id = ?", bookID).Delete(&entities.ReadingStats{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ? AND user_id = ?", bookID, owner).Delete(&entities.Book{}).Error
	})
}

// ownsBook guards child-row writes so one user cannot touch another's book.
func (r *Repository) ownsBook(tx *gorm.DB, owner uint, bookID string) error {
	var count int64
	if err := tx.Model(&entities.Book{}).Where("id = ? AND user_id = ?", bookID, owner).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return errors.NotFoundf("book %s not found", bookID)
	}
	return nil
}

func (r *Repository) touch(tx *gorm.DB, bookID string) error {
	return tx.Model(&entities.Book{}).Where("id = ?", bookID).Update("updated_at", tx.NowFunc()).Error
}

// InsertNote appends a note to the owner's book.
func (r *Repository) InsertNote(ctx context.Context, owner uint, bookID string, note entities.Note) error {
	if err := r.checkOwner(owner); err != nil {
		return err
	}
	note.BookID = bookID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ownsBook(tx, owner, bookID); err != nil {
			return err
		}
		if err := tx.Create(&note).Error; err != nil {
			return err
		}
		return r.touch(tx, bookID)
	})
}

// UpdateNote replaces a note's content.
func (r *Repository) UpdateNote(ctx context.Context, owner uint, bookID, noteID, content string) error {
	if err := r.checkOwner(owner); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ownsBook(tx, owner, bookID); err != nil {
			return err
		}
		err := tx.Model(&entities.Note{}).
			Where("id = ? AND book_id = ?", noteID, bookID).
			Update("content", content).Error
		if err != nil {
			return err
		}
		return r.touch(tx, bookID)
	})
}

// DeleteNote removes a note. Missing notes are ignored.
func (r *Repository) DeleteNote(ctx context.Context, owner uint, bookID, noteID string) error {
	if err := r.checkOwner(owner); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ownsBook(tx, owner, bookID); err != nil {
			return err
		}
		if err := tx.Where("id = ? AND book_id = ?", noteID, bookID).Delete(&entities.Note{}).Error; err != nil {
			return err
		}
		return r.touch(tx, bookID)
	})
}

// InsertBookmark appends a bookmark to the owner's book.
func (r *Repository) InsertBookmark(ctx context.Context, owner uint, bookID string, bookmark entities.Bookmark) error {
	if err := r.checkOwner(owner); err != nil {
		return err
	}
	bookmark.BookID = bookID
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ownsBook(tx, owner, bookID); err != nil {
			return err
		}
		if err := tx.Create(&bookmark).Error; err != nil {
			return err
		}
		return r.touch(tx, bookID)
	})
}

// DeleteBookmark removes a bookmark. Missing bookmarks are ignored.
func (r *Repository) DeleteBookmark(ctx context.Context, owner uint, bookID, bookmarkID string) error {
	if err := r.checkOwner(owner); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.ownsBook(tx, owner, bookID); err != nil {
			return err
		}
		if err := tx.Where("id = ? AND book_id = ?", bookmarkID, bookID).Delete(&entities.Bookmark{}).Error; err != nil {
			return err
		}
		return r.touch(tx, bookID)
	})
}

// SaveViewState stores the owner's view preferences as a JSON setting.
func (r *Repository) SaveViewState(ctx context.Context, owner uint, view entities.ViewState) error {
	if err := r.checkOwner(owner); err != nil {
		return err
	}
	if r.views == nil {
		return nil
	}
	return r.views.SetJSON(ctx, owner, entities.SettingKeyViewState, view)
}

// ReferencedFiles returns every stored document path and local cover path.
func (r *Repository) ReferencedFiles(ctx context.Context) (map[string]bool, error) {
	var rows []struct {
		File  string
		Cover string
	}
	if err := r.db.WithContext(ctx).Model(&entities.Book{}).Select("file", "cover").Find(&rows).Error; err != nil {
		return nil, err
	}
	refs := make(map[string]bool, len(rows))
	for _, row := range rows {
		refs[row.File] = true
		if row.Cover != "" && !strings.Contains(row.Cover, "://") {
			refs[row.Cover] = true
		}
	}
	return refs, nil
}
