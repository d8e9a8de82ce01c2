package library

import (
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Aggregate is the persisted shape of one owner's library. Every method
// returns a new value and leaves the receiver's slices untouched.
type Aggregate struct {
	Books []entities.Book    `json:"books"`
	View  entities.ViewState `json:"view"`
}

// NewAggregate returns an empty library with default view state.
func NewAggregate() Aggregate {
	return Aggregate{Books: []entities.Book{}, View: entities.DefaultViewState()}
}

// BookUpdate lists the fields a repository must overwrite. Nil means unchanged.
type BookUpdate struct {
	Progress   *entities.Progress
	LastReadAt *time.Time
	Scale      *float64
	Genre      *string
	Stats      *entities.ReadingStats
}

// Fields returns the column names touched by the update.
func (u BookUpdate) Fields() []string {
	var fields []string
	if u.Progress != nil {
		fields = append(fields, "progress")
	}
	if u.LastReadAt != nil {
		fields = append(fields, "last_read_at")
	}
	if u.Scale != nil {
		fields = append(fields, "scale")
	}
	if u.Genre != nil {
		fields = append(fields, "genre")
	}
	if u.Stats != nil {
		fields = append(fields, "stats")
	}
	return fields
}

// ApplyTo returns b with the update's fields overwritten.
func (u BookUpdate) ApplyTo(b entities.Book) entities.Book {
	if u.Progress != nil {
		b.Progress = *u.Progress
	}
	if u.LastReadAt != nil {
		t := *u.LastReadAt
		b.LastReadAt = &t
	}
	if u.Scale != nil {
		b.Scale = *u.Scale
	}
	if u.Genre != nil {
		b.Genre = *u.Genre
	}
	if u.Stats != nil {
		b.Stats = *u.Stats
	}
	return b
}

// Index returns the position of the book with the given id, or -1.
func (a Aggregate) Index(bookID string) int {
	for i := range a.Books {
		if a.Books[i].ID == bookID {
			return i
		}
	}
	return -1
}

// HasIdentity reports whether a book with this title and author exists.
func (a Aggregate) HasIdentity(title, author string) bool {
	for i := range a.Books {
		if a.Books[i].SameIdentity(title, author) {
			return true
		}
	}
	return false
}

// Clone deep-copies the aggregate.
func (a Aggregate) Clone() Aggregate {
	books := make([]entities.Book, len(a.Books))
	for i := range a.Books {
		books[i] = a.Books[i].Clone()
	}
	return Aggregate{Books: books, View: a.View}
}

// InsertBook appends a book.
func (a Aggregate) InsertBook(b entities.Book) Aggregate {
	books := make([]entities.Book, 0, len(a.Books)+1)
	books = append(books, a.Books...)
	books = append(books, b)
	return Aggregate{Books: books, View: a.View}
}

// DeleteBook drops the book if present.
func (a Aggregate) DeleteBook(bookID string) Aggregate {
	i := a.Index(bookID)
	if i < 0 {
		return a
	}
	books := make([]entities.Book, 0, len(a.Books)-1)
	books = append(books, a.Books[:i]...)
	books = append(books, a.Books[i+1:]...)
	return Aggregate{Books: books, View: a.View}
}

// ReplaceBook swaps the book at its id for a new value. Reports false when
// the id is unknown.
func (a Aggregate) ReplaceBook(b entities.Book) (Aggregate, bool) {
	i := a.Index(b.ID)
	if i < 0 {
		return a, false
	}
	books := make([]entities.Book, len(a.Books))
	copy(books, a.Books)
	books[i] = b
	return Aggregate{Books: books, View: a.View}, true
}

// UpdateBook applies field updates to one book.
func (a Aggregate) UpdateBook(bookID string, u BookUpdate) (Aggregate, bool) {
	i := a.Index(bookID)
	if i < 0 {
		return a, false
	}
	return a.ReplaceBook(u.ApplyTo(a.Books[i]))
}

// InsertNote appends a note to one book.
func (a Aggregate) InsertNote(bookID string, n entities.Note) (Aggregate, bool) {
	i := a.Index(bookID)
	if i < 0 {
		return a, false
	}
	b := a.Books[i]
	notes := make([]entities.Note, 0, len(b.Notes)+1)
	notes = append(notes, b.Notes...)
	b.Notes = append(notes, n)
	return a.ReplaceBook(b)
}

// UpdateNote replaces a note's content, keeping its id, timestamp and location.
func (a Aggregate) UpdateNote(bookID, noteID, content string) (Aggregate, bool) {
	i := a.Index(bookID)
	if i < 0 {
		return a, false
	}
	b := a.Books[i]
	j := b.FindNote(noteID)
	if j < 0 {
		return a, false
	}
	notes := make([]entities.Note, len(b.Notes))
	copy(notes, b.Notes)
	notes[j].Content = content
	b.Notes = notes
	return a.ReplaceBook(b)
}

// DeleteNote removes a note from one book.
func (a Aggregate) DeleteNote(bookID, noteID string) (Aggregate, bool) {
	i := a.Index(bookID)
	if i < 0 {
		return a, false
	}
	b := a.Books[i]
	j := b.FindNote(noteID)
	if j < 0 {
		return a, false
	}
	notes := make([]entities.Note, 0, len(b.Notes)-1)
	notes = append(notes, b.Notes[:j]...)
	b.Notes = append(notes, b.Notes[j+1:]...)
	return a.ReplaceBook(b)
}

// InsertBookmark appends a bookmark to one book.
func (a Aggregate) InsertBookmark(bookID string, bm entities.Bookmark) (Aggregate, bool) {
	i := a.Index(bookID)
	if i < 0 {
		return a, false
	}
	b := a.Books[i]
	marks := make([]entities.Bookmark, 0, len(b.Bookmarks)+1)
	marks = append(marks, b.Bookmarks...)
	b.Bookmarks = append(marks, bm)
	return a.ReplaceBook(b)
}

// DeleteBookmark removes a bookmark from one book.
func (a Aggregate) DeleteBookmark(bookID, bookmarkID string) (Aggregate, bool) {
	i := a.Index(bookID)
	if i < 0 {
		return a, false
	}
	b := a.Books[i]
	j := b.FindBookmark(bookmarkID)
	if j < 0 {
		return a, false
	}
	marks := make([]entities.Bookmark, 0, len(b.Bookmarks)-1)
	marks = append(marks, b.Bookmarks[:j]...)
	b.Bookmarks = append(marks, b.Bookmarks[j+1:]...)
	return a.ReplaceBook(b)
}

// WithView replaces the view state.
func (a Aggregate) WithView(v entities.ViewState) Aggregate {
	return Aggregate{Books: a.Books, View: v}
}
