package entities

import (
	"cmp"
	"slices"
	"time"
)

// Format identifies the document family and with it the renderer contract.
type Format string

const (
	FormatEPUB Format = "epub"
	FormatPDF  Format = "pdf"
	FormatMOBI Format = "mobi" // Reserved: accepted in data, no importer produces it
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	switch f {
	case FormatEPUB, FormatPDF, FormatMOBI:
		return true
	}
	return false
}

// ProgressKind returns the progress encoding used by books of this format.
func (f Format) ProgressKind() ProgressKind {
	if f == FormatPDF {
		return ProgressPaginated
	}
	return ProgressReflowable
}

// Missing-metadata fallbacks applied at import time.
const (
	UnknownTitle  = "Unknown Title"
	UnknownAuthor = "Unknown Author"
)

const DefaultScale = 1.0

// Book is one imported document plus all user state attached to it.
// Title and Author are fixed at import; (UserID, Title, Author) is unique.
type Book struct {
	ID            string       `gorm:"primaryKey;size:40" json:"id"`
	UserID        uint         `gorm:"uniqueIndex:idx_books_owner_title_author,priority:1;index" json:"-"`
	Title         string       `gorm:"uniqueIndex:idx_books_owner_title_author,priority:2;size:512" json:"title"`
	Author        string       `gorm:"uniqueIndex:idx_books_owner_title_author,priority:3;size:256" json:"author"`
	Cover         string       `gorm:"size:2048" json:"cover,omitempty"`
	CoverBlurHash string       `gorm:"size:64" json:"cover_blurhash,omitempty"`
	Format        Format       `gorm:"size:8" json:"format"`
	File          string       `gorm:"size:1024" json:"file"`
	Genre         string       `gorm:"size:128" json:"genre,omitempty"`
	Tags          []string     `gorm:"serializer:json;type:text" json:"tags"`
	Progress      Progress     `gorm:"embedded;embeddedPrefix:progress_" json:"progress"`
	Scale         float64      `gorm:"not null" json:"scale"`
	DateAdded     time.Time    `gorm:"index" json:"date_added"`
	LastReadAt    *time.Time   `json:"last_read_at,omitempty"`
	Notes         []Note       `gorm:"foreignKey:BookID" json:"notes"`
	Bookmarks     []Bookmark   `gorm:"foreignKey:BookID" json:"bookmarks"`
	Stats         ReadingStats `gorm:"foreignKey:BookID" json:"stats"`
	CreatedAt     time.Time    `json:"-"`
	UpdatedAt     time.Time    `gorm:"index" json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// Clone returns a copy whose slices do not alias b's.
func (b Book) Clone() Book {
	c := b
	if b.Tags != nil {
		c.Tags = append([]string(nil), b.Tags...)
	}
	c.Notes = append([]Note(nil), b.Notes...)
	c.Bookmarks = append([]Bookmark(nil), b.Bookmarks...)
	if b.LastReadAt != nil {
		t := *b.LastReadAt
		c.LastReadAt = &t
	}
	if b.Stats.LastSessionAt != nil {
		t := *b.Stats.LastSessionAt
		c.Stats.LastSessionAt = &t
	}
	return c
}

// SameIdentity reports whether two books collide on the duplicate key.
func (b Book) SameIdentity(title, author string) bool {
	return b.Title == title && b.Author == author
}

// FindNote returns the index of the note with the given id, or -1.
func (b Book) FindNote(noteID string) int {
	for i := range b.Notes {
		if b.Notes[i].ID == noteID {
			return i
		}
	}
	return -1
}

// FindBookmark returns the index of the bookmark with the given id, or -1.
func (b Book) FindBookmark(bookmarkID string) int {
	for i := range b.Bookmarks {
		if b.Bookmarks[i].ID == bookmarkID {
			return i
		}
	}
	return -1
}

// BookmarkAt returns the index of the bookmark placed at the marker, or -1.
func (b Book) BookmarkAt(m Marker) int {
	for i := range b.Bookmarks {
		if b.Bookmarks[i].Marker().Equal(m) {
			return i
		}
	}
	return -1
}

// SortedBookmarks lists bookmarks by page for paginated books and in
// insertion order otherwise.
func (b Book) SortedBookmarks() []Bookmark {
	marks := append([]Bookmark(nil), b.Bookmarks...)
	if b.Format.ProgressKind() == ProgressPaginated {
		slices.SortStableFunc(marks, func(x, y Bookmark) int { return cmp.Compare(x.Page, y.Page) })
	}
	return marks
}

// BookDraft is what the importer hands to the library: everything except
// server-assigned and user-generated state.
type BookDraft struct {
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Cover         string   `json:"cover,omitempty"`
	CoverBlurHash string   `json:"cover_blurhash,omitempty"`
	Format        Format   `json:"format"`
	File          string   `json:"file"`
	Genre         string   `json:"genre,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	TotalPages    int      `json:"total_pages,omitempty"`
}
