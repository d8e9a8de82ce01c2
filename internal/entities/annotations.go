package entities

import "time"

// Note is a user annotation. Only Content changes after creation.
type Note struct {
	ID        string    `gorm:"primaryKey;size:40" json:"id"`
	BookID    string    `gorm:"index;size:40" json:"-"`
	Content   string    `gorm:"type:text" json:"content"`
	Location  string    `gorm:"size:256" json:"location,omitempty"`
	Seq       int       `json:"-"` // Insertion order within the book
	CreatedAt time.Time `json:"created_at"`
}

func (Note) TableName() string {
	return "notes"
}

// NoteDraft carries the caller-provided part of a new note.
type NoteDraft struct {
	Content  string `json:"content"`
	Location string `json:"location,omitempty"`
}

// Marker is a bookmark position: a page for paginated books, an opaque
// location for reflowable ones.
type Marker struct {
	Page     int    `json:"page,omitempty"`
	Location string `json:"location,omitempty"`
}

func (m Marker) Equal(o Marker) bool {
	return m.Page == o.Page && m.Location == o.Location
}

func (m Marker) IsZero() bool {
	return m.Page == 0 && m.Location == ""
}

// Bookmark is a position marker with an optional short note. No edit path.
type Bookmark struct {
	ID        string    `gorm:"primaryKey;size:40" json:"id"`
	BookID    string    `gorm:"index;size:40" json:"-"`
	Page      int       `json:"page,omitempty"`
	Location  string    `gorm:"size:1024" json:"location,omitempty"`
	Note      string    `gorm:"size:512" json:"note,omitempty"`
	Seq       int       `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

func (b Bookmark) Marker() Marker {
	return Marker{Page: b.Page, Location: b.Location}
}

// ReadingStats accumulates closed reading sessions for one book.
type ReadingStats struct {
	BookID        string     `gorm:"primaryKey;size:40" json:"-"`
	Sessions      int        `json:"sessions"`
	SecondsRead   int64      `json:"seconds_read"`
	PositionsSeen int        `json:"positions_seen"`
	LastSessionAt *time.Time `json:"last_session_at,omitempty"`
	UpdatedAt     time.Time  `json:"-"`
}

func (ReadingStats) TableName() string {
	return "reading_stats"
}

// SessionDelta is what one closed reading session contributes to stats.
type SessionDelta struct {
	Duration      time.Duration
	PositionsSeen int
	EndedAt       time.Time
}

// Add folds a session into the totals.
func (s ReadingStats) Add(d SessionDelta) ReadingStats {
	s.Sessions++
	s.SecondsRead += int64(d.Duration.Seconds())
	s.PositionsSeen += d.PositionsSeen
	ended := d.EndedAt
	s.LastSessionAt = &ended
	return s
}
