// Package reader implements the Reading Session: transient state for one
// open book that drives a renderer and commits progress back to the library.
//
// A session moves Closed → Opening → Ready → Closed. Closing discards all
// session-local state; progress, bookmarks and stats live in the library.
package reader

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/renderer"
)

// State is the session lifecycle state.
type State string

const (
	StateClosed  State = "closed"
	StateOpening State = "opening"
	StateReady   State = "ready"
)

// commitTimeout bounds a debounced progress write that has no caller context.
const commitTimeout = 10 * time.Second

// Library is the part of library.Store a session commits to.
type Library interface {
	Snapshot() *library.Snapshot
	SetSelectedBook(bookID string) error
	UpdateBookProgress(ctx context.Context, bookID string, progress entities.Progress) (entities.Book, error)
	UpdateBookScale(ctx context.Context, bookID string, scale float64) (entities.Book, error)
	RecordReadingSession(ctx context.Context, bookID string, delta entities.SessionDelta) (entities.Book, error)
	ToggleBookmark(ctx context.Context, bookID string, at entities.Marker, note string) (entities.Bookmark, bool, error)
}

var _ Library = (*library.Store)(nil)

// Loader acquires and opens the document behind a book.
type Loader interface {
	Load(ctx context.Context, book entities.Book) (renderer.Document, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, book entities.Book) (renderer.Document, error)

func (f LoaderFunc) Load(ctx context.Context, book entities.Book) (renderer.Document, error) {
	return f(ctx, book)
}

// View is a point-in-time copy of session state.
type View struct {
	ID            string              `json:"id"`
	BookID        string              `json:"book_id"`
	State         State               `json:"state"`
	Format        entities.Format     `json:"format,omitempty"`
	Position      renderer.Position   `json:"position"`
	Fraction      float64             `json:"fraction"`
	PageCount     int                 `json:"page_count,omitempty"`
	LocationCount int                 `json:"location_count"`
	TOC           []renderer.TOCEntry `json:"toc"`
	Settings      Settings            `json:"settings"`
	Scale         float64             `json:"scale"`
	Pending       bool                `json:"pending"` // A progress write is waiting on the debounce
	OpenedAt      *time.Time          `json:"opened_at,omitempty"`
}

// Session is one open book.
type Session struct {
	id       string
	owner    uint
	bookID   string
	lib      Library
	loader   Loader
	logger   *slog.Logger
	now      func() time.Time
	debounce time.Duration

	mu           sync.Mutex
	state        State
	gen          uint64 // Bumped on every open and close; stale async work compares it
	doc          renderer.Document
	layout       renderer.Layout
	format       entities.Format
	position     renderer.Position
	fraction     float64
	settings     Settings
	pending      *entities.Progress
	timer        *time.Timer
	visited      map[renderer.Position]struct{}
	openedAt     time.Time
	lastActivity time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithDebounce sets how long navigation must settle before progress is
// written. Zero writes on every accepted navigation.
func WithDebounce(d time.Duration) Option {
	return func(s *Session) { s.debounce = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates a Closed session for a book.
func NewSession(id string, owner uint, bookID string, lib Library, loader Loader, opts ...Option) *Session {
	s := &Session{
		id:       id,
		owner:    owner,
		bookID:   bookID,
		lib:      lib,
		loader:   loader,
		logger:   slog.Default(),
		now:      time.Now,
		state:    StateClosed,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastActivity = s.now()
	return s
}

func (s *Session) ID() string     { return s.id }
func (s *Session) Owner() uint    { return s.owner }
func (s *Session) BookID() string { return s.bookID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IdleSince returns the time of the last call that touched the session.
func (s *Session) IdleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Open acquires the document and enters Ready. Opening an already open
// session is a no-op. If Close runs while the document is loading, the late
// result is discarded and Open returns SESSION_CLOSED.
func (s *Session) Open(ctx context.Context) (View, error) {
	s.mu.Lock()
	if s.state != StateClosed {
		v := s.viewLocked()
		s.mu.Unlock()
		return v, nil
	}
	book, ok := s.lib.Snapshot().Book(s.bookID)
	if !ok {
		s.mu.Unlock()
		return View{}, errors.NotFoundf("book %s not found", s.bookID)
	}
	s.gen++
	gen := s.gen
	s.state = StateOpening
	s.lastActivity = s.now()
	s.mu.Unlock()

	// Acquisition runs without the lock so Close can interrupt it.
	doc, err := s.loader.Load(ctx, book)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		if doc != nil {
			doc.Close()
		}
		s.logger.Debug("discarding superseded open", "session", s.id, "book", s.bookID)
		return View{}, errors.Wrapf(errors.ErrSessionClosed, errors.CodeSessionClosed, "session %s was closed while opening", s.id)
	}
	if err != nil {
		s.state = StateClosed
		return View{}, err
	}

	s.doc = doc
	s.layout = doc.Layout()
	s.format = doc.Format()
	s.visited = make(map[renderer.Position]struct{})
	s.openedAt = s.now()
	s.state = StateReady

	resume := resumePosition(book.Progress)
	if _, err := s.doc.LocationFromPosition(resume); err != nil {
		s.logger.Warn("stored position rejected, starting at beginning",
			"session", s.id, "book", s.bookID, "position", resume.String(), "error", err)
		resume = renderer.Position{}
	}
	s.position, s.fraction = s.canonical(resume)
	s.visited[s.position] = struct{}{}

	s.logger.Info("reading session opened",
		"session", s.id,
		"book", s.bookID,
		"format", s.format,
		"locations", s.layout.LocationCount(),
	)
	return s.viewLocked(), nil
}

// resumePosition maps stored progress onto a renderer position.
func resumePosition(p entities.Progress) renderer.Position {
	switch p.Kind {
	case entities.ProgressPaginated:
		if p.CurrentPage > 0 {
			return renderer.Position{Page: p.CurrentPage}
		}
	case entities.ProgressReflowable:
		if p.Location != "" {
			return renderer.Position{Location: p.Location}
		}
	}
	return renderer.Position{}
}

// canonical returns the single representation of a validated position:
// pages for paginated documents, spine locations for reflowable ones.
// Caller holds s.mu and has validated pos.
func (s *Session) canonical(pos renderer.Position) (renderer.Position, float64) {
	fraction, _ := s.doc.LocationFromPosition(pos)
	if s.layout.PageCount > 0 {
		page := pos.Page
		if pos.Location != "" {
			page, _ = strconv.Atoi(pos.Location)
		}
		if page == 0 {
			page = 1
		}
		return renderer.Position{Page: page}, fraction
	}
	if pos.Location == "" && len(s.layout.Locations) > 0 {
		i := 0
		if pos.Page > 0 {
			i = pos.Page - 1
		}
		return renderer.Position{Location: s.layout.Locations[i]}, fraction
	}
	return renderer.Position{Location: pos.Location}, fraction
}

func (s *Session) progressLocked() entities.Progress {
	if s.layout.PageCount > 0 {
		return entities.PageOf(s.position.Page, s.layout.PageCount)
	}
	return entities.ReflowableAt(s.position.Location, s.fraction)
}

func (s *Session) requireReady() error {
	switch s.state {
	case StateReady:
		return nil
	case StateOpening:
		return errors.Validationf("session %s is still opening", s.id)
	default:
		return errors.Wrapf(errors.ErrSessionClosed, errors.CodeSessionClosed, "session %s is closed", s.id)
	}
}

// Navigate moves to pos. A position the renderer rejects is logged and
// ignored: the session keeps its last good position and accepted is false.
func (s *Session) Navigate(ctx context.Context, pos renderer.Position) (view View, accepted bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return View{}, false, err
	}
	s.lastActivity = s.now()

	if _, err := s.doc.LocationFromPosition(pos); err != nil {
		s.logger.Warn("rejected renderer location",
			"session", s.id, "book", s.bookID, "position", pos.String(), "error", err)
		return s.viewLocked(), false, nil
	}

	next, fraction := s.canonical(pos)
	if next == s.position {
		return s.viewLocked(), true, nil
	}
	s.position, s.fraction = next, fraction
	s.visited[next] = struct{}{}

	progress := s.progressLocked()
	s.pending = &progress
	if s.debounce <= 0 {
		s.commitLocked(ctx)
	} else if s.timer == nil {
		gen := s.gen
		s.timer = time.AfterFunc(s.debounce, func() { s.flushFromTimer(gen) })
	} else {
		s.timer.Reset(s.debounce)
	}
	return s.viewLocked(), true, nil
}

// ReportLocation accepts an untyped renderer callback: a JSON string
// location or an integral page number. Anything else is rejected like an
// unknown position.
func (s *Session) ReportLocation(ctx context.Context, raw json.RawMessage) (View, bool, error) {
	pos, ok := parseRawLocation(raw)
	if !ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		if err := s.requireReady(); err != nil {
			return View{}, false, err
		}
		s.logger.Warn("rejected malformed renderer location",
			"session", s.id, "book", s.bookID, "raw", string(raw))
		return s.viewLocked(), false, nil
	}
	return s.Navigate(ctx, pos)
}

func parseRawLocation(raw json.RawMessage) (renderer.Position, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return renderer.Position{}, false
	}
	switch t := v.(type) {
	case string:
		if t == "" {
			return renderer.Position{}, false
		}
		return renderer.Position{Location: t}, true
	case float64:
		if t != math.Trunc(t) || t < 1 || t > math.MaxInt32 {
			return renderer.Position{}, false
		}
		return renderer.Position{Page: int(t)}, true
	}
	return renderer.Position{}, false
}

func (s *Session) flushFromTimer(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state != StateReady {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), commitTimeout)
	defer cancel()
	s.commitLocked(ctx)
}

// commitLocked writes pending progress. Failures stay in the library's
// error slot; the session position is not rolled back.
func (s *Session) commitLocked(ctx context.Context) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.pending == nil {
		return
	}
	progress := *s.pending
	s.pending = nil
	if _, err := s.lib.UpdateBookProgress(ctx, s.bookID, progress); err != nil {
		s.logger.Error("progress commit failed", "session", s.id, "book", s.bookID, "error", err)
	}
}

// Flush writes any debounced progress now.
func (s *Session) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return err
	}
	s.commitLocked(ctx)
	return nil
}

// RenderPage renders the current position. The renderer runs without the
// session lock; a result that arrives after Close is discarded.
func (s *Session) RenderPage(ctx context.Context) (renderer.Page, error) {
	s.mu.Lock()
	if err := s.requireReady(); err != nil {
		s.mu.Unlock()
		return renderer.Page{}, err
	}
	doc, pos, gen := s.doc, s.position, s.gen
	s.lastActivity = s.now()
	s.mu.Unlock()

	scale := entities.DefaultScale
	if book, ok := s.lib.Snapshot().Book(s.bookID); ok {
		scale = book.Scale
	}

	page, err := doc.RenderPage(ctx, pos, scale)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return renderer.Page{}, errors.Wrapf(errors.ErrSessionClosed, errors.CodeSessionClosed, "session %s was closed while rendering", s.id)
	}
	return page, err
}

// UpdateSettings applies a settings patch. Zoom goes straight to the book.
func (s *Session) UpdateSettings(ctx context.Context, patch SettingsPatch) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireReady(); err != nil {
		return View{}, err
	}
	s.lastActivity = s.now()

	next, err := patch.apply(s.settings)
	if err != nil {
		return View{}, err
	}
	if patch.Scale != nil {
		if _, err := s.lib.UpdateBookScale(ctx, s.bookID, *patch.Scale); err != nil {
			return View{}, err
		}
	}
	s.settings = next
	return s.viewLocked(), nil
}

// Marker returns the bookmark marker for the current position.
func (s *Session) Marker() (entities.Marker, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireReady(); err != nil {
		return entities.Marker{}, err
	}
	return entities.Marker{Page: s.position.Page, Location: s.position.Location}, nil
}

// ToggleBookmark adds or removes a bookmark at the current position.
func (s *Session) ToggleBookmark(ctx context.Context, note string) (entities.Bookmark, bool, error) {
	at, err := s.Marker()
	if err != nil {
		return entities.Bookmark{}, false, err
	}
	return s.lib.ToggleBookmark(ctx, s.bookID, at, note)
}

// Close flushes pending progress, records reading stats and discards all
// session-local state. It is safe while Open is still in flight and closing
// a closed session is a no-op.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return nil
	}
	wasReady := s.state == StateReady
	s.gen++

	if wasReady {
		s.commitLocked(ctx)

		end := s.now()
		delta := entities.SessionDelta{
			Duration:      end.Sub(s.openedAt),
			PositionsSeen: len(s.visited),
			EndedAt:       end,
		}
		if _, err := s.lib.RecordReadingSession(ctx, s.bookID, delta); err != nil && !errors.Is(err, errors.ErrNotFound) {
			s.logger.Error("recording reading stats failed", "session", s.id, "book", s.bookID, "error", err)
		}
		if err := s.doc.Close(); err != nil {
			s.logger.Warn("closing document failed", "session", s.id, "error", err)
		}
		s.logger.Info("reading session closed",
			"session", s.id,
			"book", s.bookID,
			"duration", delta.Duration.Round(time.Second),
			"positions", delta.PositionsSeen,
		)
	}

	s.state = StateClosed
	s.doc = nil
	s.layout = renderer.Layout{}
	s.format = ""
	s.position = renderer.Position{}
	s.fraction = 0
	s.settings = DefaultSettings()
	s.pending = nil
	s.visited = nil
	s.openedAt = time.Time{}
	return nil
}

// View returns a copy of the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	v := View{
		ID:            s.id,
		BookID:        s.bookID,
		State:         s.state,
		Format:        s.format,
		Position:      s.position,
		Fraction:      s.fraction,
		PageCount:     s.layout.PageCount,
		LocationCount: s.layout.LocationCount(),
		TOC:           s.layout.TOC,
		Settings:      s.settings,
		Scale:         entities.DefaultScale,
		Pending:       s.pending != nil,
	}
	if v.TOC == nil {
		v.TOC = []renderer.TOCEntry{}
	}
	if !s.openedAt.IsZero() {
		t := s.openedAt
		v.OpenedAt = &t
	}
	if book, ok := s.lib.Snapshot().Book(s.bookID); ok {
		v.Scale = book.Scale
	}
	return v
}
