package library

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/id"
)

const (
	MinScale = 0.25
	MaxScale = 5.0
)

// Snapshot is the immutable library state published after every mutation.
// Callers must treat Books as read-only.
type Snapshot struct {
	Aggregate
	SelectedID string `json:"selected_id,omitempty"`
	Loading    bool   `json:"loading"`
	Error      string `json:"error,omitempty"`
}

// Book returns a copy of the book with the given id.
func (s *Snapshot) Book(bookID string) (entities.Book, bool) {
	if i := s.Index(bookID); i >= 0 {
		return s.Books[i].Clone(), true
	}
	return entities.Book{}, false
}

// Selected resolves the selected book by id at read time.
func (s *Snapshot) Selected() (entities.Book, bool) {
	if s.SelectedID == "" {
		return entities.Book{}, false
	}
	return s.Book(s.SelectedID)
}

// Project filters and sorts the books using the snapshot's view state.
func (s *Snapshot) Project(p *Projector) []entities.Book {
	return p.Project(s.Books, s.View.SearchQuery, s.View.SortBy, s.View.SortDirection)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for persistence failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store is the single source of truth for one owner's library.
type Store struct {
	repo   Repository
	owner  uint
	logger *slog.Logger
	now    func() time.Time

	mu   sync.Mutex // serializes mutations, including the persistence call
	snap atomic.Pointer[Snapshot]
}

// NewStore creates an empty store. Call Initialize to load persisted state.
func NewStore(repo Repository, owner uint, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		owner:  owner,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap.Store(&Snapshot{Aggregate: NewAggregate()})
	return s
}

// Owner returns the user id this store belongs to.
func (s *Store) Owner() uint {
	return s.owner
}

// Snapshot returns the current state without locking.
func (s *Store) Snapshot() *Snapshot {
	return s.snap.Load()
}

// publish installs next as the current snapshot. Caller holds s.mu.
func (s *Store) publish(next Snapshot) {
	s.snap.Store(&next)
}

// commit publishes the transition on success. On failure the previous
// collection stays and the error slot records the message.
func (s *Store) commit(cur *Snapshot, next Aggregate, op string, persistErr error) error {
	if persistErr != nil {
		err := errors.Persistence(persistErr, op)
		s.logger.Error("library persistence failed", "op", op, "owner", s.owner, "error", persistErr)
		failed := *cur
		failed.Error = err.Error()
		s.publish(failed)
		return err
	}

	ok := *cur
	ok.Aggregate = next
	ok.Error = ""
	s.publish(ok)
	return nil
}

// Initialize replaces the whole collection with the repository's contents.
// On failure the previous collection is kept and the error slot is set.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	loading := *cur
	loading.Loading = true
	s.publish(loading)

	agg, err := s.repo.LoadLibrary(ctx, s.owner)
	if err != nil {
		err = errors.Persistence(err, "load library")
		s.logger.Error("library load failed", "owner", s.owner, "error", err)
		failed := *cur
		failed.Loading = false
		failed.Error = err.Error()
		s.publish(failed)
		return err
	}

	if agg.Books == nil {
		agg.Books = []entities.Book{}
	}
	agg.View = agg.View.Normalize()

	next := Snapshot{Aggregate: agg, SelectedID: cur.SelectedID}
	if next.Index(next.SelectedID) < 0 {
		next.SelectedID = ""
	}
	s.publish(next)
	return nil
}

// AddBook creates a book from a draft and appends it to the collection.
// A draft colliding on (title, author) is rejected with ErrDuplicateBook.
func (s *Store) AddBook(ctx context.Context, draft entities.BookDraft) (entities.Book, error) {
	if !draft.Format.Valid() {
		return entities.Book{}, errors.Validationf("unknown format %q", draft.Format)
	}
	if draft.Title == "" || draft.Author == "" {
		return entities.Book{}, errors.Validation("title and author are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	if cur.HasIdentity(draft.Title, draft.Author) {
		return entities.Book{}, errors.DuplicateBook(draft.Title, draft.Author)
	}

	bookID, err := id.Generate(id.PrefixBook)
	if err != nil {
		return entities.Book{}, errors.Wrap(err, errors.CodeInternal, "generate book id")
	}

	tags := draft.Tags
	if tags == nil {
		tags = []string{}
	}
	book := entities.Book{
		ID:            bookID,
		UserID:        s.owner,
		Title:         draft.Title,
		Author:        draft.Author,
		Cover:         draft.Cover,
		CoverBlurHash: draft.CoverBlurHash,
		Format:        draft.Format,
		File:          draft.File,
		Genre:         draft.Genre,
		Tags:          tags,
		Progress:      entities.InitialProgress(draft.Format, draft.TotalPages),
		Scale:         entities.DefaultScale,
		DateAdded:     s.now(),
		Notes:         []entities.Note{},
		Bookmarks:     []entities.Bookmark{},
		Stats:         entities.ReadingStats{BookID: bookID},
	}

	persistErr := s.repo.InsertBook(ctx, s.owner, book)
	if err := s.commit(cur, cur.InsertBook(book), "insert book", persistErr); err != nil {
		return entities.Book{}, err
	}
	return book.Clone(), nil
}

// RemoveBook deletes a book and its annotations. Removing an unknown id is a
// no-op. Removing the selected book clears the selection.
func (s *Store) RemoveBook(ctx context.Context, bookID string) (entities.Book, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	i := cur.Index(bookID)
	if i < 0 {
		return entities.Book{}, false, nil
	}
	removed := cur.Books[i].Clone()

	persistErr := s.repo.DeleteBook(ctx, s.owner, bookID)
	if persistErr != nil {
		return entities.Book{}, false, s.commit(cur, cur.Aggregate, "delete book", persistErr)
	}

	next := *cur
	next.Aggregate = cur.DeleteBook(bookID)
	next.Error = ""
	if next.SelectedID == bookID {
		next.SelectedID = ""
	}
	s.publish(next)
	return removed, true, nil
}

// SetSelectedBook marks a book as open. An empty id clears the selection.
func (s *Store) SetSelectedBook(bookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	if bookID != "" && cur.Index(bookID) < 0 {
		return errors.NotFoundf("book %s not found", bookID)
	}
	next := *cur
	next.SelectedID = bookID
	s.publish(next)
	return nil
}

// UpdateBookProgress merges progress into the book and stamps LastReadAt.
// Each call overwrites the previous position.
func (s *Store) UpdateBookProgress(ctx context.Context, bookID string, progress entities.Progress) (entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	i := cur.Index(bookID)
	if i < 0 {
		return entities.Book{}, errors.NotFoundf("book %s not found", bookID)
	}
	book := cur.Books[i]

	merged, err := book.Progress.Merge(progress)
	if err != nil {
		return entities.Book{}, err
	}
	readAt := s.now()
	if book.LastReadAt != nil && !readAt.After(*book.LastReadAt) {
		readAt = book.LastReadAt.Add(time.Nanosecond)
	}

	update := BookUpdate{Progress: &merged, LastReadAt: &readAt}
	return s.updateBook(ctx, cur, bookID, update, "update progress")
}

// UpdateBookScale stores the zoom factor for paginated rendering.
func (s *Store) UpdateBookScale(ctx context.Context, bookID string, scale float64) (entities.Book, error) {
	if scale < MinScale || scale > MaxScale {
		return entities.Book{}, errors.Validationf("scale %v out of range [%v, %v]", scale, MinScale, MaxScale)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	if cur.Index(bookID) < 0 {
		return entities.Book{}, errors.NotFoundf("book %s not found", bookID)
	}
	return s.updateBook(ctx, cur, bookID, BookUpdate{Scale: &scale}, "update scale")
}

// SetBookGenre replaces the book's genre. An empty genre clears it.
func (s *Store) SetBookGenre(ctx context.Context, bookID, genre string) (entities.Book, error) {
	genre = strings.TrimSpace(genre)

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	if cur.Index(bookID) < 0 {
		return entities.Book{}, errors.NotFoundf("book %s not found", bookID)
	}
	return s.updateBook(ctx, cur, bookID, BookUpdate{Genre: &genre}, "update genre")
}

// RecordReadingSession folds a closed reading session into the book's stats.
func (s *Store) RecordReadingSession(ctx context.Context, bookID string, delta entities.SessionDelta) (entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	i := cur.Index(bookID)
	if i < 0 {
		return entities.Book{}, errors.NotFoundf("book %s not found", bookID)
	}
	stats := cur.Books[i].Stats.Add(delta)
	stats.BookID = bookID
	return s.updateBook(ctx, cur, bookID, BookUpdate{Stats: &stats}, "record reading session")
}

func (s *Store) updateBook(ctx context.Context, cur *Snapshot, bookID string, update BookUpdate, op string) (entities.Book, error) {
	next, _ := cur.UpdateBook(bookID, update)
	persistErr := s.repo.UpdateBook(ctx, s.owner, bookID, update)
	if err := s.commit(cur, next, op, persistErr); err != nil {
		return entities.Book{}, err
	}
	book, _ := s.snap.Load().Book(bookID)
	return book, nil
}

// AddNote appends a note with its content as written. Blank content is
// rejected. An unknown book is a
// silent no-op and returns a zero Note.
func (s *Store) AddNote(ctx context.Context, bookID string, draft entities.NoteDraft) (entities.Note, error) {
	content := draft.Content
	if strings.TrimSpace(content) == "" {
		return entities.Note{}, errors.Validation("note content must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	i := cur.Index(bookID)
	if i < 0 {
		return entities.Note{}, nil
	}

	noteID, err := id.Generate(id.PrefixNote)
	if err != nil {
		return entities.Note{}, errors.Wrap(err, errors.CodeInternal, "generate note id")
	}
	seq := 1
	if notes := cur.Books[i].Notes; len(notes) > 0 {
		seq = notes[len(notes)-1].Seq + 1
	}
	note := entities.Note{
		ID:        noteID,
		BookID:    bookID,
		Content:   content,
		Location:  strings.TrimSpace(draft.Location),
		Seq:       seq,
		CreatedAt: s.now(),
	}

	next, _ := cur.InsertNote(bookID, note)
	persistErr := s.repo.InsertNote(ctx, s.owner, bookID, note)
	if err := s.commit(cur, next, "insert note", persistErr); err != nil {
		return entities.Note{}, err
	}
	return note, nil
}

// EditNote replaces a note's content only. Unknown book or note ids are a
// silent no-op.
func (s *Store) EditNote(ctx context.Context, bookID, noteID, content string) (bool, error) {
	if strings.TrimSpace(content) == "" {
		return false, errors.Validation("note content must not be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	next, ok := cur.UpdateNote(bookID, noteID, content)
	if !ok {
		return false, nil
	}
	persistErr := s.repo.UpdateNote(ctx, s.owner, bookID, noteID, content)
	if err := s.commit(cur, next, "update note", persistErr); err != nil {
		return false, err
	}
	return true, nil
}

// RemoveNote deletes a note. Unknown ids are a silent no-op.
func (s *Store) RemoveNote(ctx context.Context, bookID, noteID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	next, ok := cur.DeleteNote(bookID, noteID)
	if !ok {
		return false, nil
	}
	persistErr := s.repo.DeleteNote(ctx, s.owner, bookID, noteID)
	if err := s.commit(cur, next, "delete note", persistErr); err != nil {
		return false, err
	}
	return true, nil
}

// AddBookmark places a bookmark at the marker. If one already exists there it
// is returned unchanged. An unknown book is a silent no-op.
func (s *Store) AddBookmark(ctx context.Context, bookID string, at entities.Marker, note string) (entities.Bookmark, error) {
	if at.IsZero() {
		return entities.Bookmark{}, errors.Validation("bookmark needs a page or a location")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	i := cur.Index(bookID)
	if i < 0 {
		return entities.Bookmark{}, nil
	}
	book := cur.Books[i]
	if j := book.BookmarkAt(at); j >= 0 {
		return book.Bookmarks[j], nil
	}
	return s.insertBookmark(ctx, cur, book, at, note)
}

// ToggleBookmark removes the bookmark at the marker if present, otherwise adds
// one. Reports whether a bookmark was added.
func (s *Store) ToggleBookmark(ctx context.Context, bookID string, at entities.Marker, note string) (entities.Bookmark, bool, error) {
	if at.IsZero() {
		return entities.Bookmark{}, false, errors.Validation("bookmark needs a page or a location")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	i := cur.Index(bookID)
	if i < 0 {
		return entities.Bookmark{}, false, errors.NotFoundf("book %s not found", bookID)
	}
	book := cur.Books[i]

	if j := book.BookmarkAt(at); j >= 0 {
		existing := book.Bookmarks[j]
		next, _ := cur.DeleteBookmark(bookID, existing.ID)
		persistErr := s.repo.DeleteBookmark(ctx, s.owner, bookID, existing.ID)
		if err := s.commit(cur, next, "delete bookmark", persistErr); err != nil {
			return entities.Bookmark{}, false, err
		}
		return existing, false, nil
	}

	bm, err := s.insertBookmark(ctx, cur, book, at, note)
	if err != nil {
		return entities.Bookmark{}, false, err
	}
	return bm, true, nil
}

func (s *Store) insertBookmark(ctx context.Context, cur *Snapshot, book entities.Book, at entities.Marker, note string) (entities.Bookmark, error) {
	bmID, err := id.Generate(id.PrefixBookmark)
	if err != nil {
		return entities.Bookmark{}, errors.Wrap(err, errors.CodeInternal, "generate bookmark id")
	}
	seq := 1
	if marks := book.Bookmarks; len(marks) > 0 {
		seq = marks[len(marks)-1].Seq + 1
	}
	bm := entities.Bookmark{
		ID:        bmID,
		BookID:    book.ID,
		Page:      at.Page,
		Location:  at.Location,
		Note:      strings.TrimSpace(note),
		Seq:       seq,
		CreatedAt: s.now(),
	}

	next, _ := cur.InsertBookmark(book.ID, bm)
	persistErr := s.repo.InsertBookmark(ctx, s.owner, book.ID, bm)
	if err := s.commit(cur, next, "insert bookmark", persistErr); err != nil {
		return entities.Bookmark{}, err
	}
	return bm, nil
}

// RemoveBookmark deletes a bookmark. Unknown ids are a silent no-op.
func (s *Store) RemoveBookmark(ctx context.Context, bookID, bookmarkID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	next, ok := cur.DeleteBookmark(bookID, bookmarkID)
	if !ok {
		return false, nil
	}
	persistErr := s.repo.DeleteBookmark(ctx, s.owner, bookID, bookmarkID)
	if err := s.commit(cur, next, "delete bookmark", persistErr); err != nil {
		return false, err
	}
	return true, nil
}

// ViewPatch carries optional view-state assignments.
type ViewPatch struct {
	View          *entities.ViewMode
	Theme         *entities.Theme
	SearchQuery   *string
	SortBy        *entities.SortField
	SortDirection *entities.SortDirection
}

// UpdateView applies every set field of the patch in one transition.
func (s *Store) UpdateView(ctx context.Context, patch ViewPatch) (entities.ViewState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.snap.Load()
	view := cur.View
	if patch.View != nil {
		if !patch.View.Valid() {
			return cur.View, errors.Validationf("unknown view %q", *patch.View)
		}
		view.View = *patch.View
	}
	if patch.Theme != nil {
		if !patch.Theme.Valid() {
			return cur.View, errors.Validationf("unknown theme %q", *patch.Theme)
		}
		view.Theme = *patch.Theme
	}
	if patch.SearchQuery != nil {
		view.SearchQuery = *patch.SearchQuery
	}
	if patch.SortBy != nil {
		if !patch.SortBy.Valid() {
			return cur.View, errors.Validationf("unknown sort field %q", *patch.SortBy)
		}
		view.SortBy = *patch.SortBy
	}
	if patch.SortDirection != nil {
		if !patch.SortDirection.Valid() {
			return cur.View, errors.Validationf("unknown sort direction %q", *patch.SortDirection)
		}
		view.SortDirection = *patch.SortDirection
	}

	persistErr := s.repo.SaveViewState(ctx, s.owner, view)
	if err := s.commit(cur, cur.WithView(view), "save view state", persistErr); err != nil {
		return cur.View, err
	}
	return view, nil
}

func (s *Store) SetView(ctx context.Context, v entities.ViewMode) error {
	_, err := s.UpdateView(ctx, ViewPatch{View: &v})
	return err
}

func (s *Store) SetTheme(ctx context.Context, t entities.Theme) error {
	_, err := s.UpdateView(ctx, ViewPatch{Theme: &t})
	return err
}

func (s *Store) SetSearchQuery(ctx context.Context, q string) error {
	_, err := s.UpdateView(ctx, ViewPatch{SearchQuery: &q})
	return err
}

func (s *Store) SetSortBy(ctx context.Context, f entities.SortField) error {
	_, err := s.UpdateView(ctx, ViewPatch{SortBy: &f})
	return err
}

func (s *Store) SetSortDirection(ctx context.Context, d entities.SortDirection) error {
	_, err := s.UpdateView(ctx, ViewPatch{SortDirection: &d})
	return err
}
