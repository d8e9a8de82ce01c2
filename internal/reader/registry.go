package reader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/id"
)

// LibraryFunc resolves the library an owner's sessions commit to.
type LibraryFunc func(ctx context.Context, owner uint) (Library, error)

// Registry tracks open sessions. There is at most one session per owner and
// book; opening a book twice returns the existing session.
type Registry struct {
	libraries LibraryFunc
	loader    Loader
	logger    *slog.Logger
	opts      []Option
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry. opts apply to every session.
func NewRegistry(libraries LibraryFunc, loader Loader, logger *slog.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		libraries: libraries,
		loader:    loader,
		logger:    logger,
		opts:      append([]Option{WithLogger(logger)}, opts...),
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

// Open returns a Ready session for the book, creating it if needed, and
// selects the book in the owner's library.
func (r *Registry) Open(ctx context.Context, owner uint, bookID string) (*Session, View, error) {
	lib, err := r.libraries(ctx, owner)
	if err != nil {
		return nil, View{}, err
	}

	r.mu.Lock()
	s := r.findLocked(owner, bookID)
	if s == nil {
		sid, err := id.Generate(id.PrefixSession)
		if err != nil {
			r.mu.Unlock()
			return nil, View{}, errors.Wrap(err, errors.CodeInternal, "generate session id")
		}
		s = NewSession(sid, owner, bookID, lib, r.loader, r.opts...)
		r.sessions[sid] = s
	}
	r.mu.Unlock()

	view, err := s.Open(ctx)
	if err != nil {
		r.forget(s)
		return nil, View{}, err
	}

	if err := lib.SetSelectedBook(bookID); err != nil {
		r.logger.Warn("selecting opened book failed", "book", bookID, "error", err)
	}
	return s, view, nil
}

func (r *Registry) findLocked(owner uint, bookID string) *Session {
	for _, s := range r.sessions {
		if s.owner == owner && s.bookID == bookID {
			return s
		}
	}
	return nil
}

// forget drops s unless a newer session has taken its place.
func (r *Registry) forget(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.sessions[s.id]; ok && cur == s {
		delete(r.sessions, s.id)
	}
}

// Get returns an owner's session by id.
func (r *Registry) Get(owner uint, sessionID string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok || s.owner != owner {
		return nil, errors.NotFoundf("reading session %s not found", sessionID)
	}
	return s, nil
}

// Close closes and forgets a session.
func (r *Registry) Close(ctx context.Context, owner uint, sessionID string) error {
	s, err := r.Get(owner, sessionID)
	if err != nil {
		return err
	}
	r.forget(s)
	return s.Close(ctx)
}

// CloseBook closes every session on a book, for use when the book is removed.
func (r *Registry) CloseBook(ctx context.Context, owner uint, bookID string) {
	for _, s := range r.take(func(s *Session) bool { return s.owner == owner && s.bookID == bookID }) {
		if err := s.Close(ctx); err != nil {
			r.logger.Warn("closing session failed", "session", s.id, "error", err)
		}
	}
}

// SweepIdle closes sessions untouched for longer than timeout and returns
// how many were closed.
func (r *Registry) SweepIdle(ctx context.Context, timeout time.Duration) int {
	cutoff := r.now().Add(-timeout)
	idle := r.take(func(s *Session) bool { return s.IdleSince().Before(cutoff) })
	for _, s := range idle {
		if err := s.Close(ctx); err != nil {
			r.logger.Warn("closing idle session failed", "session", s.id, "error", err)
		}
	}
	if len(idle) > 0 {
		r.logger.Info("closed idle reading sessions", "count", len(idle))
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx is done. A zero timeout disables it.
func (r *Registry) Run(ctx context.Context, timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	interval := timeout / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepIdle(ctx, timeout)
		}
	}
}

// CloseAll closes every session, flushing pending progress.
func (r *Registry) CloseAll(ctx context.Context) {
	for _, s := range r.take(func(*Session) bool { return true }) {
		if err := s.Close(ctx); err != nil {
			r.logger.Warn("closing session failed", "session", s.id, "error", err)
		}
	}
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) take(match func(*Session) bool) []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Session
	for sid, s := range r.sessions {
		if match(s) {
			out = append(out, s)
			delete(r.sessions, sid)
		}
	}
	return out
}
