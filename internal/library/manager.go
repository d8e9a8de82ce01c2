package library

import (
	"context"
	"log/slog"
	"sync"
)

// Manager hands out one Store per owner, initializing it on first use.
type Manager struct {
	repo      Repository
	projector *Projector
	logger    *slog.Logger
	opts      []Option

	mu     sync.Mutex
	stores map[uint]*Store
}

// NewManager creates a manager over a single repository.
func NewManager(repo Repository, projector *Projector, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		repo:      repo,
		projector: projector,
		logger:    logger,
		opts:      append([]Option{WithLogger(logger)}, opts...),
		stores:    make(map[uint]*Store),
	}
}

// Projector returns the shared projection engine.
func (m *Manager) Projector() *Projector {
	return m.projector
}

// Store returns the owner's store. The first call loads the library; a failed
// load is not cached, so the next call retries.
func (m *Manager) Store(ctx context.Context, owner uint) (*Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[owner]; ok {
		return s, nil
	}

	s := NewStore(m.repo, owner, m.opts...)
	if err := s.Initialize(ctx); err != nil {
		return nil, err
	}
	m.stores[owner] = s
	m.logger.Debug("library loaded", "owner", owner, "books", len(s.Snapshot().Books))
	return s, nil
}

// Loaded returns every store created so far.
func (m *Manager) Loaded() []*Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		out = append(out, s)
	}
	return out
}
