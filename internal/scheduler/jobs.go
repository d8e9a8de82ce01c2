package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrlokans/bookshelf/internal/storage"
)

// Job is one unit of periodic maintenance.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// ValueLogCollector is implemented by the badger snapshot repository.
type ValueLogCollector interface {
	RunGC(discardRatio float64) (int, error)
}

// ValueLogGCJob reclaims badger value log space.
type ValueLogGCJob struct {
	Collector    ValueLogCollector
	DiscardRatio float64
	Logger       *slog.Logger
}

func (j *ValueLogGCJob) Name() string { return "value_log_gc" }

func (j *ValueLogGCJob) Run(ctx context.Context) error {
	ratio := j.DiscardRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	rounds, err := j.Collector.RunGC(ratio)
	if err != nil {
		return fmt.Errorf("value log gc: %w", err)
	}
	orDefault(j.Logger).Info("Value log GC finished", "rounds", rounds)
	return nil
}

// ReferenceSource lists every file a library still points at.
type ReferenceSource interface {
	ReferencedFiles(ctx context.Context) (map[string]bool, error)
}

// OrphanSweepJob deletes stored documents no book references. Files
// younger than Grace are kept so an import in progress is not swept.
type OrphanSweepJob struct {
	Files  storage.Client
	Refs   ReferenceSource
	Grace  time.Duration
	Logger *slog.Logger
	Now    func() time.Time
}

func (j *OrphanSweepJob) Name() string { return "orphan_sweep" }

func (j *OrphanSweepJob) Run(ctx context.Context) error {
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}

	refs, err := j.Refs.ReferencedFiles(ctx)
	if err != nil {
		return fmt.Errorf("load referenced files: %w", err)
	}
	files, err := storage.ListRecursive(ctx, j.Files, "")
	if err != nil {
		return fmt.Errorf("list stored files: %w", err)
	}

	deleted := 0
	for _, f := range storage.FilterFiles(files, storage.OlderThan(now().Add(-j.Grace))) {
		if refs[f.Path] {
			continue
		}
		if err := j.Files.Delete(ctx, f.Path); err != nil {
			orDefault(j.Logger).Warn("Failed to delete orphaned file", "path", f.Path, "error", err)
			continue
		}
		deleted++
	}
	orDefault(j.Logger).Info("Orphan sweep finished", "scanned", len(files), "deleted", deleted)
	return nil
}

func orDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
