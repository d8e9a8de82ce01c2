// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// MaintenanceScheduler runs its jobs in order on every tick.
type MaintenanceScheduler struct {
	schedule string
	jobs     []Job
	logger   *slog.Logger

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	runMu     sync.Mutex
}

// NewMaintenanceScheduler creates a stopped scheduler.
func NewMaintenanceScheduler(schedule string, logger *slog.Logger, jobs ...Job) *MaintenanceScheduler {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceScheduler{
		schedule: schedule,
		jobs:     jobs,
		logger:   logger,
		cron:     cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the jobs and stops the scheduler when ctx is done.
func (s *MaintenanceScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if len(s.jobs) == 0 {
		s.logger.Info("Maintenance scheduler: no jobs configured")
		return nil
	}
	if err := ValidateCronSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		s.RunNow(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	next, _ := NextRunTime(s.schedule, time.Now())
	s.logger.Info("Maintenance scheduler started", "schedule", s.schedule, "jobs", len(s.jobs), "next_run", next)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop waits for a running tick to finish.
func (s *MaintenanceScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}
	<-s.cron.Stop().Done()
	s.cron.Remove(s.entryID)
	s.isRunning = false
	s.logger.Info("Maintenance scheduler stopped")
}

// RunNow runs every job once. A failing job does not stop the others.
// Overlapping runs are serialized.
func (s *MaintenanceScheduler) RunNow(ctx context.Context) []error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	var errs []error
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Error("Maintenance job failed", "job", job.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", job.Name(), err))
			continue
		}
		s.logger.Debug("Maintenance job finished", "job", job.Name(), "duration", time.Since(start))
	}
	return errs
}

// IsRunning returns whether the scheduler is active.
func (s *MaintenanceScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when maintenance next runs, or nil when stopped.
func (s *MaintenanceScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}
