package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/storage"
)

// PurgeBookFilesTask deletes the stored bytes of a removed book.
type PurgeBookFilesTask struct {
	BookID string `json:"book_id"`
	File   string `json:"file"`
	Cover  string `json:"cover,omitempty"`
}

// Config returns the queue configuration for purge tasks.
func (t PurgeBookFilesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "purge_book_files",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// PurgeBookFilesProcessor creates a processor function for PurgeBookFilesTask.
func PurgeBookFilesProcessor(files storage.Client, coverCache *covers.Cache, logger *slog.Logger) backlite.QueueProcessor[PurgeBookFilesTask] {
	return func(ctx context.Context, task PurgeBookFilesTask) error {
		return purgeBookFiles(ctx, files, coverCache, logger, task)
	}
}

// NewPurgeBookFilesQueue creates a backlite queue for purge tasks.
func NewPurgeBookFilesQueue(files storage.Client, coverCache *covers.Cache, logger *slog.Logger) backlite.Queue {
	return backlite.NewQueue(PurgeBookFilesProcessor(files, coverCache, logger))
}

func purgeBookFiles(ctx context.Context, files storage.Client, coverCache *covers.Cache, logger *slog.Logger, task PurgeBookFilesTask) error {
	if task.File != "" && files != nil {
		if err := files.Delete(ctx, task.File); err != nil {
			return fmt.Errorf("delete document %s: %w", task.File, err)
		}
	}
	if coverCache != nil {
		if err := coverCache.Remove(task.Cover); err != nil {
			return fmt.Errorf("delete cover %s: %w", task.Cover, err)
		}
		if err := coverCache.InvalidateCover(task.BookID); err != nil {
			return fmt.Errorf("invalidate cached cover for %s: %w", task.BookID, err)
		}
	}
	logger.Info("Purged book files", "book", task.BookID, "file", task.File)
	return nil
}

// Purger removes the files of deleted books, through the task queue when
// one is configured and inline otherwise.
type Purger struct {
	client *Client
	files  storage.Client
	covers *covers.Cache
	logger *slog.Logger
}

// NewPurger creates a purger. client may be nil.
func NewPurger(client *Client, files storage.Client, coverCache *covers.Cache, logger *slog.Logger) *Purger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{client: client, files: files, covers: coverCache, logger: logger}
}

// Queue returns the purge queue to register on the task client.
func (p *Purger) Queue() backlite.Queue {
	return NewPurgeBookFilesQueue(p.files, p.covers, p.logger)
}

// PurgeBook schedules deletion of a removed book's document and cover.
// Failures are logged; the book is already gone from the library.
func (p *Purger) PurgeBook(ctx context.Context, book entities.Book) {
	task := PurgeBookFilesTask{BookID: book.ID, File: book.File, Cover: book.Cover}

	if p.client != nil {
		_, err := p.client.Add(task).Save()
		if err == nil {
			return
		}
		p.logger.Warn("Failed to enqueue file purge, running inline", "book", book.ID, "error", err)
	}
	if err := purgeBookFiles(ctx, p.files, p.covers, p.logger, task); err != nil {
		p.logger.Error("Failed to purge book files", "book", book.ID, "error", err)
	}
}
