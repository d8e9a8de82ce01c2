// Package storage holds document bytes referenced by Book.File.
package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo contains metadata about a stored file or directory.
type FileInfo struct {
	Name       string
	Path       string // Slash-separated, relative to the storage root
	IsDir      bool
	Size       int64
	ModifiedAt time.Time
}

// Client defines the interface for document storage operations.
type Client interface {
	// List returns entries in the specified directory path
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Download retrieves the contents of a file
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Upload writes content to a file path, replacing any existing file
	Upload(ctx context.Context, path string, content io.Reader) error

	// Delete removes a file. Deleting a missing file is not an error
	Delete(ctx context.Context, path string) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// GetMetadata retrieves file info without downloading content
	GetMetadata(ctx context.Context, path string) (*FileInfo, error)
}

// ReadFile downloads a whole file into memory.
func ReadFile(ctx context.Context, client Client, path string) ([]byte, error) {
	reader, err := client.Download(ctx, path)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

// ListRecursive lists all files recursively from a path
func ListRecursive(ctx context.Context, client Client, path string) ([]FileInfo, error) {
	var allFiles []FileInfo

	entries, err := client.List(ctx, path)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir {
			subFiles, err := ListRecursive(ctx, client, entry.Path)
			if err != nil {
				return nil, err
			}
			allFiles = append(allFiles, subFiles...)
		} else {
			allFiles = append(allFiles, entry)
		}
	}

	return allFiles, nil
}

// FilterFiles filters file list by a predicate function
func FilterFiles(files []FileInfo, predicate func(FileInfo) bool) []FileInfo {
	var filtered []FileInfo
	for _, f := range files {
		if predicate(f) {
			filtered = append(filtered, f)
		}
	}
	return filtered
}

// OlderThan matches files last modified before cutoff.
func OlderThan(cutoff time.Time) func(FileInfo) bool {
	return func(f FileInfo) bool {
		return f.ModifiedAt.Before(cutoff)
	}
}
