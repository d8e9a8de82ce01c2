// Package covers stores cover thumbnails for books: generated from embedded
// document covers at import time, or fetched from a remote cover URL.
package covers

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Cache handles local caching of book cover images.
type Cache struct {
	cacheDir   string
	httpClient *http.Client
}

// NewCache creates a new cover cache at the specified directory.
func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	return &Cache{
		cacheDir: cacheDir,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// IsRemote reports whether a cover reference is a URL rather than a cache key.
func IsRemote(cover string) bool {
	return strings.HasPrefix(cover, "http://") || strings.HasPrefix(cover, "https://")
}

// Resolve returns a local file for a cover reference: a cache key produced
// by SaveThumbnail, or a remote URL that is fetched and cached on first use.
// Returns empty string if the book has no cover.
func (c *Cache) Resolve(ctx context.Context, bookID, cover string) (string, error) {
	if cover == "" {
		return "", nil
	}
	if IsRemote(cover) {
		return c.GetCover(ctx, bookID, cover)
	}
	p := c.Path(cover)
	if _, err := os.Stat(p); err != nil {
		return "", err
	}
	return p, nil
}

// GetCover returns the cached cover for a book, or fetches and caches it if not present.
// Returns the file path to the cached cover, or empty string if unavailable.
func (c *Cache) GetCover(ctx context.Context, bookID, coverURL string) (string, error) {
	if coverURL == "" {
		return "", nil
	}

	filename := c.coverFilename(bookID, coverURL)
	cachePath := filepath.Join(c.cacheDir, filename)

	// Check if cached file exists
	if _, err := os.Stat(cachePath); err == nil {
		return cachePath, nil
	}

	if err := c.fetchAndCache(ctx, coverURL, cachePath); err != nil {
		return "", err
	}

	return cachePath, nil
}

// InvalidateCover removes every cached file for a book.
func (c *Cache) InvalidateCover(bookID string) error {
	pattern := filepath.Join(c.cacheDir, "cover_"+bookID+"*")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil && !os.IsNotExist(err) {
			return err
		}
	}

	return nil
}

// Remove deletes a cache key. Remote URLs and missing files are ignored.
func (c *Cache) Remove(key string) error {
	if key == "" || IsRemote(key) {
		return nil
	}
	if err := os.Remove(c.Path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the absolute location of a cache key.
func (c *Cache) Path(key string) string {
	return filepath.Join(c.cacheDir, filepath.Base(key))
}

// coverFilename generates a unique filename based on book ID and URL hash.
func (c *Cache) coverFilename(bookID, coverURL string) string {
	hash := sha256.Sum256([]byte(coverURL))
	return fmt.Sprintf("cover_%s_%x.jpg", bookID, hash[:8])
}

// fetchAndCache downloads a cover image and saves it to the cache.
func (c *Cache) fetchAndCache(ctx context.Context, url, cachePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Bookshelf/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to fetch cover: status %d", resp.StatusCode)
	}

	return c.writeAtomic(cachePath, resp.Body)
}

// writeAtomic writes through a temp file in the cache directory and renames.
func (c *Cache) writeAtomic(dst string, r io.Reader) error {
	tmpFile, err := os.CreateTemp(c.cacheDir, "cover_tmp_")
	if err != nil {
		return err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := io.Copy(tmpFile, r); err != nil {
		return err
	}

	tmpFile.Close()

	return os.Rename(tmpPath, dst)
}

// CacheDir returns the cache directory path.
func (c *Cache) CacheDir() string {
	return c.cacheDir
}
