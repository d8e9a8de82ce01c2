package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/mrlokans/bookshelf/internal/errors"
)

var _ Client = (*Local)(nil)

// Local implements Client on a directory of the local filesystem.
type Local struct {
	root string
}

// NewLocal creates the root directory if needed.
func NewLocal(root string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &Local{root: root}, nil
}

// Root returns the directory backing this client.
func (l *Local) Root() string {
	return l.root
}

// resolve maps a slash path onto the root, refusing paths that escape it.
func (l *Local) resolve(p string) (string, error) {
	clean := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	if clean == "/" && p != "" && p != "." && p != "/" {
		return "", errors.Validationf("invalid storage path %q", p)
	}
	return filepath.Join(l.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

func (l *Local) List(ctx context.Context, dir string) ([]FileInfo, error) {
	full, err := l.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, ioError(err, "list %s", dir)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo(path.Join(strings.Trim(dir, "/"), e.Name()), info))
	}
	return files, nil
}

func (l *Local) Download(_ context.Context, p string) (io.ReadCloser, error) {
	full, err := l.resolve(p)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(full)
	if err != nil {
		return nil, ioError(err, "open %s", p)
	}
	return f, nil
}

// Upload writes through a temp file and renames it into place.
func (l *Local) Upload(ctx context.Context, p string, content io.Reader) error {
	full, err := l.resolve(p)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return ioError(err, "create directory for %s", p)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload_*")
	if err != nil {
		return ioError(err, "create temp file for %s", p)
	}
	tmpPath := tmp.Name()
	defer func() {
		tmp.Close()
		os.Remove(tmpPath) // No-op after a successful rename
	}()

	if _, err := io.Copy(tmp, contextReader{ctx: ctx, r: content}); err != nil {
		return ioError(err, "write %s", p)
	}
	if err := tmp.Sync(); err != nil {
		return ioError(err, "sync %s", p)
	}
	if err := tmp.Close(); err != nil {
		return ioError(err, "close %s", p)
	}
	if err := os.Rename(tmpPath, full); err != nil {
		return ioError(err, "rename %s", p)
	}
	return nil
}

func (l *Local) Delete(_ context.Context, p string) error {
	full, err := l.resolve(p)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return ioError(err, "delete %s", p)
	}
	return nil
}

func (l *Local) Exists(ctx context.Context, p string) (bool, error) {
	_, err := l.GetMetadata(ctx, p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (l *Local) GetMetadata(_ context.Context, p string) (*FileInfo, error) {
	full, err := l.resolve(p)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(full)
	if err != nil {
		return nil, ioError(err, "stat %s", p)
	}
	fi := fileInfo(strings.Trim(p, "/"), info)
	return &fi, nil
}

func fileInfo(p string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Name:       info.Name(),
		Path:       p,
		IsDir:      info.IsDir(),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

func ioError(err error, format string, args ...any) error {
	return errors.Wrapf(err, errors.CodeIO, format, args...)
}

// contextReader stops a copy once ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
