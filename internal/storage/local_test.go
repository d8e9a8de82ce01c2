package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/errors"
)

func setupLocal(t *testing.T) *Local {
	t.Helper()
	client, err := NewLocal(filepath.Join(t.TempDir(), "files"))
	require.NoError(t, err)
	return client
}

func TestLocal_UploadDownload(t *testing.T) {
	ctx := context.Background()
	client := setupLocal(t)

	require.NoError(t, client.Upload(ctx, "books/dune.epub", strings.NewReader("spice")))

	data, err := ReadFile(ctx, client, "books/dune.epub")
	require.NoError(t, err)
	assert.Equal(t, "spice", string(data))

	// Overwrite replaces content
	require.NoError(t, client.Upload(ctx, "books/dune.epub", strings.NewReader("melange")))
	data, err = ReadFile(ctx, client, "books/dune.epub")
	require.NoError(t, err)
	assert.Equal(t, "melange", string(data))

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Join(client.Root(), "books"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLocal_PathsStayInsideRoot(t *testing.T) {
	ctx := context.Background()
	client := setupLocal(t)

	require.NoError(t, client.Upload(ctx, "../../escape.txt", strings.NewReader("x")))

	exists, err := client.Exists(ctx, "escape.txt")
	require.NoError(t, err)
	assert.True(t, exists)
	_, err = os.Stat(filepath.Join(filepath.Dir(client.Root()), "escape.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocal_DeleteAndExists(t *testing.T) {
	ctx := context.Background()
	client := setupLocal(t)

	require.NoError(t, client.Upload(ctx, "a.pdf", strings.NewReader("pdf")))
	exists, err := client.Exists(ctx, "a.pdf")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, client.Delete(ctx, "a.pdf"))
	require.NoError(t, client.Delete(ctx, "a.pdf"))

	exists, err = client.Exists(ctx, "a.pdf")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = client.Download(ctx, "a.pdf")
	assert.Equal(t, errors.CodeIO, errors.CodeOf(err))
}

func TestLocal_ListRecursive(t *testing.T) {
	ctx := context.Background()
	client := setupLocal(t)

	for _, p := range []string{"a.epub", "nested/b.epub", "nested/deeper/c.pdf"} {
		require.NoError(t, client.Upload(ctx, p, strings.NewReader(p)))
	}

	files, err := ListRecursive(ctx, client, "")
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.ElementsMatch(t, []string{"a.epub", "nested/b.epub", "nested/deeper/c.pdf"}, paths)

	pdfs := FilterFiles(files, func(f FileInfo) bool { return strings.HasSuffix(f.Name, ".pdf") })
	require.Len(t, pdfs, 1)
	assert.Equal(t, "nested/deeper/c.pdf", pdfs[0].Path)

	assert.Empty(t, FilterFiles(files, OlderThan(time.Now().Add(-time.Hour))))
}

func TestLocal_UploadCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := setupLocal(t)

	err := client.Upload(ctx, "x.epub", strings.NewReader("data"))
	assert.Error(t, err)

	exists, _ := client.Exists(context.Background(), "x.epub")
	assert.False(t, exists)
}
