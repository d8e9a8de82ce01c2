package importers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/logger"
	"github.com/mrlokans/bookshelf/internal/renderer"
	"github.com/mrlokans/bookshelf/internal/renderer/renderertest"
	"github.com/mrlokans/bookshelf/internal/storage"
)

type fixture struct {
	pipeline *Pipeline
	store    *library.Store
	files    *storage.Local
	covers   *covers.Cache
}

func setupPipeline(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()

	files, err := storage.NewLocal(filepath.Join(dir, "files"))
	require.NoError(t, err)
	coverCache, err := covers.NewCache(filepath.Join(dir, "covers"))
	require.NoError(t, err)

	store := library.NewStore(library.NewMemoryRepository(), 0, library.WithLogger(logger.Discard()))
	require.NoError(t, store.Initialize(context.Background()))

	importer := NewImporter(renderer.NewDefaultRegistry(), files, coverCache, logger.Discard())
	return fixture{pipeline: NewPipeline(importer), store: store, files: files, covers: coverCache}
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return len(entries)
}

func TestImporter_EPUB(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	draft, err := f.pipeline.Importer().ImportBytes(ctx, "dune.epub", renderertest.EPUB(renderertest.EPUBOptions{
		Title:   "Dune",
		Author:  "Frank Herbert",
		Subject: "Science Fiction",
		Cover:   true,
	}))
	require.NoError(t, err)

	assert.Equal(t, "Dune", draft.Title)
	assert.Equal(t, "Frank Herbert", draft.Author)
	assert.Equal(t, "Science Fiction", draft.Genre)
	assert.Equal(t, entities.FormatEPUB, draft.Format)
	assert.Zero(t, draft.TotalPages)
	assert.NotEmpty(t, draft.CoverBlurHash)

	exists, err := f.files.Exists(ctx, draft.File)
	require.NoError(t, err)
	assert.True(t, exists)
	_, err = os.Stat(f.covers.Path(draft.Cover))
	assert.NoError(t, err)
}

func TestImporter_Fallbacks(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	imp := f.pipeline.Importer()

	draft, err := imp.ImportBytes(ctx, "anonymous.epub", renderertest.EPUB(renderertest.EPUBOptions{}))
	require.NoError(t, err)
	assert.Equal(t, entities.UnknownTitle, draft.Title)
	assert.Equal(t, entities.UnknownAuthor, draft.Author)
	assert.Empty(t, draft.Cover)

	draft, err = imp.ImportBytes(ctx, "Annual Report 2024.pdf", renderertest.PDF("", "", 7))
	require.NoError(t, err)
	assert.Equal(t, "Annual Report 2024", draft.Title)
	assert.Equal(t, entities.UnknownAuthor, draft.Author)
	assert.Equal(t, entities.FormatPDF, draft.Format)
	assert.Equal(t, 7, draft.TotalPages)

	draft, err = imp.ImportBytes(ctx, "x.pdf", renderertest.PDF("Real Title", "Someone", 2))
	require.NoError(t, err)
	assert.Equal(t, "Real Title", draft.Title)
	assert.Equal(t, "Someone", draft.Author)
}

func TestImporter_Failures(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()
	imp := f.pipeline.Importer()

	tests := []struct {
		name string
		file string
		data []byte
		code errors.Code
	}{
		{name: "unsupported", file: "notes.txt", data: []byte("just text"), code: errors.CodeUnsupportedFormat},
		{name: "corrupt epub", file: "broken.epub", data: []byte("PK garbage"), code: errors.CodeCorruptDocument},
		{name: "corrupt pdf", file: "broken.pdf", data: []byte("%PDF-1.4 no pages"), code: errors.CodeCorruptDocument},
		{name: "empty", file: "empty.epub", data: nil, code: errors.CodeCorruptDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := imp.ImportBytes(ctx, tt.file, tt.data)
			assert.Equal(t, tt.code, errors.CodeOf(err))
		})
	}

	_, err := imp.ImportPath(ctx, filepath.Join(t.TempDir(), "missing.epub"))
	assert.Equal(t, errors.CodeIO, errors.CodeOf(err))

	assert.Zero(t, countFiles(t, f.files.Root()), "failed imports must not leave files")
}

func TestPipeline_BatchIsolatesFailures(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	result := f.pipeline.ImportFiles(ctx, f.store, []File{
		{Name: "a.epub", Data: renderertest.EPUB(renderertest.EPUBOptions{Title: "A", Author: "X"})},
		{Name: "bad.txt", Data: []byte("nope")},
		{Name: "b.pdf", Data: renderertest.PDF("B", "Y", 3)},
		{Name: "a-again.epub", Data: renderertest.EPUB(renderertest.EPUBOptions{Title: "A", Author: "X"})},
	})

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Failed)
	require.Len(t, result.Files, 4)

	assert.True(t, result.Files[0].OK())
	assert.Equal(t, errors.CodeUnsupportedFormat, result.Files[1].Code)
	assert.True(t, result.Files[2].OK())
	assert.Equal(t, entities.ProgressPaginated, result.Files[2].Book.Progress.Kind)
	assert.Equal(t, 3, result.Files[2].Book.Progress.TotalPages)
	assert.Equal(t, errors.CodeDuplicateBook, result.Files[3].Code)

	books := f.store.Snapshot().Books
	require.Len(t, books, 2)
	assert.Equal(t, "A", books[0].Title)
	assert.Equal(t, "B", books[1].Title)

	// The rejected duplicate's bytes are discarded
	assert.Equal(t, 2, countFiles(t, f.files.Root()))
}

func TestPipeline_ImportDir(t *testing.T) {
	f := setupPipeline(t)
	ctx := context.Background()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.epub"), renderertest.EPUB(renderertest.EPUBOptions{Title: "One", Author: "A"}), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "two.PDF"), renderertest.PDF("Two", "B", 1), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.md"), []byte("skip me"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden", "three.epub"), []byte("ignored"), 0o644))

	result, err := f.pipeline.ImportDir(ctx, f.store, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Imported)
	assert.Zero(t, result.Failed)
	assert.Equal(t, "one.epub", result.Files[0].Name)
	assert.Equal(t, "two.PDF", result.Files[1].Name)

	_, err = f.pipeline.ImportDir(ctx, f.store, filepath.Join(dir, "readme.md"))
	assert.Equal(t, errors.CodeValidation, errors.CodeOf(err))
	_, err = f.pipeline.ImportDir(ctx, f.store, filepath.Join(dir, "missing"))
	assert.Equal(t, errors.CodeIO, errors.CodeOf(err))
}

func TestPipeline_CancelledContext(t *testing.T) {
	f := setupPipeline(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := f.pipeline.ImportFiles(ctx, f.store, []File{
		{Name: "a.epub", Data: renderertest.EPUB(renderertest.EPUBOptions{Title: "A", Author: "X"})},
	})
	assert.Equal(t, 1, result.Failed)
	assert.Empty(t, f.store.Snapshot().Books)
}
