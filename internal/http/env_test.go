package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/config"
	"github.com/mrlokans/bookshelf/internal/covers"
	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/importers"
	"github.com/mrlokans/bookshelf/internal/library"
	"github.com/mrlokans/bookshelf/internal/logger"
	"github.com/mrlokans/bookshelf/internal/reader"
	"github.com/mrlokans/bookshelf/internal/renderer"
	"github.com/mrlokans/bookshelf/internal/renderer/renderertest"
	"github.com/mrlokans/bookshelf/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type recordingPurger struct {
	purged []entities.Book
}

func (p *recordingPurger) PurgeBook(_ context.Context, book entities.Book) {
	p.purged = append(p.purged, book)
}

type testEnv struct {
	router   *gin.Engine
	manager  *library.Manager
	pipeline *importers.Pipeline
	registry *reader.Registry
	files    *storage.Local
	covers   *covers.Cache
	purger   *recordingPurger
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithRepo(t, library.NewMemoryRepository())
}

func newTestEnvWithRepo(t *testing.T, repo library.Repository) *testEnv {
	t.Helper()
	log := logger.Discard()

	files, err := storage.NewLocal(t.TempDir())
	require.NoError(t, err)
	coverCache, err := covers.NewCache(t.TempDir())
	require.NoError(t, err)

	renderers := renderer.NewDefaultRegistry()
	manager := library.NewManager(repo, library.NewProjector("und"), log)
	pipeline := importers.NewPipeline(importers.NewImporter(renderers, files, coverCache, log))
	registry := reader.NewRegistry(
		func(ctx context.Context, owner uint) (reader.Library, error) {
			store, err := manager.Store(ctx, owner)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
		reader.NewStorageLoader(files, renderers),
		log,
		reader.WithDebounce(0),
	)
	t.Cleanup(func() { registry.CloseAll(context.Background()) })

	purger := &recordingPurger{}
	router, stop := NewRouter(RouterConfig{
		Libraries:  manager,
		Importer:   pipeline,
		Sessions:   registry,
		Purger:     purger,
		Covers:     coverCache,
		Backend:    "memory",
		AuthConfig: config.Auth{Mode: config.AuthModeNone},
		Version:    "test",
	})
	t.Cleanup(stop)

	return &testEnv{
		router:   router,
		manager:  manager,
		pipeline: pipeline,
		registry: registry,
		files:    files,
		covers:   coverCache,
		purger:   purger,
	}
}

func (e *testEnv) store(t *testing.T) *library.Store {
	t.Helper()
	store, err := e.manager.Store(context.Background(), 0)
	require.NoError(t, err)
	return store
}

// importBook runs a document through the real importer.
func (e *testEnv) importBook(t *testing.T, name string, data []byte) entities.Book {
	t.Helper()
	book, err := e.pipeline.ImportOne(context.Background(), e.store(t), importers.File{Name: name, Data: data})
	require.NoError(t, err)
	return book
}

func (e *testEnv) importEPUB(t *testing.T, title string) entities.Book {
	t.Helper()
	return e.importBook(t, title+".epub", renderertest.EPUB(renderertest.EPUBOptions{
		Title:    title,
		Author:   "Ursula K. Le Guin",
		Chapters: []string{"One", "Two", "Three"},
	}))
}

func (e *testEnv) importPDF(t *testing.T, title string, pages int) entities.Book {
	t.Helper()
	return e.importBook(t, title+".pdf", renderertest.PDF(title, "Donald Knuth", pages))
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

