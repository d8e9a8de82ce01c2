package http

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func TestLibraryController_GetLibrary(t *testing.T) {
	t.Run("returns empty library with default view", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(http.MethodGet, "/api/library", nil)
		require.Equal(t, http.StatusOK, w.Code)

		resp := decode[LibraryResponse](t, w)
		assert.Empty(t, resp.Books)
		assert.Equal(t, 0, resp.Total)
		assert.Equal(t, entities.DefaultViewState(), resp.View)
		assert.Empty(t, resp.SelectedID)
	})

	t.Run("projects by search query and sort", func(t *testing.T) {
		env := newTestEnv(t)
		env.importEPUB(t, "The Dispossessed")
		env.importEPUB(t, "A Wizard of Earthsea")
		env.importPDF(t, "Concrete Mathematics", 3)

		w := env.do(http.MethodPatch, "/api/library/view", map[string]any{
			"sort_by":        "title",
			"sort_direction": "desc",
		})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[LibraryResponse](t, w)
		require.Len(t, resp.Books, 3)
		assert.Equal(t, "The Dispossessed", resp.Books[0].Title)

		w = env.do(http.MethodPatch, "/api/library/view", map[string]any{"search_query": "le guin"})
		require.Equal(t, http.StatusOK, w.Code)
		resp = decode[LibraryResponse](t, w)
		assert.Len(t, resp.Books, 2)
		assert.Equal(t, 3, resp.Total)
		assert.Equal(t, "le guin", resp.View.SearchQuery)
	})
}

func TestLibraryController_UpdateViewValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{"unknown view", map[string]any{"view": "carousel"}, "View"},
		{"unknown theme", map[string]any{"theme": "neon"}, "Theme"},
		{"unknown sort field", map[string]any{"sort_by": "rating"}, "SortBy"},
		{"unknown direction", map[string]any{"sort_direction": "up"}, "SortDirection"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPatch, "/api/library/view", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)

			resp := decode[ErrorResponse](t, w)
			assert.Equal(t, "VALIDATION", string(resp.Code))
			assert.Contains(t, resp.Details, tt.field)
		})
	}

	// Nothing changed
	assert.Equal(t, entities.DefaultViewState(), env.store(t).Snapshot().View)
}

func TestLibraryController_SetTheme(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPatch, "/api/library/view", map[string]any{"theme": "sepia", "view": "list"})
	require.Equal(t, http.StatusOK, w.Code)

	view := env.store(t).Snapshot().View
	assert.Equal(t, entities.ThemeSepia, view.Theme)
	assert.Equal(t, entities.ViewList, view.View)
}

func TestLibraryController_Selection(t *testing.T) {
	env := newTestEnv(t)
	book := env.importEPUB(t, "Lathe of Heaven")

	w := env.do(http.MethodPut, "/api/library/selection", map[string]any{"book_id": book.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, book.ID, env.store(t).Snapshot().SelectedID)

	w = env.do(http.MethodPut, "/api/library/selection", map[string]any{"book_id": "book-missing"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, book.ID, env.store(t).Snapshot().SelectedID)

	w = env.do(http.MethodPut, "/api/library/selection", map[string]any{"book_id": nil})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.store(t).Snapshot().SelectedID)
}

func TestLibraryController_Reload(t *testing.T) {
	env := newTestEnv(t)
	env.importEPUB(t, "Always Coming Home")

	w := env.do(http.MethodPost, "/api/library/reload", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[LibraryResponse](t, w)
	assert.Len(t, resp.Books, 1)
	assert.False(t, resp.Loading)
}
