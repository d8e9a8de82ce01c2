package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/bookshelf/internal/entities"
)

func ids(books []entities.Book) []string {
	out := make([]string, len(books))
	for i, b := range books {
		out[i] = b.ID
	}
	return out
}

func TestProjector_SortScenario(t *testing.T) {
	t1 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	books := []entities.Book{
		{ID: "A", Title: "Zed", Author: "X", DateAdded: t1},
		{ID: "B", Title: "Alpha", Author: "Y", DateAdded: t1.Add(time.Hour)},
	}
	p := NewProjector("und")

	assert.Equal(t, []string{"B", "A"}, ids(p.Project(books, "", entities.SortByTitle, entities.SortAsc)))
	assert.Equal(t, []string{"B", "A"}, ids(p.Project(books, "", entities.SortByDateAdded, entities.SortDesc)))
	assert.Equal(t, []string{"A", "B"}, ids(p.Project(books, "", entities.SortByDateAdded, entities.SortAsc)))
	assert.Equal(t, []string{"A", "B"}, ids(p.Project(books, "", entities.SortByAuthor, entities.SortAsc)))
}

func TestProjector_Filter(t *testing.T) {
	books := []entities.Book{
		{ID: "1", Title: "Dune", Author: "Frank Herbert", Genre: "Science Fiction"},
		{ID: "2", Title: "Emma", Author: "Jane Austen"},
		{ID: "3", Title: "Neuromancer", Author: "William Gibson", Genre: "Cyberpunk"},
	}
	p := NewProjector("en")

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"empty returns all", "", []string{"1", "2", "3"}},
		{"whitespace returns all", "   ", []string{"1", "2", "3"}},
		{"title case-insensitive", "DUNE", []string{"1"}},
		{"author substring", "austen", []string{"2"}},
		{"genre substring", "punk", []string{"3"}},
		{"trimmed", "  emma ", []string{"2"}},
		{"missing genre never matches", "fiction", []string{"1"}},
		{"no match", "tolkien", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Project(books, tt.query, entities.SortByTitle, entities.SortAsc)
			assert.Equal(t, tt.want, ids(got))
		})
	}
}

func TestProjector_StableOnEqualKeys(t *testing.T) {
	books := []entities.Book{
		{ID: "1", Title: "Same", Genre: ""},
		{ID: "2", Title: "Same", Genre: "Poetry"},
		{ID: "3", Title: "Same", Genre: ""},
	}
	p := NewProjector("und")

	assert.Equal(t, []string{"1", "2", "3"}, ids(p.Project(books, "", entities.SortByTitle, entities.SortAsc)))
	assert.Equal(t, []string{"1", "2", "3"}, ids(p.Project(books, "", entities.SortByTitle, entities.SortDesc)))
	assert.Equal(t, []string{"1", "3", "2"}, ids(p.Project(books, "", entities.SortByGenre, entities.SortAsc)))
	assert.Equal(t, []string{"2", "1", "3"}, ids(p.Project(books, "", entities.SortByGenre, entities.SortDesc)))
}

func TestProjector_PureAndDeterministic(t *testing.T) {
	books := []entities.Book{
		{ID: "1", Title: "b"},
		{ID: "2", Title: "a"},
		{ID: "3", Title: "c"},
	}
	p := NewProjector("und")

	first := p.Project(books, "", entities.SortByTitle, entities.SortAsc)
	second := p.Project(books, "", entities.SortByTitle, entities.SortAsc)

	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, []string{"1", "2", "3"}, ids(books), "input must not be reordered")
}

func TestProjector_LocaleAwareOrdering(t *testing.T) {
	books := []entities.Book{
		{ID: "z", Title: "zebra"},
		{ID: "e", Title: "Éclair"},
		{ID: "a", Title: "apple"},
	}
	p := NewProjector("fr")

	assert.Equal(t, []string{"a", "e", "z"}, ids(p.Project(books, "", entities.SortByTitle, entities.SortAsc)))
}

func TestNewProjector_BadLocaleFallsBack(t *testing.T) {
	p := NewProjector("not a locale!!")
	got := p.Project([]entities.Book{{ID: "1", Title: "b"}, {ID: "2", Title: "a"}}, "", entities.SortByTitle, entities.SortAsc)
	assert.Equal(t, []string{"2", "1"}, ids(got))
}
