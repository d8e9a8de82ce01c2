package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBook_SortedBookmarks(t *testing.T) {
	marks := []Bookmark{
		{ID: "bm-3", Page: 9, Location: "c", Seq: 1},
		{ID: "bm-1", Page: 2, Location: "a", Seq: 2},
		{ID: "bm-2", Page: 5, Location: "b", Seq: 3},
	}

	t.Run("paginated books sort by page", func(t *testing.T) {
		book := Book{Format: FormatPDF, Bookmarks: marks}
		got := book.SortedBookmarks()
		assert.Equal(t, []string{"bm-1", "bm-2", "bm-3"}, bookmarkIDs(got))
		assert.Equal(t, "bm-3", book.Bookmarks[0].ID, "original order untouched")
	})

	t.Run("reflowable books keep insertion order", func(t *testing.T) {
		book := Book{Format: FormatEPUB, Bookmarks: marks}
		assert.Equal(t, []string{"bm-3", "bm-1", "bm-2"}, bookmarkIDs(book.SortedBookmarks()))
	})
}

func bookmarkIDs(marks []Bookmark) []string {
	ids := make([]string, len(marks))
	for i, m := range marks {
		ids[i] = m.ID
	}
	return ids
}
