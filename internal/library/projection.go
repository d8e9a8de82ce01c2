package library

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// Projector filters and orders books for presentation. It never mutates its
// input and is safe for concurrent use.
type Projector struct {
	tag language.Tag
}

// NewProjector builds a projector collating by the given BCP 47 tag. An
// unparsable tag falls back to the root collation.
func NewProjector(locale string) *Projector {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Und
	}
	return &Projector{tag: tag}
}

// Project returns the books matching query, ordered by field and direction.
// Equal keys keep their relative collection order.
func (p *Projector) Project(books []entities.Book, query string, by entities.SortField, dir entities.SortDirection) []entities.Book {
	needle := fold(strings.TrimSpace(query))

	out := make([]entities.Book, 0, len(books))
	for _, b := range books {
		if needle == "" || matches(b, needle) {
			out = append(out, b)
		}
	}

	// Collators keep internal buffers, so each call gets its own.
	col := collate.New(p.tag)
	cmp := comparator(col, by)
	if dir == entities.SortDesc {
		asc := cmp
		cmp = func(a, b *entities.Book) int { return -asc(a, b) }
	}

	sort.SliceStable(out, func(i, j int) bool {
		return cmp(&out[i], &out[j]) < 0
	})
	return out
}

func comparator(col *collate.Collator, by entities.SortField) func(a, b *entities.Book) int {
	switch by {
	case entities.SortByAuthor:
		return func(a, b *entities.Book) int { return col.CompareString(a.Author, b.Author) }
	case entities.SortByGenre:
		return func(a, b *entities.Book) int { return col.CompareString(a.Genre, b.Genre) }
	case entities.SortByDateAdded:
		return func(a, b *entities.Book) int { return a.DateAdded.Compare(b.DateAdded) }
	default:
		return func(a, b *entities.Book) int { return col.CompareString(a.Title, b.Title) }
	}
}

func matches(b entities.Book, needle string) bool {
	return strings.Contains(fold(b.Title), needle) ||
		strings.Contains(fold(b.Author), needle) ||
		strings.Contains(fold(b.Genre), needle)
}

func fold(s string) string {
	return norm.NFC.String(strings.ToLower(s))
}
