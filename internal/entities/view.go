package entities

type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
	ThemeSepia Theme = "sepia"
)

type SortField string

const (
	SortByTitle     SortField = "title"
	SortByAuthor    SortField = "author"
	SortByGenre     SortField = "genre"
	SortByDateAdded SortField = "dateAdded"
)

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (v ViewMode) Valid() bool { return v == ViewGrid || v == ViewList }

func (t Theme) Valid() bool { return t == ThemeLight || t == ThemeDark || t == ThemeSepia }

func (f SortField) Valid() bool {
	switch f {
	case SortByTitle, SortByAuthor, SortByGenre, SortByDateAdded:
		return true
	}
	return false
}

func (d SortDirection) Valid() bool { return d == SortAsc || d == SortDesc }

// ViewState is the cross-cutting presentation state persisted with the library.
type ViewState struct {
	View          ViewMode      `json:"view"`
	Theme         Theme         `json:"theme"`
	SearchQuery   string        `json:"search_query"`
	SortBy        SortField     `json:"sort_by"`
	SortDirection SortDirection `json:"sort_direction"`
}

// DefaultViewState matches a freshly created library.
func DefaultViewState() ViewState {
	return ViewState{
		View:          ViewGrid,
		Theme:         ThemeLight,
		SortBy:        SortByTitle,
		SortDirection: SortAsc,
	}
}

// Normalize replaces unknown enum values with defaults. Used when loading
// state written by an older build.
func (v ViewState) Normalize() ViewState {
	d := DefaultViewState()
	if !v.View.Valid() {
		v.View = d.View
	}
	if !v.Theme.Valid() {
		v.Theme = d.Theme
	}
	if !v.SortBy.Valid() {
		v.SortBy = d.SortBy
	}
	if !v.SortDirection.Valid() {
		v.SortDirection = d.SortDirection
	}
	return v
}
