package reader

import (
	"github.com/mrlokans/bookshelf/internal/errors"
)

// FontFamily is the reader typeface.
type FontFamily string

const (
	FontSystem    FontFamily = "system"
	FontSerif     FontFamily = "serif"
	FontSans      FontFamily = "sans"
	FontMonospace FontFamily = "monospace"
)

func (f FontFamily) Valid() bool {
	switch f {
	case FontSystem, FontSerif, FontSans, FontMonospace:
		return true
	}
	return false
}

// Font size is a percentage of the 16px base size.
const (
	BaseFontPixels  = 16
	DefaultFontSize = 100
	MinFontSize     = 50
	MaxFontSize     = 300

	DefaultLineHeight = 1.5
	MinLineHeight     = 1.0
	MaxLineHeight     = 3.0
)

// Panels are the side panels a reader can have open.
type Panels struct {
	TOC       bool `json:"toc"`
	Notes     bool `json:"notes"`
	Bookmarks bool `json:"bookmarks"`
	Settings  bool `json:"settings"`
}

// Settings is session-local display state. It is discarded on close.
type Settings struct {
	FontFamily FontFamily `json:"font_family"`
	FontSize   int        `json:"font_size"`
	LineHeight float64    `json:"line_height"`
	Panels     Panels     `json:"panels"`
}

// DefaultSettings is what every session starts with.
func DefaultSettings() Settings {
	return Settings{
		FontFamily: FontSystem,
		FontSize:   DefaultFontSize,
		LineHeight: DefaultLineHeight,
	}
}

// FontPixels returns the effective font size.
func (s Settings) FontPixels() float64 {
	return float64(BaseFontPixels) * float64(s.FontSize) / 100
}

// SettingsPatch changes a subset of settings. Scale is the paginated zoom,
// which is persisted on the book rather than kept in the session.
type SettingsPatch struct {
	FontFamily *FontFamily `json:"font_family"`
	FontSize   *int        `json:"font_size"`
	LineHeight *float64    `json:"line_height"`
	Panels     *Panels     `json:"panels"`
	Scale      *float64    `json:"scale"`
}

// apply validates the whole patch before changing anything.
func (p SettingsPatch) apply(s Settings) (Settings, error) {
	if p.FontFamily != nil {
		if !p.FontFamily.Valid() {
			return s, errors.Validationf("unknown font family %q", *p.FontFamily)
		}
		s.FontFamily = *p.FontFamily
	}
	if p.FontSize != nil {
		if *p.FontSize < MinFontSize || *p.FontSize > MaxFontSize {
			return s, errors.Validationf("font size %d%% out of range [%d, %d]", *p.FontSize, MinFontSize, MaxFontSize)
		}
		s.FontSize = *p.FontSize
	}
	if p.LineHeight != nil {
		if *p.LineHeight < MinLineHeight || *p.LineHeight > MaxLineHeight {
			return s, errors.Validationf("line height %v out of range [%v, %v]", *p.LineHeight, MinLineHeight, MaxLineHeight)
		}
		s.LineHeight = *p.LineHeight
	}
	if p.Panels != nil {
		s.Panels = *p.Panels
	}
	return s, nil
}
