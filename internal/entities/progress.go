package entities

import (
	"math"

	"github.com/mrlokans/bookshelf/internal/errors"
)

// ProgressKind tags which half of Progress is meaningful.
type ProgressKind string

const (
	ProgressReflowable ProgressKind = "reflowable" // Percentage + opaque Location
	ProgressPaginated  ProgressKind = "paginated"  // CurrentPage of TotalPages
)

// Progress is a tagged variant keyed by Kind. Reflowable progress uses
// Percentage and Location; paginated progress uses CurrentPage and TotalPages.
// Fields of the other variant are always zero.
type Progress struct {
	Kind        ProgressKind `gorm:"size:16" json:"kind"`
	Percentage  float64      `json:"percentage,omitempty"`
	Location    string       `gorm:"size:1024" json:"location,omitempty"`
	CurrentPage int          `json:"current_page,omitempty"`
	TotalPages  int          `json:"total_pages,omitempty"`
}

// InitialProgress is the zeroed progress for a freshly imported book.
func InitialProgress(f Format, totalPages int) Progress {
	if f.ProgressKind() == ProgressPaginated {
		return Progress{Kind: ProgressPaginated, TotalPages: totalPages}
	}
	return Progress{Kind: ProgressReflowable}
}

// ReflowableAt builds reflowable progress from a renderer location and a
// fraction in [0, 1].
func ReflowableAt(location string, fraction float64) Progress {
	return ReflowablePercent(location, fraction*100)
}

// ReflowablePercent builds reflowable progress from a percentage in [0, 100],
// stored as given.
func ReflowablePercent(location string, percentage float64) Progress {
	return Progress{Kind: ProgressReflowable, Location: location, Percentage: percentage}
}

// PageOf builds paginated progress.
func PageOf(page, total int) Progress {
	return Progress{Kind: ProgressPaginated, CurrentPage: page, TotalPages: total}
}

// Percent returns completion in [0, 100] regardless of variant.
func (p Progress) Percent() float64 {
	switch p.Kind {
	case ProgressPaginated:
		if p.TotalPages <= 0 {
			return 0
		}
		return float64(p.CurrentPage) / float64(p.TotalPages) * 100
	default:
		return p.Percentage
	}
}

// Validate checks the variant's own fields.
func (p Progress) Validate() error {
	switch p.Kind {
	case ProgressReflowable:
		if math.IsNaN(p.Percentage) || p.Percentage < 0 || p.Percentage > 100 {
			return errors.Validationf("percentage %v out of range [0, 100]", p.Percentage)
		}
		if p.CurrentPage != 0 || p.TotalPages != 0 {
			return errors.Validation("reflowable progress cannot carry page numbers")
		}
	case ProgressPaginated:
		if p.CurrentPage < 1 {
			return errors.Validationf("page %d must be at least 1", p.CurrentPage)
		}
		if p.TotalPages < 0 || (p.TotalPages > 0 && p.CurrentPage > p.TotalPages) {
			return errors.Validationf("page %d out of range [1, %d]", p.CurrentPage, p.TotalPages)
		}
		if p.Percentage != 0 || p.Location != "" {
			return errors.Validation("paginated progress cannot carry a location")
		}
	default:
		return errors.Validationf("unknown progress kind %q", p.Kind)
	}
	return nil
}

// Merge applies update on top of p. The update overwrites every field of its
// variant, except that a paginated update with TotalPages == 0 keeps the known
// page count. Merging across variants is rejected.
func (p Progress) Merge(update Progress) (Progress, error) {
	if p.Kind != "" && update.Kind != p.Kind {
		return p, errors.Validationf("cannot merge %s progress into %s progress", update.Kind, p.Kind)
	}

	merged := update
	if merged.Kind == ProgressPaginated && merged.TotalPages == 0 {
		merged.TotalPages = p.TotalPages
	}
	if err := merged.Validate(); err != nil {
		return p, err
	}
	return merged, nil
}
