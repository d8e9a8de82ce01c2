package http

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/reader"
)

// Custom binding tags for the enum fields of request bodies.
var enumValidators = map[string]func(string) bool{
	"viewmode":   func(s string) bool { return entities.ViewMode(s).Valid() },
	"theme":      func(s string) bool { return entities.Theme(s).Valid() },
	"booksort":   func(s string) bool { return entities.SortField(s).Valid() },
	"sortdir":    func(s string) bool { return entities.SortDirection(s).Valid() },
	"bookformat": func(s string) bool { return entities.Format(s).Valid() },
	"fontfamily": func(s string) bool { return reader.FontFamily(s).Valid() },
}

func init() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	for tag, valid := range enumValidators {
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return valid(fl.Field().String())
		})
	}
}
