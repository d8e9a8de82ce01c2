package reader

import (
	"context"

	"github.com/mrlokans/bookshelf/internal/entities"
	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/renderer"
	"github.com/mrlokans/bookshelf/internal/storage"
)

// StorageLoader reads a book's file from storage and opens it with the
// renderer registered for the book's format.
type StorageLoader struct {
	Files     storage.Client
	Renderers *renderer.Registry
}

var _ Loader = (*StorageLoader)(nil)

func NewStorageLoader(files storage.Client, renderers *renderer.Registry) *StorageLoader {
	return &StorageLoader{Files: files, Renderers: renderers}
}

func (l *StorageLoader) Load(ctx context.Context, book entities.Book) (renderer.Document, error) {
	if book.File == "" {
		return nil, errors.Validationf("book %s has no document file", book.ID)
	}
	data, err := storage.ReadFile(ctx, l.Files, book.File)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "read document for book %s", book.ID)
	}
	return l.Renderers.Open(ctx, book.Format, data)
}
