package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/errors"
	"github.com/mrlokans/bookshelf/internal/importers"
)

const (
	maxImportFiles    = 50
	maxImportFileSize = 200 << 20 // 200MB
)

// ImportController handles document uploads.
type ImportController struct {
	libraries LibraryProvider
	importer  BookImporter
}

func NewImportController(libraries LibraryProvider, importer BookImporter) *ImportController {
	return &ImportController{libraries: libraries, importer: importer}
}

// Import adds every uploaded file to the library and reports each outcome.
// One bad file does not fail the request.
// POST /api/books/import (multipart, field "files")
func (ic *ImportController) Import(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondBadRequest(c, "expected multipart form with files")
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		headers = form.File["file"]
	}
	if len(headers) == 0 {
		respondBadRequest(c, "no files uploaded")
		return
	}
	if len(headers) > maxImportFiles {
		respondBadRequest(c, fmt.Sprintf("at most %d files per request", maxImportFiles))
		return
	}

	store, ok := storeFor(c, ic.libraries)
	if !ok {
		return
	}

	files := make([]importers.File, 0, len(headers))
	var rejected []importers.FileResult
	for _, fh := range headers {
		data, err := readUpload(fh)
		if err != nil {
			rejected = append(rejected, importers.FileResult{Name: fh.Filename, Error: err.Error(), Code: errors.CodeIO})
			continue
		}
		files = append(files, importers.File{Name: fh.Filename, Data: data})
	}

	result := ic.importer.ImportFiles(c.Request.Context(), store, files)
	result.Files = append(result.Files, rejected...)
	result.Failed += len(rejected)

	c.JSON(http.StatusOK, result)
}

func readUpload(fh *multipart.FileHeader) ([]byte, error) {
	if fh.Size > maxImportFileSize {
		return nil, fmt.Errorf("%s exceeds %d bytes", fh.Filename, maxImportFileSize)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImportFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return data, nil
}
