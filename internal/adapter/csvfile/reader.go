// Package csvfile reads the store-locator CSV export from disk.
package csvfile

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/rubbish-tips-etl/internal/domain"
)

// ErrInputNotFound is returned when the input file does not exist.
var ErrInputNotFound = errors.New("CSV file not found")

const bom = "\uFEFF"

// Reader loads one CSV file as a SourceDocument.
type Reader struct {
	path string
}

// NewReader returns a Reader for the file at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Extract reads the whole file. A leading UTF-8 byte-order mark is dropped so
// the first header name matches its column.
func (r *Reader) Extract(_ context.Context) (domain.SourceDocument, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.SourceDocument{}, fmt.Errorf("%w: %s", ErrInputNotFound, r.path)
	}
	if err != nil {
		return domain.SourceDocument{}, fmt.Errorf("read %s: %w", r.path, err)
	}

	return domain.SourceDocument{
		Name:    filepath.Base(r.path),
		Content: strings.TrimPrefix(string(data), bom),
	}, nil
}
