// Package source loads raw documents for ingestion.
package source

import (
	"context"
	"errors"
	"fmt"
)

// ErrSourceUnavailable means the source itself (directory, repository) cannot be read.
var ErrSourceUnavailable = errors.New("document source unavailable")

// Metadata keys set by loaders.
const (
	KeySource     = "source"
	KeyFileName   = "file_name"
	KeyExtension  = "extension"
	KeyTitle      = "title"
	KeyURL        = "url"
	KeyRepository = "repository"
	KeySummary    = "summary"
	KeyKeywords   = "keywords"
)

// Document is one loaded text file.
type Document struct {
	Text     string
	Metadata map[string]any
}

// Path returns the document's source path.
func (d Document) Path() string {
	s, _ := d.Metadata[KeySource].(string)
	return s
}

// LoadError records a file that was skipped. It is never fatal.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error {
	return e.Err
}

// Loader yields the documents of one source. Files that cannot be read are
// reported as LoadErrors; only an unreadable source returns an error.
type Loader interface {
	Load(ctx context.Context) ([]Document, []LoadError, error)
}
