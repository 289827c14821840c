// Package photostore stores photos uploaded for analysis.
package photostore

import (
	"context"
	"errors"
	"io"
)

var ErrNotFound = errors.New("photo not found")

type PhotoStore interface {
	Save(ctx context.Context, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	// Path returns a local filesystem path for storageKey, for consumers
	// that read files by name.
	Path(storageKey string) (string, error)
	Delete(ctx context.Context, storageKey string) error
}
