package photostore

import (
	"context"
	"io"
)

// PhotoStore holds the raw image bytes behind gallery records. The storage
// key it hands back is opaque to callers.
type PhotoStore interface {
	Save(ctx context.Context, prefix, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}
