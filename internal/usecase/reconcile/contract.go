package reconcile

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/domain/file"
)

// BlobStore lists and removes raw uploads.
type BlobStore interface {
	List(ctx context.Context, prefix string, limit int) ([]file.Object, error)
	Delete(ctx context.Context, path string) error
}

// RecordChecker reports whether a file has an index record.
type RecordChecker interface {
	Exists(ctx context.Context, tenantID, fileName string) (bool, error)
}
