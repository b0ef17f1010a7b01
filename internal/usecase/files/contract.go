package files

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/domain/analysis"
	"github.com/kailas-cloud/docsearch/internal/domain/file"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
)

// BlobStore lists and removes raw uploads.
type BlobStore interface {
	List(ctx context.Context, prefix string, limit int) ([]file.Object, error)
	Delete(ctx context.Context, path string) error
}

// RecordStore reads and removes indexed records.
type RecordStore interface {
	Get(ctx context.Context, tenantID, fileName string) (domrec.Record, error)
	Delete(ctx context.Context, tenantID, fileName string) error
}

// Analyzer produces an LLM analysis of document text.
type Analyzer interface {
	Analyze(ctx context.Context, fileName, content string) (analysis.Analysis, error)
}
