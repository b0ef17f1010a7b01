package chi

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/domain/analysis"
	"github.com/kailas-cloud/docsearch/internal/domain/file"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docsearch/internal/usecase/ingest"
)

// Ingester runs the upload pipeline.
type Ingester interface {
	Ingest(ctx context.Context, tenantID, fileName string, content []byte, mediaType string,
		observer ingestuc.Observer) (ingestuc.Result, error)
}

// FileManager lists, deletes and analyzes stored files.
type FileManager interface {
	List(ctx context.Context, tenantID string) ([]file.Info, error)
	Delete(ctx context.Context, tenantID, fileName string) error
	Analyze(ctx context.Context, tenantID, fileName string) (analysis.Analysis, error)
}

// Searcher runs hybrid search.
type Searcher interface {
	Search(ctx context.Context, tenantID, query string) ([]result.Candidate, error)
}

// HealthChecker reports dependency health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
