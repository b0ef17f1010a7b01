package chi

import (
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain/analysis"
	"github.com/kailas-cloud/docsearch/internal/domain/file"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned by the API.
const (
	CodeBadRequest           ErrorCode = "bad_request"
	CodeUnauthorized         ErrorCode = "unauthorized"
	CodeNotFound             ErrorCode = "not_found"
	CodePartialDelete        ErrorCode = "partial_delete"
	CodeEmbeddingUnavailable ErrorCode = "embedding_unavailable"
	CodeSummaryUnavailable   ErrorCode = "summary_unavailable"
	CodeStoreUnavailable     ErrorCode = "store_unavailable"
	CodeBlobUnavailable      ErrorCode = "blob_unavailable"
	CodeInternal             ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	// FailedStage and Progress are set when an ingest stops midway.
	FailedStage string `json:"failed_stage,omitempty"`
	Progress    *int   `json:"progress,omitempty"`
	// Remaining names the half left behind by a partial delete.
	Remaining string `json:"remaining,omitempty"`
}

// RecordResponse is an indexed record without its vector.
type RecordResponse struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	FileName    string    `json:"file_name"`
	StoragePath string    `json:"storage_path"`
	MediaType   string    `json:"media_type"`
	ByteSize    int64     `json:"byte_size"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// UploadResponse is returned by POST /v1/files.
type UploadResponse struct {
	Record   RecordResponse `json:"record"`
	Stage    string         `json:"stage"`
	Progress int            `json:"progress"`
	Degraded bool           `json:"degraded"`
}

// FileResponse is one entry of GET /v1/files.
type FileResponse struct {
	Name        string    `json:"name"`
	StoragePath string    `json:"storage_path"`
	Size        int64     `json:"size"`
	Modified    time.Time `json:"modified"`
}

// FileListResponse is returned by GET /v1/files.
type FileListResponse struct {
	Items []FileResponse `json:"items"`
	Total int            `json:"total"`
}

// SearchRequest is the body of POST /v1/search.
type SearchRequest struct {
	TenantID string `json:"tenant_id"`
	Query    string `json:"query"`
}

// SearchResultItem is one merged search hit.
type SearchResultItem struct {
	ID          string    `json:"id"`
	Similarity  float64   `json:"similarity"`
	Provenance  string    `json:"provenance"`
	FileName    string    `json:"file_name"`
	StoragePath string    `json:"storage_path"`
	MediaType   string    `json:"media_type"`
	ByteSize    int64     `json:"byte_size"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// SearchResponse is returned by POST /v1/search.
type SearchResponse struct {
	Results []SearchResultItem `json:"results"`
	Total   int                `json:"total"`
}

// AnalyzeRequest is the body of POST /v1/files/analyze.
type AnalyzeRequest struct {
	TenantID string `json:"tenant_id"`
	FileName string `json:"file_name"`
}

// AnalyzeResponse is returned by POST /v1/files/analyze.
type AnalyzeResponse struct {
	FileName string   `json:"file_name"`
	Summary  string   `json:"summary"`
	Topics   []string `json:"topics"`
	Insights []string `json:"insights"`
	Category string   `json:"category"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks"`
}

func recordToResponse(r *domrec.Record) RecordResponse {
	return RecordResponse{
		ID:          r.ID(),
		TenantID:    r.TenantID(),
		FileName:    r.FileName(),
		StoragePath: r.StoragePath(),
		MediaType:   r.MediaType(),
		ByteSize:    r.ByteSize(),
		Content:     r.Content(),
		CreatedAt:   r.CreatedAt(),
	}
}

func fileToResponse(f file.Info) FileResponse {
	return FileResponse{
		Name:        f.Name,
		StoragePath: f.StoragePath,
		Size:        f.Size,
		Modified:    f.Modified,
	}
}

func candidateToResponse(c *result.Candidate) SearchResultItem {
	rec := c.Record()
	return SearchResultItem{
		ID:          c.ID(),
		Similarity:  c.Similarity(),
		Provenance:  string(c.Provenance()),
		FileName:    rec.FileName,
		StoragePath: rec.StoragePath,
		MediaType:   rec.MediaType,
		ByteSize:    rec.ByteSize,
		Content:     rec.Content,
		CreatedAt:   rec.CreatedAt,
	}
}

func analysisToResponse(a analysis.Analysis) AnalyzeResponse {
	a = a.WithDefaults()
	return AnalyzeResponse{
		FileName: a.FileName,
		Summary:  a.Summary,
		Topics:   a.Topics,
		Insights: a.Insights,
		Category: a.Category,
	}
}
