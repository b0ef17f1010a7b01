package search

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

// Index runs the two sub-searches over indexed records.
type Index interface {
	VectorSearch(ctx context.Context, vector []float32, tenantID string, threshold float64, limit int) ([]result.Candidate, error)
	LexicalSearch(ctx context.Context, terms []string, tenantID string) ([]result.Candidate, error)
}

// Embedder vectorizes text in the given mode.
type Embedder interface {
	Embed(ctx context.Context, text string, mode domain.EmbedMode) ([]float32, error)
}
