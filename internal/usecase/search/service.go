// Package search implements hybrid search: a semantic and a lexical
// sub-search run concurrently and their candidates are merged.
package search

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/search/request"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// Search defaults.
const (
	DefaultThreshold   = 0.1
	DefaultVectorLimit = 20
	DefaultMaxResults  = 10
)

// Config tunes the sub-searches.
type Config struct {
	Threshold   float64
	VectorLimit int
	MaxResults  int
}

// Service handles hybrid search.
type Service struct {
	index Index
	embed Embedder
	cfg   Config
}

// New creates a search service. Zero config fields take the defaults.
func New(index Index, embed Embedder, cfg Config) *Service {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.VectorLimit <= 0 {
		cfg.VectorLimit = DefaultVectorLimit
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	return &Service{index: index, embed: embed, cfg: cfg}
}

// Search returns at most Config.MaxResults candidates for the tenant's query.
// A failing sub-search degrades to an empty set; only when both fail does
// Search return an error, joining both causes.
func (s *Service) Search(ctx context.Context, tenantID, query string) ([]result.Candidate, error) {
	req, err := request.New(tenantID, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	ctx = logger.With(ctx, zap.String("tenant_id", req.TenantID()))
	log := logger.FromContext(ctx)

	var (
		semantic, lexical       []result.Candidate
		semanticErr, lexicalErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		semantic, semanticErr = s.searchSemantic(ctx, &req)
		return nil
	})
	g.Go(func() error {
		lexical, lexicalErr = s.searchLexical(ctx, &req)
		return nil
	})
	_ = g.Wait()

	observe("semantic", semanticErr)
	observe("lexical", lexicalErr)

	if semanticErr != nil && lexicalErr != nil {
		log.Error("Both sub-searches failed",
			zap.NamedError("semantic_error", semanticErr),
			zap.NamedError("lexical_error", lexicalErr),
		)
		return nil, errors.Join(semanticErr, lexicalErr)
	}
	if semanticErr != nil {
		log.Warn("Semantic search degraded", zap.Error(semanticErr))
	}
	if lexicalErr != nil {
		log.Warn("Lexical search degraded", zap.Error(lexicalErr))
	}

	out := merge(s.cfg.MaxResults, semantic, lexical)
	metrics.SearchResults.Observe(float64(len(out)))
	log.Debug("Search completed",
		zap.Int("semantic", len(semantic)),
		zap.Int("lexical", len(lexical)),
		zap.Int("results", len(out)),
	)
	if out == nil {
		out = []result.Candidate{}
	}
	return out, nil
}

func (s *Service) searchSemantic(ctx context.Context, req *request.Request) ([]result.Candidate, error) {
	vec, err := s.embed.Embed(ctx, req.Query(), domain.EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("vectorize query: %w", err)
	}
	res, err := s.index.VectorSearch(ctx, vec, req.TenantID(), s.cfg.Threshold, s.cfg.VectorLimit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return res, nil
}

func (s *Service) searchLexical(ctx context.Context, req *request.Request) ([]result.Candidate, error) {
	terms := req.Terms()
	if len(terms) == 0 {
		return nil, nil
	}
	res, err := s.index.LexicalSearch(ctx, terms, req.TenantID())
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	return res, nil
}

func observe(path string, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	metrics.SearchPathTotal.WithLabelValues(path, status).Inc()
}
