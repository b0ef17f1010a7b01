// Package embedding turns text into vectors for indexing and querying. The
// Client binds each embedding mode to its own decorator chain and enforces
// the timeout, retry and dimensionality rules around the provider.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/text"
	"github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/retry"
)

// Config holds client settings.
type Config struct {
	// Dimensions every returned vector must have. 0 disables the check.
	Dimensions int
	Retry      retry.Policy
}

// Client embeds text in document or query mode.
type Client struct {
	chains map[domain.EmbedMode]domain.Embedder
	cfg    Config
}

// NewClient creates a client from one decorator chain per mode.
func NewClient(document, query domain.Embedder, cfg Config) *Client {
	return &Client{
		chains: map[domain.EmbedMode]domain.Embedder{
			domain.EmbedDocument: document,
			domain.EmbedQuery:    query,
		},
		cfg: cfg,
	}
}

// Embed returns the vector for the first text.MaxStorageChars runes of input.
// Every failure wraps domain.ErrEmbeddingUnavailable.
func (c *Client) Embed(ctx context.Context, input string, mode domain.EmbedMode) ([]float32, error) {
	chain, ok := c.chains[mode]
	if !ok || chain == nil {
		return nil, fmt.Errorf("embed mode %q: %w", mode, domain.ErrInvalidRequest)
	}
	input = text.Window(input, text.MaxStorageChars)

	res, err := retry.DoValue(ctx, c.cfg.Retry, func(ctx context.Context) (domain.EmbeddingResult, error) {
		r, err := chain.Embed(ctx, input)
		if err != nil {
			if errors.Is(err, domain.ErrEmbeddingRejected) {
				return r, retry.Permanent(err)
			}
			return r, err
		}
		if len(r.Embedding) == 0 {
			return r, fmt.Errorf("empty vector: %w", domain.ErrEmbeddingUnavailable)
		}
		return r, nil
	})
	if err != nil {
		if !errors.Is(err, domain.ErrEmbeddingUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return nil, fmt.Errorf("embed %s: %w", mode, err)
	}

	if c.cfg.Dimensions > 0 && len(res.Embedding) != c.cfg.Dimensions {
		logger.FromContext(ctx).Error("Embedding dimension mismatch",
			zap.String("mode", string(mode)),
			zap.Int("got", len(res.Embedding)),
			zap.Int("want", c.cfg.Dimensions),
		)
		return nil, fmt.Errorf("vector has %d dimensions, want %d: %w",
			len(res.Embedding), c.cfg.Dimensions, domain.ErrEmbeddingUnavailable)
	}

	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embedding, nil
}

// HealthCheck probes the provider behind the document chain.
func (c *Client) HealthCheck(ctx context.Context) error {
	if hc, ok := c.chains[domain.EmbedDocument].(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
