// Package index wraps an index store backend with per-call timeouts, bounded
// retry and error mapping onto the domain sentinels.
package index

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
	"github.com/kailas-cloud/docsearch/internal/metrics"
	"github.com/kailas-cloud/docsearch/internal/retry"
)

// Backend is the index store contract served by the Redis and Postgres repositories.
type Backend interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, rec domrec.Record) (string, error)
	Get(ctx context.Context, tenantID, fileName string) (domrec.Record, error)
	Exists(ctx context.Context, tenantID, fileName string) (bool, error)
	Delete(ctx context.Context, tenantID, fileName string) error
	VectorSearch(ctx context.Context, vector []float32, tenantID string, threshold float64, limit int) ([]result.Candidate, error)
	LexicalSearch(ctx context.Context, terms []string, tenantID string) ([]result.Candidate, error)
}

// Store is a Backend decorator. Backend failures come out wrapped with
// domain.ErrStoreUnavailable; domain.ErrRecordNotFound passes through untouched.
type Store struct {
	inner  Backend
	policy retry.Policy
}

// New wraps a backend with the given retry policy.
func New(inner Backend, policy retry.Policy) *Store {
	return &Store{inner: inner, policy: policy}
}

// EnsureSchema creates the index or table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.call(ctx, "ensure_schema", s.inner.EnsureSchema)
}

// Upsert atomically replaces the record for (tenant, file name) and returns its id.
func (s *Store) Upsert(ctx context.Context, rec domrec.Record) (string, error) {
	var id string
	err := s.call(ctx, "upsert", func(ctx context.Context) error {
		v, err := s.inner.Upsert(ctx, rec)
		id = v
		return err
	})
	return id, err
}

// Get returns the record for (tenant, file name).
func (s *Store) Get(ctx context.Context, tenantID, fileName string) (domrec.Record, error) {
	var rec domrec.Record
	err := s.call(ctx, "get", func(ctx context.Context) error {
		v, err := s.inner.Get(ctx, tenantID, fileName)
		rec = v
		return err
	})
	return rec, err
}

// Exists reports whether a record is indexed for (tenant, file name).
func (s *Store) Exists(ctx context.Context, tenantID, fileName string) (bool, error) {
	var ok bool
	err := s.call(ctx, "exists", func(ctx context.Context) error {
		v, err := s.inner.Exists(ctx, tenantID, fileName)
		ok = v
		return err
	})
	return ok, err
}

// Delete removes the record for (tenant, file name).
func (s *Store) Delete(ctx context.Context, tenantID, fileName string) error {
	return s.call(ctx, "delete", func(ctx context.Context) error {
		return s.inner.Delete(ctx, tenantID, fileName)
	})
}

// VectorSearch runs the semantic sub-search.
func (s *Store) VectorSearch(
	ctx context.Context, vector []float32, tenantID string, threshold float64, limit int,
) ([]result.Candidate, error) {
	var out []result.Candidate
	err := s.call(ctx, "vector_search", func(ctx context.Context) error {
		v, err := s.inner.VectorSearch(ctx, vector, tenantID, threshold, limit)
		out = v
		return err
	})
	return out, err
}

// LexicalSearch runs the substring sub-search.
func (s *Store) LexicalSearch(ctx context.Context, terms []string, tenantID string) ([]result.Candidate, error) {
	var out []result.Candidate
	err := s.call(ctx, "lexical_search", func(ctx context.Context) error {
		v, err := s.inner.LexicalSearch(ctx, terms, tenantID)
		out = v
		return err
	})
	return out, err
}

func (s *Store) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := retry.Do(ctx, s.policy, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, domain.ErrRecordNotFound) {
			return retry.Permanent(err)
		}
		return err
	})

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrRecordNotFound):
		status = "not_found"
	default:
		status = "error"
	}
	metrics.StoreRequestDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrRecordNotFound):
		return domain.ErrRecordNotFound
	default:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
}
