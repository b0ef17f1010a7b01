// Package record persists indexed records as Redis hashes under one FT index
// and serves the vector and lexical sub-searches over them.
package record

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/kailas-cloud/docsearch/internal/db"
	"github.com/kailas-cloud/docsearch/internal/domain"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

// DefaultLexicalLimit caps candidates fetched by the lexical sub-search.
const DefaultLexicalLimit = 100

// store is the consumer interface for records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	IndexExists(ctx context.Context, name string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchInfix(ctx context.Context, q *db.InfixQuery) (*db.SearchResult, error)
}

// Config holds repository settings.
type Config struct {
	KeyPrefix    string
	Dimensions   int
	HNSW         HNSWConfig
	LexicalLimit int
}

// Repo implements the index store contract on Redis.
type Repo struct {
	store        store
	prefix       string
	dims         int
	hnsw         HNSWConfig
	lexicalLimit int
	newID        func() string
}

// New creates a record repository.
func New(s store, cfg Config) *Repo {
	limit := cfg.LexicalLimit
	if limit <= 0 {
		limit = DefaultLexicalLimit
	}
	return &Repo{
		store:        s,
		prefix:       cfg.KeyPrefix,
		dims:         cfg.Dimensions,
		hnsw:         cfg.HNSW,
		lexicalLimit: limit,
		newID:        uuid.NewString,
	}
}

// Upsert writes the record for (tenant, file name), superseding any previous
// one. Every write gets a fresh record id.
func (r *Repo) Upsert(ctx context.Context, rec domrec.Record) (string, error) {
	if r.dims > 0 && len(rec.Vector()) != r.dims {
		return "", fmt.Errorf("vector has %d dimensions, index expects %d", len(rec.Vector()), r.dims)
	}
	id := r.newID()
	key := recordKey(r.prefix, rec.TenantID(), rec.FileName())
	if err := r.store.HSet(ctx, key, buildHashFields(id, &rec)); err != nil {
		return "", fmt.Errorf("hset %s: %w", key, err)
	}
	return id, nil
}

// Get returns the record for (tenant, file name).
func (r *Repo) Get(ctx context.Context, tenantID, fileName string) (domrec.Record, error) {
	key := recordKey(r.prefix, tenantID, fileName)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domrec.Record{}, domain.ErrRecordNotFound
		}
		return domrec.Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return parseHashFields(m), nil
}

// Exists reports whether a record is indexed for (tenant, file name).
func (r *Repo) Exists(ctx context.Context, tenantID, fileName string) (bool, error) {
	key := recordKey(r.prefix, tenantID, fileName)
	ok, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", key, err)
	}
	return ok, nil
}

// Delete removes the record for (tenant, file name).
func (r *Repo) Delete(ctx context.Context, tenantID, fileName string) error {
	key := recordKey(r.prefix, tenantID, fileName)
	existed, err := r.store.Del(ctx, key)
	if err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if !existed {
		return domain.ErrRecordNotFound
	}
	return nil
}

// VectorSearch returns the tenant's records with cosine similarity >= threshold,
// most similar first, at most limit.
func (r *Repo) VectorSearch(
	ctx context.Context, vector []float32, tenantID string, threshold float64, limit int,
) ([]result.Candidate, error) {
	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    indexName(r.prefix),
		Tags:         map[string]string{fieldTenantID: tenantID},
		VectorField:  fieldVector,
		Vector:       vector,
		K:            limit,
		ReturnFields: displayFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	out := make([]result.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if e.Score < threshold {
			continue
		}
		out = append(out, result.NewSemantic(e.Fields[fieldID], e.Score, parseDisplay(e.Fields)))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Similarity() > out[j].Similarity() })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LexicalSearch returns the tenant's records whose file name or content
// contains any term, case-insensitively. Matches score result.LexicalSimilarity.
func (r *Repo) LexicalSearch(ctx context.Context, terms []string, tenantID string) ([]result.Candidate, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	sr, err := r.store.SearchInfix(ctx, &db.InfixQuery{
		IndexName:    indexName(r.prefix),
		Tags:         map[string]string{fieldTenantID: tenantID},
		TagFields:    []string{fieldFileNameLC},
		Fields:       []string{fieldContent},
		Terms:        terms,
		Limit:        r.lexicalLimit,
		ReturnFields: displayFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search infix: %w", err)
	}
	if sr == nil {
		return nil, nil
	}

	out := make([]result.Candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		rec := parseDisplay(e.Fields)
		// The store query is a superset; the substring rule is authoritative.
		if !matchesAny(rec, terms) {
			continue
		}
		out = append(out, result.NewLexical(e.Fields[fieldID], rec))
	}
	return out, nil
}
