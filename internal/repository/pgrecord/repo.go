// Package pgrecord stores indexed records in Postgres with the pgvector
// extension. It serves the same contract as the Redis record repository.
package pgrecord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
	"github.com/kailas-cloud/docsearch/internal/domain/search/result"
)

// DefaultLexicalLimit caps rows fetched by the lexical sub-search.
const DefaultLexicalLimit = 100

// pool is the subset of *pgxpool.Pool used by the repository.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Config holds repository settings.
type Config struct {
	Dimensions   int
	LexicalLimit int
}

// Repo implements the index store contract on Postgres.
type Repo struct {
	pool         pool
	dims         int
	lexicalLimit int
}

// Connect opens a pgx pool for the DSN.
func Connect(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return p, nil
}

// New creates a Postgres record repository.
func New(p pool, cfg Config) *Repo {
	limit := cfg.LexicalLimit
	if limit <= 0 {
		limit = DefaultLexicalLimit
	}
	return &Repo{pool: p, dims: cfg.Dimensions, lexicalLimit: limit}
}

// EnsureSchema creates the extension, table and vector index if missing.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	if r.dims <= 0 {
		return fmt.Errorf("dimensions must be > 0")
	}
	for _, stmt := range []string{schemaExtension, createTableSQL(r.dims), schemaVectorIndex} {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// Ping checks the connection.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// Upsert writes the record for (tenant, file name) in one statement.
func (r *Repo) Upsert(ctx context.Context, rec domrec.Record) (string, error) {
	if r.dims > 0 && len(rec.Vector()) != r.dims {
		return "", fmt.Errorf("vector has %d dimensions, table expects %d", len(rec.Vector()), r.dims)
	}
	created := rec.CreatedAt()
	if created.IsZero() {
		created = time.Now().UTC()
	}
	var id string
	err := r.pool.QueryRow(ctx, upsertSQL,
		rec.TenantID(), rec.FileName(), rec.StoragePath(), rec.Content(),
		rec.MediaType(), rec.ByteSize(), pgvector.NewVector(rec.Vector()), created,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert %s/%s: %w", rec.TenantID(), rec.FileName(), err)
	}
	return id, nil
}

// Get returns the record for (tenant, file name).
func (r *Repo) Get(ctx context.Context, tenantID, fileName string) (domrec.Record, error) {
	var (
		d   result.Record
		id  string
		vec pgvector.Vector
	)
	err := r.pool.QueryRow(ctx, getSQL, tenantID, fileName).Scan(
		&id, &d.TenantID, &d.FileName, &d.StoragePath, &d.Content,
		&d.MediaType, &d.ByteSize, &d.CreatedAt, &vec,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domrec.Record{}, domain.ErrRecordNotFound
		}
		return domrec.Record{}, fmt.Errorf("get %s/%s: %w", tenantID, fileName, err)
	}
	return domrec.Reconstruct(
		id, d.TenantID, d.FileName, d.StoragePath, d.Content, d.MediaType,
		d.ByteSize, vec.Slice(), d.CreatedAt,
	), nil
}

// Exists reports whether a record is stored for (tenant, file name).
func (r *Repo) Exists(ctx context.Context, tenantID, fileName string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, existsSQL, tenantID, fileName).Scan(&ok); err != nil {
		return false, fmt.Errorf("exists %s/%s: %w", tenantID, fileName, err)
	}
	return ok, nil
}

// Delete removes the record for (tenant, file name).
func (r *Repo) Delete(ctx context.Context, tenantID, fileName string) error {
	tag, err := r.pool.Exec(ctx, deleteSQL, tenantID, fileName)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", tenantID, fileName, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// VectorSearch returns the tenant's records with cosine similarity >= threshold,
// most similar first, at most limit.
func (r *Repo) VectorSearch(
	ctx context.Context, vector []float32, tenantID string, threshold float64, limit int,
) ([]result.Candidate, error) {
	rows, err := r.pool.Query(ctx, vectorSearchSQL, pgvector.NewVector(vector), tenantID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	var out []result.Candidate
	for rows.Next() {
		var (
			d          result.Record
			id         string
			similarity float64
		)
		if err := rows.Scan(
			&id, &d.TenantID, &d.FileName, &d.StoragePath, &d.Content,
			&d.MediaType, &d.ByteSize, &d.CreatedAt, &similarity,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, result.NewSemantic(id, similarity, d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vector search rows: %w", err)
	}
	return out, nil
}

// LexicalSearch returns the tenant's records whose file name or content
// contains any term, case-insensitively.
func (r *Repo) LexicalSearch(ctx context.Context, terms []string, tenantID string) ([]result.Candidate, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, lexicalSearchSQL, tenantID, likePatterns(terms), r.lexicalLimit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()

	var out []result.Candidate
	for rows.Next() {
		var (
			d  result.Record
			id string
		)
		if err := rows.Scan(
			&id, &d.TenantID, &d.FileName, &d.StoragePath, &d.Content,
			&d.MediaType, &d.ByteSize, &d.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, result.NewLexical(id, d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lexical search rows: %w", err)
	}
	return out, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePatterns turns terms into escaped %term% patterns for ILIKE ANY.
func likePatterns(terms []string) []string {
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = "%" + likeEscaper.Replace(t) + "%"
	}
	return out
}
