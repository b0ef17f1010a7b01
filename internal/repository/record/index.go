package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/kailas-cloud/docsearch/internal/db"
)

// Hash field names of a record.
const (
	fieldID          = "id"
	fieldTenantID    = "tenant_id"
	fieldFileName    = "file_name"
	fieldFileNameLC  = "file_name_lc"
	fieldStoragePath = "storage_path"
	fieldContent     = "content"
	fieldMediaType   = "media_type"
	fieldByteSize    = "byte_size"
	fieldCreatedAt   = "created_at"
	fieldVector      = "vector"
)

// displayFields are returned by searches; the vector stays server side.
var displayFields = []string{
	fieldID, fieldTenantID, fieldFileName, fieldStoragePath,
	fieldContent, fieldMediaType, fieldByteSize, fieldCreatedAt,
}

// HNSWConfig tunes the vector index.
type HNSWConfig struct {
	M           int
	EFConstruct int
}

// fileNameTagSeparator never occurs in a file name, so each name is one tag.
const fileNameTagSeparator = "/"

// buildIndex describes the single FT index over all record hashes.
func buildIndex(prefix string, dims int, hnsw HNSWConfig) (*db.IndexDefinition, error) {
	def, err := db.NewIndex(indexName(prefix)).
		Prefix(recordPrefix(prefix)).
		Tag(fieldTenantID).
		ContainsTag(fieldFileNameLC, fileNameTagSeparator).
		Text(fieldContent).
		Numeric(fieldCreatedAt).
		VectorHNSW(fieldVector, dims, db.DistanceCosine, hnsw.M, hnsw.EFConstruct).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build record index: %w", err)
	}
	return def, nil
}

// EnsureSchema creates the record index when it does not exist yet.
func (r *Repo) EnsureSchema(ctx context.Context) error {
	name := indexName(r.prefix)
	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def, err := buildIndex(r.prefix, r.dims, r.hnsw)
	if err != nil {
		return err
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}
