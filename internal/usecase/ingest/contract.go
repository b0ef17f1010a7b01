package ingest

import (
	"context"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domingest "github.com/kailas-cloud/docsearch/internal/domain/ingest"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
)

// BlobWriter stores the raw upload.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte, contentType string) error
}

// Extractor turns raw bytes into plain text. A degraded result is still usable.
type Extractor interface {
	Extract(ctx context.Context, content []byte, mediaType, fileName string) (domingest.Extracted, error)
}

// Embedder vectorizes text in the given mode.
type Embedder interface {
	Embed(ctx context.Context, text string, mode domain.EmbedMode) ([]float32, error)
}

// RecordWriter persists indexed records.
type RecordWriter interface {
	Upsert(ctx context.Context, rec domrec.Record) (string, error)
}

// Observer receives advisory progress on entering each stage.
type Observer func(stage domingest.Stage, progress int)
