// Package ingest runs the upload pipeline: store the blob, extract and
// normalize text, embed it and persist the indexed record.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domingest "github.com/kailas-cloud/docsearch/internal/domain/ingest"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
	"github.com/kailas-cloud/docsearch/internal/domain/text"
	"github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
)

// Result describes a finished ingest.
type Result struct {
	Record   domrec.Record
	Stage    domingest.Stage
	Progress int
	// Degraded reports that the record holds placeholder text.
	Degraded bool
}

// Service orchestrates ingest. Steps run sequentially; there is no rollback,
// so a failure after the upload leaves an orphan blob for reconciliation.
type Service struct {
	blobs          BlobWriter
	extractor      Extractor
	embedder       Embedder
	records        RecordWriter
	maxUploadBytes int64
	extractTimeout time.Duration
	now            func() time.Time
}

// New creates an ingest service.
func New(blobs BlobWriter, extractor Extractor, embedder Embedder, records RecordWriter) *Service {
	return &Service{
		blobs:          blobs,
		extractor:      extractor,
		embedder:       embedder,
		records:        records,
		maxUploadBytes: domingest.DefaultMaxUploadBytes,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithLimits sets the upload size cap and the extraction timeout.
func (s *Service) WithLimits(maxUploadBytes int64, extractTimeout time.Duration) *Service {
	if maxUploadBytes > 0 {
		s.maxUploadBytes = maxUploadBytes
	}
	if extractTimeout > 0 {
		s.extractTimeout = extractTimeout
	}
	return s
}

// Ingest runs the pipeline for one upload. observer may be nil.
// Failures are *domingest.StageError wrapping the cause.
func (s *Service) Ingest(
	ctx context.Context, tenantID, fileName string, content []byte, mediaType string, observer Observer,
) (Result, error) {
	up, err := domingest.NewUpload(tenantID, fileName, content, mediaType, s.maxUploadBytes)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	ctx = logger.With(ctx, zap.String("tenant_id", up.TenantID()), zap.String("file_name", up.FileName()))
	log := logger.FromContext(ctx)
	start := time.Now()

	p := &pipeline{observer: observer}

	p.enter(domingest.StageUploading)
	path := domrec.StoragePath(up.TenantID(), up.FileName())
	if err := s.blobs.Put(ctx, path, up.Content(), up.MediaType()); err != nil {
		return p.fail(ctx, start, err)
	}
	metrics.IngestStageTotal.WithLabelValues(string(domingest.StageUploading), "ok").Inc()

	p.enter(domingest.StageExtracting)
	extracted := s.extract(ctx, &up)

	p.enter(domingest.StageNormalizing)
	normalized := text.Normalize(extracted.Text)
	metrics.IngestStageTotal.WithLabelValues(string(domingest.StageNormalizing), "ok").Inc()

	p.enter(domingest.StageEmbedding)
	embedInput := normalized
	if embedInput == "" {
		embedInput = up.FileName()
	}
	vector, err := s.embedder.Embed(ctx, embedInput, domain.EmbedDocument)
	if err != nil {
		log.Warn("Embedding failed, blob left without record", zap.String("storage_path", path))
		return p.fail(ctx, start, err)
	}
	metrics.IngestStageTotal.WithLabelValues(string(domingest.StageEmbedding), "ok").Inc()

	p.enter(domingest.StagePersisting)
	rec, err := domrec.New(
		up.TenantID(), up.FileName(), normalized, extracted.MediaType, up.Size(), vector, s.now(),
	)
	if err != nil {
		return p.fail(ctx, start, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err))
	}
	id, err := s.records.Upsert(ctx, rec)
	if err != nil {
		log.Warn("Persist failed, blob left without record", zap.String("storage_path", path))
		return p.fail(ctx, start, err)
	}
	metrics.IngestStageTotal.WithLabelValues(string(domingest.StagePersisting), "ok").Inc()

	p.enter(domingest.StageComplete)
	metrics.IngestDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	log.Info("File ingested",
		zap.String("record_id", id),
		zap.Bool("degraded", extracted.Degraded),
		zap.Int("content_chars", len([]rune(normalized))),
	)

	return Result{
		Record:   rec.WithID(id),
		Stage:    domingest.StageComplete,
		Progress: domingest.StageComplete.Progress(),
		Degraded: extracted.Degraded,
	}, nil
}

// extract never fails: a degraded extraction still yields placeholder text.
func (s *Service) extract(ctx context.Context, up *domingest.Upload) domingest.Extracted {
	ectx := ctx
	if s.extractTimeout > 0 {
		var cancel context.CancelFunc
		ectx, cancel = context.WithTimeout(ctx, s.extractTimeout)
		defer cancel()
	}

	out, err := s.extractor.Extract(ectx, up.Content(), up.MediaType(), up.FileName())
	status := "ok"
	if err != nil {
		status = "degraded"
		out.Degraded = true
		if !errors.Is(err, domain.ErrExtractionDegraded) {
			logger.FromContext(ctx).Warn("Extractor returned an unexpected error", zap.Error(err))
		} else {
			logger.FromContext(ctx).Info("Extraction degraded", zap.Error(err))
		}
	}
	if out.Text == "" {
		out.Text = up.FileName()
	}
	if out.MediaType == "" {
		out.MediaType = up.MediaType()
	}
	metrics.IngestStageTotal.WithLabelValues(string(domingest.StageExtracting), status).Inc()
	return out
}

// pipeline tracks the current stage of one ingest run.
type pipeline struct {
	stage    domingest.Stage
	observer Observer
}

func (p *pipeline) enter(stage domingest.Stage) {
	p.stage = stage
	if p.observer != nil {
		p.observer(stage, stage.Progress())
	}
}

func (p *pipeline) fail(ctx context.Context, start time.Time, err error) (Result, error) {
	metrics.IngestStageTotal.WithLabelValues(string(p.stage), "failed").Inc()
	metrics.IngestDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	logger.FromContext(ctx).Error("Ingest failed", zap.String("stage", string(p.stage)), zap.Error(err))
	return Result{Stage: p.stage, Progress: p.stage.Progress()}, &domingest.StageError{Stage: p.stage, Err: err}
}
