// Package files manages uploaded files after ingest: listing, deletion of
// both halves (blob and index record) and LLM analysis.
package files

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/domain/analysis"
	"github.com/kailas-cloud/docsearch/internal/domain/file"
	"github.com/kailas-cloud/docsearch/internal/domain/ingest"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
	"github.com/kailas-cloud/docsearch/internal/logger"
)

// DefaultListLimit caps the number of files returned by List.
const DefaultListLimit = 1000

// Service handles the file lifecycle.
type Service struct {
	blobs     BlobStore
	records   RecordStore
	analyzer  Analyzer
	listLimit int
}

// New creates a file service. analyzer can be nil, which disables Analyze.
func New(blobs BlobStore, records RecordStore, analyzer Analyzer) *Service {
	return &Service{blobs: blobs, records: records, analyzer: analyzer, listLimit: DefaultListLimit}
}

// List returns the tenant's stored files.
func (s *Service) List(ctx context.Context, tenantID string) ([]file.Info, error) {
	tenantID = strings.TrimSpace(tenantID)
	if err := domrec.ValidateTenantID(tenantID); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	prefix := domrec.TenantPrefix(tenantID)
	objs, err := s.blobs.List(ctx, prefix, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	out := make([]file.Info, 0, len(objs))
	for _, o := range objs {
		if _, ok := domrec.OwnFileName(tenantID, o.Path); !ok {
			continue
		}
		out = append(out, file.InfoFromObject(prefix, o))
	}
	return out, nil
}

// Delete removes the blob and the index record of a file. Both deletions are
// attempted. A record that is already gone counts as deleted. If exactly one
// half fails the error is a *domain.PartialDeleteError; if both fail the blob
// error is returned.
func (s *Service) Delete(ctx context.Context, tenantID, fileName string) error {
	tenantID = strings.TrimSpace(tenantID)
	if err := validate(tenantID, fileName); err != nil {
		return err
	}
	log := logger.FromContext(ctx).With(zap.String("tenant_id", tenantID), zap.String("file_name", fileName))

	blobErr := s.blobs.Delete(ctx, domrec.StoragePath(tenantID, fileName))

	recordErr := s.records.Delete(ctx, tenantID, fileName)
	if errors.Is(recordErr, domain.ErrRecordNotFound) {
		log.Debug("No index record to delete")
		recordErr = nil
	}

	switch {
	case blobErr == nil && recordErr == nil:
		log.Info("File deleted")
		return nil
	case blobErr != nil && recordErr != nil:
		log.Error("File delete failed", zap.NamedError("blob_error", blobErr), zap.NamedError("record_error", recordErr))
		return fmt.Errorf("delete blob: %w", blobErr)
	case blobErr != nil:
		log.Warn("Partial delete: blob remains", zap.Error(blobErr))
		return domain.NewPartialDelete(false, true, blobErr)
	default:
		log.Warn("Partial delete: record remains", zap.Error(recordErr))
		return domain.NewPartialDelete(true, false, recordErr)
	}
}

// Analyze summarizes the indexed content of a file.
func (s *Service) Analyze(ctx context.Context, tenantID, fileName string) (analysis.Analysis, error) {
	tenantID = strings.TrimSpace(tenantID)
	if err := validate(tenantID, fileName); err != nil {
		return analysis.Analysis{}, err
	}
	if s.analyzer == nil {
		return analysis.Analysis{}, fmt.Errorf("analysis is not configured: %w", domain.ErrSummaryUnavailable)
	}
	rec, err := s.records.Get(ctx, tenantID, fileName)
	if err != nil {
		return analysis.Analysis{}, fmt.Errorf("get record: %w", err)
	}
	res, err := s.analyzer.Analyze(ctx, rec.FileName(), rec.Content())
	if err != nil {
		return analysis.Analysis{}, fmt.Errorf("analyze %s: %w", fileName, err)
	}
	return res, nil
}

func validate(tenantID, fileName string) error {
	if err := domrec.ValidateTenantID(tenantID); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := ingest.ValidateFileName(fileName); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	return nil
}
