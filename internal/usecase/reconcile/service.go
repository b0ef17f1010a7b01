// Package reconcile finds blobs left without an index record, which happens
// when ingest fails after the upload stage.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/domain"
	domrec "github.com/kailas-cloud/docsearch/internal/domain/record"
	"github.com/kailas-cloud/docsearch/internal/logger"
)

const (
	// DefaultWorkers bounds concurrent index lookups.
	DefaultWorkers = 8
	// DefaultScanLimit caps the number of blobs scanned per run.
	DefaultScanLimit = 10000
)

// Report is the outcome of one reconciliation run.
type Report struct {
	Scanned int
	Orphans []string
	Deleted []string
	Failed  map[string]error
}

// Service reconciles the blob store against the index.
type Service struct {
	blobs     BlobStore
	records   RecordChecker
	workers   int
	scanLimit int
}

// New creates a reconcile service. workers <= 0 uses DefaultWorkers.
func New(blobs BlobStore, records RecordChecker, workers int) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{blobs: blobs, records: records, workers: workers, scanLimit: DefaultScanLimit}
}

// Run scans the tenant's blobs and reports the ones without an index record.
// With deleteOrphans the orphan blobs are removed as well.
func (s *Service) Run(ctx context.Context, tenantID string, deleteOrphans bool) (*Report, error) {
	tenantID = strings.TrimSpace(tenantID)
	if err := domrec.ValidateTenantID(tenantID); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	log := logger.FromContext(ctx).With(zap.String("tenant_id", tenantID))

	prefix := domrec.TenantPrefix(tenantID)
	objs, err := s.blobs.List(ctx, prefix, s.scanLimit)
	if err != nil {
		return nil, fmt.Errorf("list blobs: %w", err)
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return nil, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	rep := &Report{Failed: map[string]error{}}
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, o := range objs {
		name, ok := domrec.OwnFileName(tenantID, o.Path)
		if !ok {
			log.Debug("Skipping blob outside the tenant prefix", zap.String("path", o.Path))
			continue
		}
		rep.Scanned++
		path := o.Path
		wg.Add(1)
		task := func() {
			defer wg.Done()
			orphan, deleted, taskErr := s.check(ctx, tenantID, name, path, deleteOrphans)
			mu.Lock()
			defer mu.Unlock()
			if orphan {
				rep.Orphans = append(rep.Orphans, name)
			}
			if deleted {
				rep.Deleted = append(rep.Deleted, name)
			}
			if taskErr != nil {
				rep.Failed[name] = taskErr
			}
		}
		if submitErr := pool.Submit(task); submitErr != nil {
			wg.Done()
			mu.Lock()
			rep.Failed[name] = fmt.Errorf("submit: %w", submitErr)
			mu.Unlock()
		}
	}
	wg.Wait()

	sort.Strings(rep.Orphans)
	sort.Strings(rep.Deleted)

	log.Info("Reconcile finished",
		zap.Int("scanned", rep.Scanned),
		zap.Int("orphans", len(rep.Orphans)),
		zap.Int("deleted", len(rep.Deleted)),
		zap.Int("failed", len(rep.Failed)),
	)
	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("reconcile: %w", err)
	}
	return rep, nil
}

func (s *Service) check(
	ctx context.Context, tenantID, name, path string, deleteOrphans bool,
) (orphan, deleted bool, err error) {
	if ctx.Err() != nil {
		return false, false, ctx.Err()
	}
	ok, err := s.records.Exists(ctx, tenantID, name)
	if err != nil {
		return false, false, fmt.Errorf("check record: %w", err)
	}
	if ok {
		return false, false, nil
	}
	if !deleteOrphans {
		return true, false, nil
	}
	if err := s.blobs.Delete(ctx, path); err != nil {
		return true, false, fmt.Errorf("delete blob: %w", err)
	}
	return true, true, nil
}

// Err joins the per-file failures of a report, nil when there are none.
func (r *Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.Failed))
	for n := range r.Failed {
		names = append(names, n)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, n := range names {
		errs = append(errs, fmt.Errorf("%s: %w", n, r.Failed[n]))
	}
	return errors.Join(errs...)
}
