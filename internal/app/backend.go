// Package app wires storage backends from configuration for the docsearch binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/blob"
	"github.com/kailas-cloud/docsearch/internal/config"
	"github.com/kailas-cloud/docsearch/internal/db"
	dbRedis "github.com/kailas-cloud/docsearch/internal/db/redis"
	"github.com/kailas-cloud/docsearch/internal/repository/index"
	"github.com/kailas-cloud/docsearch/internal/repository/pgrecord"
	"github.com/kailas-cloud/docsearch/internal/repository/record"
)

// Backend is an opened index store.
type Backend struct {
	// Index is the resilient store every use case talks to.
	Index *index.Store
	// Pinger checks the raw database connection.
	Pinger db.Pinger
	// KV is the Redis store, nil for other drivers.
	KV *dbRedis.Store

	close func()
}

// Close releases the database connection.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// OpenBackend connects to the configured driver, waits for readiness and
// ensures the record schema exists.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	var (
		inner index.Backend
		b     = &Backend{}
	)

	switch cfg.Database.Driver {
	case config.DriverRedis:
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		inner = record.New(store, record.Config{
			KeyPrefix:  cfg.Database.KeyPrefix,
			Dimensions: cfg.Embedding.Dimensions,
			HNSW: record.HNSWConfig{
				M:           cfg.Database.HNSWM,
				EFConstruct: cfg.Database.HNSWEFConstruct,
			},
			LexicalLimit: cfg.Search.LexicalLimit,
		})
		b.Pinger, b.KV, b.close = store, store, store.Close

	case config.DriverPostgres:
		readyCtx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second)
		defer cancel()
		pool, err := pgrecord.Connect(readyCtx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			return nil, err
		}
		if err := pool.Ping(readyCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		inner = pgrecord.New(pool, pgrecord.Config{
			Dimensions:   cfg.Embedding.Dimensions,
			LexicalLimit: cfg.Search.LexicalLimit,
		})
		b.Pinger, b.close = pool, pool.Close

	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	b.Index = index.New(inner, cfg.DatabaseRetry())
	if err := b.Index.EnsureSchema(ctx); err != nil {
		b.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	logger.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)
	return b, nil
}

// OpenBlob connects to the bucket and creates it when missing.
func OpenBlob(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*blob.Store, error) {
	store, err := blob.New(blob.Config{
		Endpoint:        cfg.Blob.Endpoint,
		Bucket:          cfg.Blob.Bucket,
		Region:          cfg.Blob.Region,
		UseSSL:          cfg.Blob.UseSSL,
		Credentials:     cfg.Blob.Credentials,
		AccessKeyID:     cfg.Blob.AccessKeyID,
		SecretAccessKey: cfg.Blob.SecretAccessKey,
		SessionToken:    cfg.Blob.SessionToken,
		Retry:           cfg.BlobRetry(),
	})
	if err != nil {
		return nil, fmt.Errorf("create blob store: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	logger.Info("Connected to blob store",
		zap.String("endpoint", cfg.Blob.Endpoint),
		zap.String("bucket", cfg.Blob.Bucket),
	)
	return store, nil
}
