package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/app"
	"github.com/kailas-cloud/docsearch/internal/config"
	dbRedis "github.com/kailas-cloud/docsearch/internal/db/redis"
	"github.com/kailas-cloud/docsearch/internal/domain"
	"github.com/kailas-cloud/docsearch/internal/extract"
	logpkg "github.com/kailas-cloud/docsearch/internal/logger"
	"github.com/kailas-cloud/docsearch/internal/metrics"
	"github.com/kailas-cloud/docsearch/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/docsearch/internal/transport/chi"
	openaiProvider "github.com/kailas-cloud/docsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/docsearch/internal/usecase/embedding"
	filesuc "github.com/kailas-cloud/docsearch/internal/usecase/files"
	healthuc "github.com/kailas-cloud/docsearch/internal/usecase/health"
	ingestuc "github.com/kailas-cloud/docsearch/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/docsearch/internal/usecase/search"
	"github.com/kailas-cloud/docsearch/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting docsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	ctx := context.Background()

	backend, err := app.OpenBackend(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open index store", zap.Error(err))
	}
	defer backend.Close()

	blobs, err := app.OpenBlob(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open blob store", zap.Error(err))
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Build embedder chains: composition root
	providerCfg := &openaiProvider.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		HTTPClient: &http.Client{Timeout: time.Duration(cfg.Embedding.TimeoutMs) * time.Millisecond},
		Logger:     logger,
	}
	var cache *dbRedis.Store
	if !cfg.Embedding.CacheDisabled {
		cache = backend.KV
	}
	docEmbedder := buildEmbedder(&cfg, providerCfg, domain.EmbedDocument, cfg.Embedding.DocumentInstruction, cache, logger)
	queryEmbedder := buildEmbedder(&cfg, providerCfg, domain.EmbedQuery, cfg.Embedding.QueryInstruction, cache, logger)
	embedClient := embeddinguc.NewClient(docEmbedder, queryEmbedder, embeddinguc.Config{
		Dimensions: cfg.Embedding.Dimensions,
		Retry:      cfg.EmbeddingRetry(),
	})
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cache != nil),
	)

	// Analysis is optional
	var analyzer filesuc.Analyzer
	if cfg.Summary.Model != "" {
		analyzer = openaiProvider.NewSummarizer(&openaiProvider.Config{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Provider:   cfg.Embedding.Provider,
			HTTPClient: &http.Client{Timeout: time.Duration(cfg.Summary.TimeoutMs) * time.Millisecond},
			Logger:     logger,
		}, openaiProvider.SummarizerConfig{
			Model:       cfg.Summary.Model,
			Temperature: cfg.Summary.Temperature,
			MaxTokens:   cfg.Summary.MaxTokens,
		})
	}

	// Create use case services
	ingestSvc := ingestuc.New(blobs, extract.New(), embedClient, backend.Index).
		WithLimits(cfg.Ingest.MaxUploadBytes, time.Duration(cfg.Ingest.ExtractTimeoutMs)*time.Millisecond)
	filesSvc := filesuc.New(blobs, backend.Index, analyzer)
	searchSvc := searchuc.New(backend.Index, embedClient, searchuc.Config{
		Threshold:   cfg.Search.Threshold,
		VectorLimit: cfg.Search.VectorLimit,
		MaxResults:  cfg.Search.MaxResults,
	})
	healthSvc := healthuc.New(backend.Pinger, blobs, embedClient)

	// Create chi server
	server := chiTransport.NewServer(ingestSvc, filesSvc, searchSvc, healthSvc).
		WithMaxUploadBytes(cfg.Ingest.MaxUploadBytes)
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys: cfg.Auth.APIKeys,
		Logger:  logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	cfg *config.Config,
	providerCfg *openaiProvider.Config,
	mode domain.EmbedMode,
	instruction string,
	cache *dbRedis.Store,
	logger *zap.Logger,
) domain.Embedder {
	// Base provider (with transport metrics built-in)
	base := openaiProvider.NewEmbedder(providerCfg)

	// Cached
	var embedder domain.Embedder = base
	if cache != nil {
		embedder = embcache.New(base, cache, embcache.Config{
			KeyPrefix:  cfg.Database.KeyPrefix,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			TTL:        time.Duration(cfg.Embedding.CacheTTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Embedding.Provider, cfg.Embedding.Model, mode)

	// Instruction prefix (outermost: cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(embedder, instruction)
	}
	return embedder
}
