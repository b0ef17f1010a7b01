// Package cli implements docsearchctl, the operator command line for docsearch.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docsearch/internal/app"
	"github.com/kailas-cloud/docsearch/internal/config"
	logpkg "github.com/kailas-cloud/docsearch/internal/logger"
	reconcileuc "github.com/kailas-cloud/docsearch/internal/usecase/reconcile"
	"github.com/kailas-cloud/docsearch/internal/version"
)

// Reconciler runs one orphan reconciliation.
type Reconciler interface {
	Run(ctx context.Context, tenantID string, deleteOrphans bool) (*reconcileuc.Report, error)
}

// ReconcilerFactory opens the backends for env and returns a reconciler plus its cleanup.
type ReconcilerFactory func(ctx context.Context, env string, workers int) (Reconciler, func(), error)

// NewRootCommand builds the docsearchctl command tree.
func NewRootCommand(factory ReconcilerFactory) *cobra.Command {
	var env string

	root := &cobra.Command{
		Use:           "docsearchctl",
		Short:         "docsearchctl: maintenance commands for docsearch",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&env, "env", "e", config.GetEnv(), "config environment (config/<env>.yaml)")

	root.AddCommand(newReconcileCommand(&env, factory))
	return root
}

// Execute runs the CLI against the real backends.
func Execute() {
	if err := NewRootCommand(OpenReconciler).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// OpenReconciler connects to the configured index and blob stores.
func OpenReconciler(ctx context.Context, env string, workers int) (Reconciler, func(), error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	backend, err := app.OpenBackend(ctx, &cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	blobs, err := app.OpenBlob(ctx, &cfg, logger)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}

	cleanup := func() {
		backend.Close()
		_ = logger.Sync()
	}
	logger.Debug("Reconciler ready", zap.Int("workers", workers))
	return &loggedReconciler{inner: reconcileuc.New(blobs, backend.Index, workers), logger: logger}, cleanup, nil
}

// loggedReconciler puts the CLI logger into the context of every run.
type loggedReconciler struct {
	inner  *reconcileuc.Service
	logger *zap.Logger
}

func (r *loggedReconciler) Run(ctx context.Context, tenantID string, deleteOrphans bool) (*reconcileuc.Report, error) {
	ctx = logpkg.ContextWithLogger(ctx, r.logger)
	return r.inner.Run(ctx, tenantID, deleteOrphans) //nolint:wrapcheck // transparent decorator
}
