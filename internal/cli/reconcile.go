package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newReconcileCommand(env *string, factory ReconcilerFactory) *cobra.Command {
	var (
		tenantID      string
		deleteOrphans bool
		workers       int
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Find uploaded files that have no index record",
		Long: "Lists the tenant's blobs and checks each one for an index record. " +
			"Files left behind by a failed ingest are reported, and removed with --delete.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if tenantID == "" {
				return fmt.Errorf("--tenant is required")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			rec, cleanup, err := factory(ctx, *env, workers)
			if err != nil {
				return err
			}
			defer cleanup()

			rep, err := rec.Run(ctx, tenantID, deleteOrphans)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "scanned: %d\n", rep.Scanned)
			fmt.Fprintf(out, "orphans: %d\n", len(rep.Orphans))
			for _, name := range rep.Orphans {
				fmt.Fprintf(out, "  %s\n", name)
			}
			if deleteOrphans {
				fmt.Fprintf(out, "deleted: %d\n", len(rep.Deleted))
			}
			if err := rep.Err(); err != nil {
				return fmt.Errorf("%d files failed: %w", len(rep.Failed), err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&tenantID, "tenant", "t", "", "tenant id to reconcile")
	cmd.Flags().BoolVar(&deleteOrphans, "delete", false, "delete orphan blobs")
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "concurrent index lookups (0 = default)")
	return cmd
}
