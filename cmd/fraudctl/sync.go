package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/richxcame/claims-fraud/internal/app"
	"github.com/spf13/cobra"
)

var syncConcurrency int

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the fraud graph from the claims database",
	Long: `Mirror every insured party into the graph store and prune attribute
nodes nothing links to. Safe to run while the API is serving traffic.

Exits non-zero when any insured party failed to sync.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().IntVar(&syncConcurrency, "concurrency", 0, "parallel upserts (defaults to FRAUD_RESYNC_CONCURRENCY)")
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if syncConcurrency > 0 {
		cfg.Fraud.ResyncConcurrency = syncConcurrency
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	report, err := a.Sync.Resync(ctx)
	if err != nil {
		return fmt.Errorf("resync aborted: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d insured parties failed to sync", report.Failed, report.Total)
	}
	return nil
}
