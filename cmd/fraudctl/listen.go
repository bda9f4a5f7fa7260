package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/richxcame/claims-fraud/internal/fraud"
	"github.com/richxcame/claims-fraud/pkg/database"
	"github.com/richxcame/claims-fraud/pkg/eventbus"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"github.com/spf13/cobra"
)

var listenVerify bool

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Consume fraud alert notifications",
	Long: `Subscribe to fraud alerts and log each one. High-severity alerts are
escalated. With --verify every notification is matched against the stored alert.`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().BoolVar(&listenVerify, "verify", false, "cross-check notifications against the alerts table")
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New(eventbus.OptionsFromConfig(&cfg.NATS, "fraudctl-listener"))
	client := eventbus.NewFraudAlertClient(bus, eventbus.Thresholds{
		Medium: cfg.Fraud.AlertThreshold,
		High:   cfg.Fraud.HighThreshold,
	})
	defer client.Close()

	var alerts fraud.AlertRepositoryInterface
	if listenVerify {
		pool, err := database.NewPostgresPool(ctx, &cfg.Database)
		if err != nil {
			return err
		}
		defer database.Close(pool)
		alerts = fraud.NewRepository(pool)
	}

	if err := fraud.NewEventHandler(client, alerts).Run(ctx); err != nil {
		return fmt.Errorf("subscribe to fraud alerts: %w", err)
	}
	logger.Info("fraud listener stopped")
	return nil
}
