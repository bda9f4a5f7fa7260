package main

import (
	"fmt"
	"os"

	"github.com/richxcame/claims-fraud/pkg/config"
	"github.com/richxcame/claims-fraud/pkg/logger"
	"github.com/spf13/cobra"
)

var Version = "dev"

var cfg *config.Config

func main() {
	rootCmd := &cobra.Command{
		Use:           "fraudctl",
		Short:         "Operate the claims fraud engine",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load("fraudctl")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return logger.Init(cfg.Server.Environment)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(listenCmd)
	rootCmd.AddCommand(scoreCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
