package main

import (
	"fmt"

	"github.com/richxcame/claims-fraud/pkg/database"
	"github.com/spf13/cobra"
)

var migrateStatus bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Apply the embedded schema migrations to the claims database.

Examples:
  fraudctl migrate
  fraudctl migrate --status`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateStatus, "status", false, "print the applied schema version and exit")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	url := cfg.Database.URL()

	if migrateStatus {
		version, dirty, err := database.MigrationVersion(url)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
		return nil
	}

	return database.Migrate(url)
}
