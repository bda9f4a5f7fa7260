package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/richxcame/claims-fraud/internal/app"
	"github.com/spf13/cobra"
)

var scoreCmd = &cobra.Command{
	Use:   "score [insured-id]",
	Short: "Print the live fraud score of an insured party",
	Args:  cobra.ExactArgs(1),
	RunE:  runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid insured id %q", args[0])
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close(ctx)

	if _, err := a.ClaimsRepo.GetInsured(ctx, id); err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(a.Scorer.LiveScore(ctx, id))
}
