package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lifebank/internal/logging"
	"github.com/fyrsmithlabs/lifebank/internal/orchestrator"
)

var extractDays []string

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Run extraction for one or more days",
	Long: `Run the two-round extraction pipeline for the given days and print
the run reports as JSON. Requires store.records_path and a collaborator API
key in the configuration.

Examples:
  # Extract a single day
  lifebankd extract --day 2026-08-30

  # Extract several days, overlapping network latency
  lifebankd extract --day 2026-08-29 --day 2026-08-30`,
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().StringArrayVar(&extractDays, "day", nil, "day ID to extract (repeatable)")
	_ = extractCmd.MarkFlagRequired("day")
}

func runExtract(cmd *cobra.Command, args []string) error {
	d, err := buildDaemon()
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(d.logger) }()

	if d.runner == nil {
		return fmt.Errorf("extraction is not configured: set store.records_path and collaborator.api_key")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runs, err := d.runner.RunForDays(ctx, extractDays, d.cfg.Extraction.Concurrency)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(runs); err != nil {
		return err
	}

	for _, run := range runs {
		if run.State == orchestrator.StateFailed {
			d.logger.Warn("extraction failed", zap.String("day_id", run.DayID))
			return fmt.Errorf("one or more extraction runs failed")
		}
	}
	return nil
}
