package main

import (
	"context"
	"io"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/deposition-etl/internal/config"
	"github.com/couchcryptid/deposition-etl/internal/observability"
	"github.com/spf13/cobra"
)

var reportPath string

func getRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline once and print the comparison",
		Long: `Run the deposition pipeline over the configured input files.

This command:
  1. Loads the weekly, monthly and annual tables in parallel
  2. Converts every row to nitrogen deposition (kg N/ha)
  3. Publishes readings to Kafka and InfluxDB when configured
  4. Prints the weekly and monthly roll-ups next to the annual values
  5. Writes an .xlsx report when --report or REPORT_PATH is set

Any malformed row aborts the run with its file, line and column.

Examples:
  deposition run --weekly data/NY99_weekly.csv --annual data/NY99_annual.csv
  deposition run --station NY99 --report out/NY99.xlsx`,
		RunE: runRun,
	}

	cmd.Flags().StringVar(&reportPath, "report", "",
		"write an .xlsx report to this path, overrides REPORT_PATH")

	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg := getConfig()
	if reportPath != "" {
		cfg.ReportPath = reportPath
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return execute(ctx, cmd.OutOrStdout(), cfg, observability.NewLogger(cfg), observability.NewMetrics())
}

// execute runs one job and prints its comparison to out.
func execute(ctx context.Context, out io.Writer, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	j, err := newJob(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer j.close()

	if err := j.run(ctx); err != nil {
		return err
	}
	printSummary(out, j.source, j.collector.Comparison())
	return nil
}
