package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/deposition-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/deposition-etl/internal/config"
	"github.com/couchcryptid/deposition-etl/internal/observability"
	"github.com/spf13/cobra"
)

func getServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline, then serve health, metrics and the comparison",
		Long: `Run the deposition pipeline once and keep an HTTP server up until
SIGINT or SIGTERM.

Endpoints:
  GET /healthz     liveness
  GET /readyz      ready once the run has completed
  GET /metrics     Prometheus metrics
  GET /comparison  roll-up comparison as JSON (?station=ID to filter)

A failed run is logged and leaves /readyz reporting not ready.

Examples:
  deposition serve --weekly data/NY99_weekly.csv --monthly data/NY99_monthly.csv`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfig()
	logger := observability.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, stop, cmd.OutOrStdout(), cfg, logger, observability.NewMetrics())
}

// serve runs the pipeline once and serves HTTP until ctx is done. A failed
// run keeps the server up and is returned after shutdown.
func serve(ctx context.Context, stop context.CancelFunc, out io.Writer, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	j, err := newJob(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer j.close()

	srv := httpadapter.NewServer(cfg.HTTPAddr, j.pipeline, j.collector, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Run the pipeline once.
	runErr := j.run(ctx)
	if runErr != nil {
		logger.Error("pipeline error", "error", runErr)
	} else {
		printSummary(out, j.source, j.collector.Comparison())
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return runErr
}
