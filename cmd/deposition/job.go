package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/deposition-etl/internal/adapter/influx"
	kafkaadapter "github.com/couchcryptid/deposition-etl/internal/adapter/kafka"
	"github.com/couchcryptid/deposition-etl/internal/adapter/tabular"
	"github.com/couchcryptid/deposition-etl/internal/adapter/xlsx"
	"github.com/couchcryptid/deposition-etl/internal/config"
	"github.com/couchcryptid/deposition-etl/internal/domain"
	"github.com/couchcryptid/deposition-etl/internal/observability"
	"github.com/couchcryptid/deposition-etl/internal/pipeline"
	"github.com/google/uuid"
)

// job is one wired pipeline run: the loaded source, the loaders and the
// collector that backs the comparison.
type job struct {
	cfg       *config.Config
	logger    *slog.Logger
	runID     string
	source    *tabular.Source
	collector *pipeline.Collector
	loaders   pipeline.MultiLoader
	pipeline  *pipeline.Pipeline
}

// newJob loads the input files and connects the configured sinks.
func newJob(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*job, error) {
	runID := uuid.NewString()
	logger = logger.With("run_id", runID)

	paths := tabular.Paths{Weekly: cfg.WeeklyPath, Monthly: cfg.MonthlyPath, Annual: cfg.AnnualPath}
	source, err := tabular.Load(ctx, paths, cfg.StationID)
	if err != nil {
		return nil, fmt.Errorf("load input: %w", err)
	}
	logger.Info("input loaded",
		"weekly", source.Count(domain.Weekly),
		"monthly", source.Count(domain.Monthly),
		"annual", source.Count(domain.Annual),
		"filtered", source.Filtered(),
		"station", cfg.StationID,
	)

	collector := pipeline.NewCollector()
	loaders := pipeline.MultiLoader{collector}

	if cfg.KafkaEnabled {
		loaders = append(loaders, kafkaadapter.NewWriter(cfg, runID, logger))
		logger.Info("kafka sink enabled", "topic", cfg.KafkaSinkTopic, "brokers", cfg.KafkaBrokers)
	}
	if cfg.InfluxEnabled() {
		w := influx.NewWriter(cfg, logger)
		if err := w.CheckHealth(ctx); err != nil {
			_ = loaders.Close()
			_ = w.Close()
			return nil, err
		}
		loaders = append(loaders, w)
		logger.Info("influxdb sink enabled", "url", cfg.InfluxURL, "bucket", cfg.InfluxBucket)
	}

	transformer := pipeline.NewTransformer(cfg.MissingPolicy, cfg.Thresholds(), logger)
	logger.Info("transform configured",
		"missing_policy", cfg.MissingPolicy,
		"criteria", cfg.Thresholds(),
	)

	return &job{
		cfg:       cfg,
		logger:    logger,
		runID:     runID,
		source:    source,
		collector: collector,
		loaders:   loaders,
		pipeline:  pipeline.New(source, transformer, loaders, logger, metrics, cfg.BatchSize),
	}, nil
}

// run drives the pipeline to completion and writes the report when configured.
func (j *job) run(ctx context.Context) error {
	if err := j.pipeline.Run(ctx); err != nil {
		return err
	}

	if j.cfg.ReportPath != "" {
		rep := xlsx.Report{
			Weekly:     j.collector.Readings(domain.Weekly),
			Monthly:    j.collector.Readings(domain.Monthly),
			Annual:     j.collector.Readings(domain.Annual),
			Comparison: j.collector.Comparison(),
		}
		if err := xlsx.Write(j.cfg.ReportPath, rep); err != nil {
			return err
		}
		j.logger.Info("report written", "path", j.cfg.ReportPath)
	}
	return nil
}

func (j *job) close() {
	if err := j.loaders.Close(); err != nil {
		j.logger.Error("sink close error", "error", err)
	}
}
