package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/deposition-etl/internal/domain"
	"github.com/couchcryptid/deposition-etl/internal/observability"
)

// BatchExtractor reads up to batchSize raw records from the source. It returns
// io.EOF once the source is drained.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRecord, error)
}

// Transformer converts a raw record into an aggregated reading.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawRecord) (domain.Reading, error)
}

// BatchLoader writes multiple readings to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, readings []domain.Reading) error
}

// Pipeline orchestrates the extract-transform-load loop over a bounded source.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed a run yet")
	}
	return nil
}

// Run executes the batch ETL loop until the source is drained. Any extract,
// transform or load error aborts the run.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	var records, batches int
	for {
		if err := ctx.Err(); err != nil {
			p.logger.Info("pipeline stopping", "reason", err)
			return fmt.Errorf("run pipeline: %w", err)
		}

		n, err := p.processBatch(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("run pipeline: %w", err)
		}
		records += n
		batches++
	}

	p.ready.Store(true)
	p.logger.Info("pipeline finished", "records", records, "batches", batches)
	return nil
}

// processBatch runs one extract-transform-load cycle and returns the number of
// records it handled. It returns io.EOF when the source is drained.
func (p *Pipeline) processBatch(ctx context.Context) (int, error) {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if errors.Is(err, io.EOF) {
		return 0, io.EOF
	}
	if err != nil {
		p.logger.Error("extract batch failed", "error", err)
		return 0, fmt.Errorf("extract batch: %w", err)
	}
	// A bounded source with nothing left is treated as drained.
	if len(rawBatch) == 0 {
		return 0, io.EOF
	}

	p.metrics.RecordsRead.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))

	readings := make([]domain.Reading, 0, len(rawBatch))
	for _, raw := range rawBatch {
		r, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Error("transform failed",
				"error", err,
				"granularity", raw.Granularity,
				"source", raw.Source,
				"line", raw.Line,
			)
			p.metrics.TransformErrors.Inc()
			return 0, fmt.Errorf("transform record: %w", err)
		}
		p.observeReading(r)
		readings = append(readings, r)
	}

	if err := p.loader.LoadBatch(ctx, readings); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_size", len(readings))
		return 0, fmt.Errorf("load batch: %w", err)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.logger.Debug("batch loaded", "batch_size", len(readings))
	return len(readings), nil
}

func (p *Pipeline) observeReading(r domain.Reading) {
	g := r.Granularity.String()
	p.metrics.ReadingsProduced.WithLabelValues(g).Inc()
	if r.Censored {
		p.metrics.CensoredReadings.WithLabelValues(g).Inc()
	}
	if r.TracePrecip {
		p.metrics.TracePrecip.Inc()
	}

	missing := map[string]*float64{
		"precip":     r.Precip,
		"nh4":        r.NH4,
		"no3":        r.NO3,
		"deposition": r.Deposition,
	}
	for field, v := range missing {
		if v == nil {
			p.metrics.MissingValues.WithLabelValues(g, field).Inc()
		}
	}
}
