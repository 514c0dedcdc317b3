package influx

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/couchcryptid/deposition-etl/internal/config"
	"github.com/couchcryptid/deposition-etl/internal/domain"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	influxdomain "github.com/influxdata/influxdb-client-go/v2/domain"
)

// Measurement is the InfluxDB measurement every reading is written to.
const Measurement = "nitrogen_deposition"

// pointWriter is the subset of api.WriteAPIBlocking used by Writer.
type pointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Writer stores aggregated readings as InfluxDB points.
// It implements pipeline.BatchLoader.
type Writer struct {
	client influxdb2.Client
	api    pointWriter
	logger *slog.Logger
}

// NewWriter creates a blocking writer for the configured org and bucket.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	client := influxdb2.NewClient(cfg.InfluxURL, cfg.InfluxToken)
	return &Writer{
		client: client,
		api:    client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		logger: logger,
	}
}

// CheckHealth reports an error unless the server health check passes.
func (w *Writer) CheckHealth(ctx context.Context) error {
	health, err := w.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("check influxdb health: %w", err)
	}
	if health.Status != influxdomain.HealthCheckStatusPass {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influxdb health check failed: %s %s", health.Status, msg)
	}
	return nil
}

// LoadBatch writes one point per reading.
func (w *Writer) LoadBatch(ctx context.Context, readings []domain.Reading) error {
	if len(readings) == 0 {
		return nil
	}
	points := make([]*write.Point, len(readings))
	for i, r := range readings {
		points[i] = toPoint(r)
	}
	if err := w.api.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	w.logger.Debug("points written", "count", len(points))
	return nil
}

func (w *Writer) Close() error {
	if w.client != nil {
		w.client.Close()
	}
	return nil
}

// toPoint maps a reading onto the nitrogen_deposition measurement. Missing
// values are left out of the field set; the valid field is always present.
func toPoint(r domain.Reading) *write.Point {
	tags := map[string]string{
		"station":     r.Station,
		"granularity": r.Granularity.String(),
		"censored":    strconv.FormatBool(r.Censored),
	}

	fields := map[string]any{
		"valid": r.Deposition != nil,
	}
	optional := map[string]*float64{
		"deposition_kg_ha": r.Deposition,
		"log1p_deposition": r.Log1pDeposition,
		"precip":           r.Precip,
		"nh4_n_kg_m3":      r.NH4N,
		"no3_n_kg_m3":      r.NO3N,
		"total_n_kg_m3":    r.TotalN,
	}
	for name, v := range optional {
		if v != nil {
			fields[name] = *v
		}
	}
	if r.TracePrecip {
		fields["trace_precip"] = true
	}
	if r.Granularity == domain.Annual {
		fields["criteria_met"] = r.CriteriaMet
	}

	return influxdb2.NewPoint(Measurement, tags, fields, r.PeriodStart())
}
