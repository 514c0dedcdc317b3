package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "deposition_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for a run.
type Metrics struct {
	RecordsRead     prometheus.Counter
	TransformErrors prometheus.Counter
	PipelineRunning prometheus.Gauge

	// Reading-level metrics.
	ReadingsProduced *prometheus.CounterVec // labels: granularity
	MissingValues    *prometheus.CounterVec // labels: granularity, field={precip,nh4,no3,deposition}
	CensoredReadings *prometheus.CounterVec // labels: granularity
	TracePrecip      prometheus.Counter

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RecordsRead,
		m.TransformErrors,
		m.PipelineRunning,
		m.ReadingsProduced,
		m.MissingValues,
		m.CensoredReadings,
		m.TracePrecip,
		m.BatchSize,
		m.BatchProcessingDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RecordsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_read_total",
			Help:      "Total table rows read from the input files.",
		}),
		TransformErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transform_errors_total",
			Help:      "Total rows that failed to parse or convert.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 while the pipeline is processing, 0 otherwise.",
		}),
		ReadingsProduced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "readings_produced_total",
			Help:      "Aggregated readings delivered to the loaders by granularity.",
		}, []string{"granularity"}),
		MissingValues: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missing_values_total",
			Help:      "Missing values after sentinel translation by granularity and field.",
		}, []string{"granularity", "field"}),
		CensoredReadings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "censored_readings_total",
			Help:      "Readings with at least one analyte below detection by granularity.",
		}, []string{"granularity"}),
		TracePrecip: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trace_precipitation_total",
			Help:      "Weekly readings with trace precipitation.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of rows per extracted batch.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Time to transform and load one batch.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
