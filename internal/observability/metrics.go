package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// collection pipeline.
type Metrics struct {
	RunsSucceeded      prometheus.Counter
	RunsFailed         prometheus.Counter
	ReadingsStored     prometheus.Counter
	AnomaliesDetected  prometheus.Counter
	CorrectionsApplied prometheus.Counter
	IngestFailures     prometheus.Counter
	StoreErrors        prometheus.Counter
	CollectorRunning   prometheus.Gauge
	RunDuration        prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_quality",
			Name:      "runs_succeeded_total",
			Help:      "Total pipeline runs that reached Done.",
		}),
		RunsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_quality",
			Name:      "runs_failed_total",
			Help:      "Total pipeline runs aborted by ingestion or store failure.",
		}),
		ReadingsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_quality",
			Name:      "readings_stored_total",
			Help:      "Total corrected readings persisted.",
		}),
		AnomaliesDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_quality",
			Name:      "anomalies_detected_total",
			Help:      "Total anomaly records emitted by the classifiers.",
		}),
		CorrectionsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_quality",
			Name:      "corrections_applied_total",
			Help:      "Total anomalous values replaced by the corrector.",
		}),
		IngestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_quality",
			Name:      "ingest_failures_total",
			Help:      "Total failed weather provider fetches.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "air_quality",
			Name:      "store_errors_total",
			Help:      "Total store write failures.",
		}),
		CollectorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "air_quality",
			Name:      "collector_running",
			Help:      "1 when the collector loop is active, 0 when shut down.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "air_quality",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete fetch-classify-correct-persist cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}

	prometheus.MustRegister(
		m.RunsSucceeded,
		m.RunsFailed,
		m.ReadingsStored,
		m.AnomaliesDetected,
		m.CorrectionsApplied,
		m.IngestFailures,
		m.StoreErrors,
		m.CollectorRunning,
		m.RunDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without touching the default registry
// to avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsSucceeded:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_quality", Name: "runs_succeeded_total"}),
		RunsFailed:         prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_quality", Name: "runs_failed_total"}),
		ReadingsStored:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_quality", Name: "readings_stored_total"}),
		AnomaliesDetected:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_quality", Name: "anomalies_detected_total"}),
		CorrectionsApplied: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_quality", Name: "corrections_applied_total"}),
		IngestFailures:     prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_quality", Name: "ingest_failures_total"}),
		StoreErrors:        prometheus.NewCounter(prometheus.CounterOpts{Namespace: "air_quality", Name: "store_errors_total"}),
		CollectorRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "air_quality", Name: "collector_running"}),
		RunDuration:        prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "air_quality", Name: "run_duration_seconds"}),
	}
}
