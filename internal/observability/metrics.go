package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges shared
// by the ingester, the pipeline jobs, and the query API.
type Metrics struct {
	// Ingest metrics.
	ObservationsIngested prometheus.Counter
	ObservationsSkipped  prometheus.Counter
	IngestRunning        prometheus.Gauge
	BatchFlushDuration   prometheus.Histogram

	// Pipeline metrics.
	RecordsUpserted *prometheus.CounterVec // label: stage={daily,monthly,yearly,baseline,anomaly,heatwave}

	// Query API metrics.
	CacheLookups  *prometheus.CounterVec   // labels: endpoint, result={hit,miss}
	QueryDuration *prometheus.HistogramVec // label: endpoint
}

// NewMetrics creates and registers all metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		ObservationsIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sst",
			Name:      "observations_ingested_total",
			Help:      "Total observations written to storage.",
		}),
		ObservationsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sst",
			Name:      "observations_skipped_total",
			Help:      "Total observations dropped as invalid.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sst",
			Name:      "ingest_running",
			Help:      "1 when the observation writer is active, 0 when shut down.",
		}),
		BatchFlushDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sst",
			Name:      "batch_flush_duration_seconds",
			Help:      "Duration of one batch flush to storage.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		RecordsUpserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sst",
			Name:      "records_upserted_total",
			Help:      "Records written by pipeline stage.",
		}, []string{"stage"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sst",
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by endpoint and result.",
		}, []string{"endpoint", "result"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sst",
			Name:      "query_duration_seconds",
			Help:      "Query service request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"endpoint"}),
	}

	prometheus.MustRegister(
		m.ObservationsIngested,
		m.ObservationsSkipped,
		m.IngestRunning,
		m.BatchFlushDuration,
		m.RecordsUpserted,
		m.CacheLookups,
		m.QueryDuration,
	)

	return m
}

// NewMetricsForTesting creates unregistered Metrics so repeated test
// setups do not panic with duplicate registration.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		ObservationsIngested: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sst", Name: "observations_ingested_total"}),
		ObservationsSkipped:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sst", Name: "observations_skipped_total"}),
		IngestRunning:        prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "sst", Name: "ingest_running"}),
		BatchFlushDuration:   prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sst", Name: "batch_flush_duration_seconds"}),
		RecordsUpserted:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sst", Name: "records_upserted_total"}, []string{"stage"}),
		CacheLookups:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sst", Name: "cache_lookups_total"}, []string{"endpoint", "result"}),
		QueryDuration:        prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: "sst", Name: "query_duration_seconds"}, []string{"endpoint"}),
	}
}
