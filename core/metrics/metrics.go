package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// sync pipeline.
type Metrics struct {
	SyncCycles    *prometheus.CounterVec // labels: mode={full,incremental}, outcome={success,error}
	RowsAppended  prometheus.Counter
	StationErrors prometheus.Counter
	FeedPages     prometheus.Counter
	FeedErrors    prometheus.Counter

	SyncDuration    prometheus.Histogram
	StationsPerSync prometheus.Histogram
	LastSyncTime    prometheus.Gauge
	SchedulerSteady prometheus.Gauge
}

// New creates and registers all sync metrics with the default Prometheus registry.
func New() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.SyncCycles,
		m.RowsAppended,
		m.StationErrors,
		m.FeedPages,
		m.FeedErrors,
		m.SyncDuration,
		m.StationsPerSync,
		m.LastSyncTime,
		m.SchedulerSteady,
	)

	return m
}

// NewForTesting creates Metrics without registering them, to avoid
// "already registered" panics when called from multiple tests.
func NewForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SyncCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "waterlevel",
			Name:      "sync_cycles_total",
			Help:      "Completed sync cycles by mode and outcome.",
		}, []string{"mode", "outcome"}),
		RowsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waterlevel",
			Name:      "history_rows_appended_total",
			Help:      "Total history rows appended across all stations.",
		}),
		StationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waterlevel",
			Name:      "station_write_errors_total",
			Help:      "Per-station write failures isolated during reconciliation.",
		}),
		FeedPages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waterlevel",
			Name:      "feed_pages_total",
			Help:      "Pages fetched from the upstream feature service.",
		}),
		FeedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "waterlevel",
			Name:      "feed_errors_total",
			Help:      "Feed requests that failed and truncated a fetch.",
		}),
		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "waterlevel",
			Name:      "sync_duration_seconds",
			Help:      "Duration of a complete fetch-normalize-reconcile cycle.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		StationsPerSync: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "waterlevel",
			Name:      "stations_per_sync",
			Help:      "Number of stations touched per sync cycle.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500},
		}),
		LastSyncTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "waterlevel",
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last successful sync cycle.",
		}),
		SchedulerSteady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "waterlevel",
			Name:      "scheduler_steady",
			Help:      "1 once the scheduler has left bootstrap, 0 before.",
		}),
	}
}
