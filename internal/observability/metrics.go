package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Dataset label values.
const (
	DatasetAccident = "accident"
	DatasetMedia    = "media"
)

// Metrics holds the Prometheus counters, histograms, and gauges for snapshot builds.
type Metrics struct {
	RowsProcessed *prometheus.CounterVec // labels: dataset={accident,media}
	UnparsedDates *prometheus.CounterVec // labels: dataset={accident,media}
	LoadErrors    *prometheus.CounterVec // labels: dataset={accident,media}

	BuildDuration     prometheus.Histogram
	SnapshotTimestamp prometheus.Gauge
	PipelineRunning   prometheus.Gauge

	// Export metrics.
	RecordsPublished prometheus.Counter
	PublishErrors    prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RowsProcessed,
		m.UnparsedDates,
		m.LoadErrors,
		m.BuildDuration,
		m.SnapshotTimestamp,
		m.PipelineRunning,
		m.RecordsPublished,
		m.PublishErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RowsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "story_etl",
			Name:      "rows_processed_total",
			Help:      "Raw rows normalized, by dataset.",
		}, []string{"dataset"}),
		UnparsedDates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "story_etl",
			Name:      "unparsed_dates_total",
			Help:      "Rows whose date could not be interpreted, by dataset.",
		}, []string{"dataset"}),
		LoadErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "story_etl",
			Name:      "load_errors_total",
			Help:      "Workbook load failures, by dataset.",
		}, []string{"dataset"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "story_etl",
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete load-normalize-aggregate build.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		SnapshotTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "story_etl",
			Name:      "snapshot_built_timestamp_seconds",
			Help:      "Unix time the current snapshot was built.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "story_etl",
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "story_etl",
			Name:      "records_published_total",
			Help:      "Messages written to the export topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "story_etl",
			Name:      "publish_errors_total",
			Help:      "Snapshot export failures.",
		}),
	}
}
