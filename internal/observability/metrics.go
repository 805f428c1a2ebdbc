package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "world_map"

// Metrics holds the Prometheus counters, histograms, and gauges for map builds
// and playback.
type Metrics struct {
	BuildsTotal     *prometheus.CounterVec // labels: outcome={success,error}
	BuildDuration   prometheus.Histogram
	PipelineRunning prometheus.Gauge

	// Build output sizes.
	RegionsIndexed    prometheus.Gauge
	SeriesRegions     prometheus.Gauge
	SnapshotDays      prometheus.Gauge
	UnresolvedLookups prometheus.Counter

	// Source metrics.
	SourceFetch *prometheus.CounterVec // labels: source, outcome={success,error}
	SourceCache *prometheus.CounterVec // labels: result={hit,miss,error}

	// Optional loaders.
	LoaderErrors *prometheus.CounterVec // labels: loader={kafka,postgres}

	// Playback.
	TimelineDay     prometheus.Gauge
	TimelinePlaying prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "builds_total",
			Help:      "Map builds by outcome.",
		}, []string{"outcome"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Duration of a complete fetch-index-normalize-snapshot build.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the build pipeline is active, 0 when shut down.",
		}),
		RegionsIndexed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions_indexed",
			Help:      "Regions in the current map index.",
		}),
		SeriesRegions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series_regions",
			Help:      "Top-level regions in the current series table.",
		}),
		SnapshotDays: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshot_days",
			Help:      "Days in the current snapshot timeline.",
		}),
		UnresolvedLookups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_lookups_total",
			Help:      "Region ids that had no map region when looked up.",
		}),
		SourceFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_fetch_total",
			Help:      "Time-series source fetches by source and outcome.",
		}, []string{"source", "outcome"}),
		SourceCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_cache_total",
			Help:      "Payload cache lookups by result.",
		}, []string{"result"}),
		LoaderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loader_errors_total",
			Help:      "Optional loader failures by loader.",
		}, []string{"loader"}),
		TimelineDay: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timeline_day_index",
			Help:      "Current playback day index.",
		}),
		TimelinePlaying: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "timeline_playing",
			Help:      "1 while the timeline is playing.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.BuildsTotal,
		m.BuildDuration,
		m.PipelineRunning,
		m.RegionsIndexed,
		m.SeriesRegions,
		m.SnapshotDays,
		m.UnresolvedLookups,
		m.SourceFetch,
		m.SourceCache,
		m.LoaderErrors,
		m.TimelineDay,
		m.TimelinePlaying,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
