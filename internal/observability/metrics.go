package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// susceptibility pipeline.
type Metrics struct {
	RastersClassified prometheus.Counter
	RastersAligned    prometheus.Counter
	OverlaysProduced  prometheus.Counter
	PipelineRunning   prometheus.Gauge

	// Per-day forecast unit outcomes.
	DaysSucceeded prometheus.Counter
	DaysFailed    prometheus.Counter
	DaysSkipped   prometheus.Counter

	// StageDuration observes wall time per pipeline stage,
	// labeled stage={static_prep,static_overlay,rainfall_parse,day}.
	StageDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RastersClassified,
		m.RastersAligned,
		m.OverlaysProduced,
		m.PipelineRunning,
		m.DaysSucceeded,
		m.DaysFailed,
		m.DaysSkipped,
		m.StageDuration,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RastersClassified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lsmap",
			Name:      "rasters_classified_total",
			Help:      "Total rasters run through the rule-set classifier.",
		}),
		RastersAligned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lsmap",
			Name:      "rasters_aligned_total",
			Help:      "Total rasters warped onto the reference grid.",
		}),
		OverlaysProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lsmap",
			Name:      "overlays_produced_total",
			Help:      "Total weighted overlay rasters written.",
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lsmap",
			Name:      "pipeline_running",
			Help:      "1 while a run is active, 0 otherwise.",
		}),
		DaysSucceeded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lsmap",
			Name:      "days_succeeded_total",
			Help:      "Forecast days that produced an output raster.",
		}),
		DaysFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lsmap",
			Name:      "days_failed_total",
			Help:      "Forecast days skipped due to a contained error.",
		}),
		DaysSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lsmap",
			Name:      "days_skipped_total",
			Help:      "Forecast days skipped because their output already existed.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "lsmap",
			Name:      "stage_duration_seconds",
			Help:      "Wall time per pipeline stage.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
	}
}
