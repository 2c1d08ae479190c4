// Package observability provides Prometheus metrics for the kernel.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sweep statuses used as label values.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Metrics holds all Prometheus metrics for the kernel.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Coordinator metrics
	BundleComputations prometheus.Counter
	BundleCacheHits    prometheus.Counter
	BundlesPublished   prometheus.Counter

	// Sweep metrics
	SweepsTotal    *prometheus.CounterVec
	SweepUnits     *prometheus.CounterVec
	SweepDuration  *prometheus.HistogramVec
	SweepsInFlight prometheus.Gauge

	// Feature impact metrics
	FeatureAnalyses prometheus.Counter
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg uses the default Prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "trade_edge_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		BundleComputations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "bundle_computations_total",
			Help:      "Total number of result bundles computed from scratch",
		}),
		BundleCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "bundle_cache_hits_total",
			Help:      "Total number of reads served from the published bundle",
		}),
		BundlesPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "coordinator",
			Name:      "bundles_published_total",
			Help:      "Total number of bundles published to subscribers",
		}),

		SweepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total number of sweeps by mode and status",
		}, []string{"mode", "status"}),
		SweepUnits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "units_total",
			Help:      "Total number of sweep units (rows or cells) computed",
		}, []string{"mode"}),
		SweepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Sweep execution duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"mode"}),
		SweepsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "in_flight",
			Help:      "Number of sweeps currently running",
		}),

		FeatureAnalyses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "features",
			Name:      "analyses_total",
			Help:      "Total number of per-feature impact analyses",
		}),
	}
}

// RecordBundleComputed increments the bundle computation counter.
func (m *Metrics) RecordBundleComputed() {
	if m == nil {
		return
	}
	m.BundleComputations.Inc()
}

// RecordCacheHit increments the cache hit counter.
func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.BundleCacheHits.Inc()
}

// RecordPublished increments the published bundle counter.
func (m *Metrics) RecordPublished() {
	if m == nil {
		return
	}
	m.BundlesPublished.Inc()
}

// SweepStarted marks a sweep as in flight.
func (m *Metrics) SweepStarted() {
	if m == nil {
		return
	}
	m.SweepsInFlight.Inc()
}

// RecordSweep records a finished sweep.
func (m *Metrics) RecordSweep(mode, status string, units int, durationSeconds float64) {
	if m == nil {
		return
	}
	m.SweepsInFlight.Dec()
	m.SweepsTotal.WithLabelValues(mode, status).Inc()
	m.SweepUnits.WithLabelValues(mode).Add(float64(units))
	m.SweepDuration.WithLabelValues(mode).Observe(durationSeconds)
}

// RecordFeatureAnalyses adds n analysed features.
func (m *Metrics) RecordFeatureAnalyses(n int) {
	if m == nil {
		return
	}
	m.FeatureAnalyses.Add(float64(n))
}
