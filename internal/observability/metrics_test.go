package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_RecordSweep(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.SweepStarted()
	m.RecordSweep("stop", StatusCompleted, 7, 0.2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepsTotal.WithLabelValues("stop", StatusCompleted)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.SweepUnits.WithLabelValues("stop")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SweepsInFlight))
}

func TestMetrics_Coordinator(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.RecordBundleComputed()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordPublished()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BundleComputations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.BundleCacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BundlesPublished))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordBundleComputed()
	m.RecordCacheHit()
	m.RecordPublished()
	m.SweepStarted()
	m.RecordSweep("grid", StatusCancelled, 3, 1)
	m.RecordFeatureAnalyses(4)
}
