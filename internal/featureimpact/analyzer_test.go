package featureimpact

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/observability"
	"trade-edge-lab/internal/worker"
)

// syntheticTable has gap_pct = 0.0..9.9; rows with gap_pct <= 5 win 40% of the
// time, rows above 5 win 80%.
func syntheticTable(t *testing.T) *domain.Table {
	t.Helper()
	n := 100
	gap := make([]float64, n)
	pnl := make([]float64, n)
	flat := make([]float64, n)
	ids := make([]float64, n)
	for i := 0; i < n; i++ {
		gap[i] = float64(i) / 10
		flat[i] = 1
		ids[i] = float64(i)
		win := i%5 < 2
		if gap[i] > 5 {
			win = i%5 < 4
		}
		pnl[i] = -1
		if win {
			pnl[i] = 1
		}
	}
	table, err := domain.NewTableFromColumns(map[string][]float64{
		"pnl":        pnl,
		"gap_pct":    gap,
		"flat":       flat,
		"trade_id":   ids,
		"entry_time": ids,
	}, nil, nil)
	require.NoError(t, err)
	return table
}

func newAnalyzer() *Analyzer {
	return NewAnalyzer(Options{Logger: zerolog.Nop()})
}

func TestAnalyze_RecoversThreshold(t *testing.T) {
	results, err := newAnalyzer().Analyze(worker.Control{}, syntheticTable(t), "pnl", nil)
	require.NoError(t, err)
	require.Len(t, results, 2)

	r := results[0]
	assert.Equal(t, "gap_pct", r.Feature)
	assert.Equal(t, 100, r.ValidRows)
	assert.False(t, r.MedianFallback)
	assert.Greater(t, r.OptimalThreshold, 4.0)
	assert.Less(t, r.OptimalThreshold, 6.0)
	assert.Equal(t, domain.DirectionAbove, r.Direction)
	assert.Greater(t, r.WinRateLift, 0.0)

	assert.InDelta(t, 60.0, r.BaselineWinRatePct, 1e-9)
	assert.InDelta(t, 0.2, r.BaselineExpectancy, 1e-9)
	assert.InDelta(t, 80.0, r.AboveWinRatePct, 1e-9)
	assert.InDelta(t, 40.0, r.BelowWinRatePct, 1e-9)
	assert.Equal(t, 50, r.TradesAbove)
	assert.Equal(t, 50, r.TradesBelow)
	assert.InDelta(t, 20.0, r.WinRateLift, 1e-9)
	assert.InDelta(t, 0.4, r.ExpectancyLift, 1e-9)
	assert.Greater(t, r.Correlation, 0.0)
	assert.InDelta(t, 1.0, r.ImpactScore, 1e-9)

	require.Len(t, r.Profile, domain.ProfileBins)
	assert.Equal(t, 5, r.Profile[0].Count)
	require.NotNil(t, r.Profile[0].WinRatePct)
	assert.InDelta(t, 40.0, *r.Profile[0].WinRatePct, 1e-9)
	assert.InDelta(t, 0.0, r.Profile[0].Lower, 1e-9)
	assert.InDelta(t, 0.4, r.Profile[0].Upper, 1e-9)
}

func TestAnalyze_ConstantFeatureFallsBackToMedian(t *testing.T) {
	results, err := newAnalyzer().Analyze(worker.Control{}, syntheticTable(t), "pnl", nil)
	require.NoError(t, err)

	var flat *domain.FeatureImpactResult
	for i := range results {
		if results[i].Feature == "flat" {
			flat = &results[i]
		}
	}
	require.NotNil(t, flat)
	assert.True(t, flat.MedianFallback)
	assert.Equal(t, 1.0, flat.OptimalThreshold)
	assert.Equal(t, 0.0, flat.Correlation)
	assert.Equal(t, 0.0, flat.WinRateLift)
	assert.Equal(t, 0.0, flat.ImpactScore)
}

func TestAnalyze_Exclusions(t *testing.T) {
	results, err := newAnalyzer().Analyze(worker.Control{}, syntheticTable(t), "pnl", []string{"flat"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "gap_pct", results[0].Feature)
}

func TestAnalyze_TooFewRows(t *testing.T) {
	table, err := domain.NewTableFromColumns(map[string][]float64{
		"pnl": {1, -1, 1, -1, 1, 1, -1, 1, 1},
		"x":   {1, 2, 3, 4, 5, 6, 7, 8, 9},
	}, nil, nil)
	require.NoError(t, err)

	results, err := newAnalyzer().Analyze(worker.Control{}, table, "pnl", nil)
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results[0]
	assert.Equal(t, 9, r.ValidRows)
	assert.Equal(t, 0.0, r.OptimalThreshold)
	assert.Equal(t, 0.0, r.ImpactScore)
	assert.Empty(t, r.Direction)
	assert.Nil(t, r.Profile)
}

func TestAnalyze_MissingGainColumn(t *testing.T) {
	results, err := newAnalyzer().Analyze(worker.Control{}, syntheticTable(t), "profit", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestAnalyze_CountsAnalyses(t *testing.T) {
	m := observability.NewMetrics("test", prometheus.NewRegistry())
	a := NewAnalyzer(Options{Logger: zerolog.Nop(), Metrics: m})

	_, err := a.Analyze(worker.Control{}, syntheticTable(t), "pnl", nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.FeatureAnalyses))
}

func TestAnalyze_Cancelled(t *testing.T) {
	tok := worker.NewToken()
	tok.Cancel()

	results, err := newAnalyzer().Analyze(worker.Control{Token: tok}, syntheticTable(t), "pnl", nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestDefaultExcluded(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"pnl", true},
		{domain.ColumnRawReturn, true},
		{domain.ColumnAdverseExcursionPct, true},
		{"Date", true},
		{"entry_time", true},
		{"Ticker", true},
		{"symbol_name", true},
		{"id", true},
		{"trade_id", true},
		{"order-id", true},
		{"tradeId", true},
		{"ID", true},
		{"bid", false},
		{"avg_mid", false},
		{"liquid", false},
		{"paid", false},
		{"gap_pct", false},
		{"rvol", false},
		{"chg_5m", false},
	}
	for _, tt := range tests {
		if got := DefaultExcluded(tt.name, "pnl"); got != tt.want {
			t.Errorf("DefaultExcluded(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestCandidates_SampledWhenManyUniques(t *testing.T) {
	sorted := make([]float64, 200)
	for i := range sorted {
		sorted[i] = float64(i)
	}
	got := candidates(sorted)
	require.Len(t, got, SampledCandidates)
	assert.Greater(t, got[0], 0.0)
	assert.Less(t, got[len(got)-1], 199.0)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i], got[i-1])
	}
}

func TestCandidates_Midpoints(t *testing.T) {
	assert.Equal(t, []float64{1.5, 2.5}, candidates([]float64{1, 2, 2, 3}))
	assert.Empty(t, candidates([]float64{4, 4, 4}))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, []float64{0, 0.5, 1}, normalize([]float64{2, 3, 4}))
	assert.Equal(t, []float64{0.5, 0.5}, normalize([]float64{7, 7}))
}
