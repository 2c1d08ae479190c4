package scenario

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-edge-lab/internal/adjust"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
	"trade-edge-lab/internal/worker"
)

func testPolicy(t *testing.T) domain.AdjustmentPolicy {
	t.Helper()
	p, err := domain.NewAdjustmentPolicy(20, 5, 10000, 100, 25)
	require.NoError(t, err)
	return p
}

func testTable() *domain.Table {
	raw := []float64{0.10, -0.05, 0.08, -0.03, 0.12}
	mae := []float64{5, 15, 8, 25, 3}
	mfe := []float64{12, 2, 10, 1, 15}
	records := make([]domain.TradeRecord, len(raw))
	for i := range raw {
		key := int64(i)
		records[i] = domain.TradeRecord{
			RawReturn:             raw[i],
			AdverseExcursionPct:   mae[i],
			FavorableExcursionPct: mfe[i],
			OrderKey:              &key,
		}
	}
	return domain.NewTable(records)
}

func newEngine() *Engine {
	return NewEngine(Options{Logger: zerolog.Nop()})
}

func TestStopSweep_DefaultLevels(t *testing.T) {
	rows, err := newEngine().StopSweep(worker.Control{}, testTable(), testPolicy(t), nil)
	require.NoError(t, err)
	require.Len(t, rows, len(DefaultStopLevels))

	baselines := 0
	for i, row := range rows {
		assert.Equal(t, DefaultStopLevels[i], row.StopLossPct)
		if row.Baseline {
			baselines++
			assert.Equal(t, 20.0, row.StopLossPct)
		}
		assert.Equal(t, 5, row.Metrics.NumTrades)
	}
	assert.Equal(t, 1, baselines)

	assert.InDelta(t, 40.0, *rows[0].Metrics.MaxLossPct, 1e-9)
	assert.InDelta(t, 20.0, *rows[1].Metrics.MaxLossPct, 1e-9)
	assert.InDelta(t, 0.0, *rows[2].Metrics.MaxLossPct, 1e-9)
}

func TestStopSweep_MaxLossNonIncreasing(t *testing.T) {
	rows, err := newEngine().StopSweep(worker.Control{}, testTable(), testPolicy(t), []float64{0, 2, 5, 10, 15, 25, 40, 100})
	require.NoError(t, err)

	for i := 1; i < len(rows); i++ {
		prev := *rows[i-1].Metrics.MaxLossPct
		cur := *rows[i].Metrics.MaxLossPct
		if cur > prev {
			t.Errorf("max loss rose from %v to %v between stops %v and %v",
				prev, cur, rows[i-1].StopLossPct, rows[i].StopLossPct)
		}
	}
}

func TestStopSweep_BaselineMatchesDirectCompute(t *testing.T) {
	policy := testPolicy(t)
	table := testTable()

	rows, err := newEngine().StopSweep(worker.Control{}, table, policy, []float64{20})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	direct := metrics.Compute(adjust.FromTable(table, policy), metrics.OptionsFromPolicy(policy))
	assert.Equal(t, direct, rows[0].Metrics)
	assert.InDelta(t, 60.0, *rows[0].Metrics.WinRatePct, 1e-9)
}

func TestStopSweep_InvalidLevel(t *testing.T) {
	_, err := newEngine().StopSweep(worker.Control{}, testTable(), testPolicy(t), []float64{10, -5})
	if !errors.Is(err, domain.ErrInvalidPolicy) {
		t.Fatalf("expected ErrInvalidPolicy, got %v", err)
	}
}

func TestStopSweep_NoExcursionData(t *testing.T) {
	table, err := domain.NewTableFromColumns(map[string][]float64{
		domain.ColumnRawReturn: {0.1, -0.1},
	}, nil, nil)
	require.NoError(t, err)

	rows, err := newEngine().StopSweep(worker.Control{}, table, testPolicy(t), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStopSweep_CancelTruncates(t *testing.T) {
	tok := worker.NewToken()
	ctl := worker.Control{
		Token: tok,
		Progress: func(current, total int) {
			if current == 2 {
				tok.Cancel()
			}
		},
	}

	rows, err := newEngine().StopSweep(ctl, testTable(), testPolicy(t), nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestOffsetSweep_ZeroOffsetRoundTrip(t *testing.T) {
	policy := testPolicy(t)
	table := testTable()

	rows, err := newEngine().OffsetSweep(worker.Control{}, table, policy, []float64{0}, SideShort)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.True(t, row.Baseline)
	assert.Equal(t, table.Len(), row.QualifyingCount)

	direct := metrics.Compute(adjust.FromTable(table, policy), metrics.OptionsFromPolicy(policy))
	assert.Equal(t, direct, row.Metrics)
	assert.InDelta(t, -4.0, *row.AvgReturnPct, 1e-9)
	assert.InDelta(t, -20.0, *row.TotalReturnPct, 1e-9)
}

func TestOffsetSweep_ShortQualification(t *testing.T) {
	rows, err := newEngine().OffsetSweep(worker.Control{}, testTable(), testPolicy(t), []float64{-10, 10}, "")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Negative offset needs favorable excursion >= 10: trades 1, 3, 5.
	assert.Equal(t, 3, rows[0].QualifyingCount)

	// Positive offset needs adverse excursion >= 10: trades 2 and 4.
	assert.Equal(t, 2, rows[1].QualifyingCount)
	// (-0.05-0.10)/1.1 - 0.05 and (-0.03-0.10)/1.1 - 0.05, neither stopped.
	assert.InDelta(t, -17.7272727, *rows[1].AvgReturnPct, 1e-6)
	assert.InDelta(t, 0.0, *rows[1].Metrics.MaxLossPct, 1e-9)
}

func TestOffsetSweep_InvalidSide(t *testing.T) {
	_, err := newEngine().OffsetSweep(worker.Control{}, testTable(), testPolicy(t), nil, Side("sideways"))
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestOffsetSweep_CancelledBeforeStart(t *testing.T) {
	tok := worker.NewToken()
	tok.Cancel()

	rows, err := newEngine().OffsetSweep(worker.Control{Token: tok}, testTable(), testPolicy(t), nil, SideShort)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReenter(t *testing.T) {
	tests := []struct {
		name        string
		raw, mae    float64
		mfe, offset float64
		side        Side
		wantRaw     float64
		wantAdverse float64
		wantOK      bool
	}{
		{"zero offset is identity", 0.05, 8, 12, 0, SideShort, 0.05, 8, true},
		{"short positive offset", -0.03, 25, 1, 10, SideShort, -0.13 / 1.1, 15 / 1.1, true},
		{"short positive offset not reached", 0.10, 5, 12, 10, SideShort, 0, 0, false},
		{"short negative offset needs favorable", 0.10, 5, 12, -10, SideShort, 0.20 / 0.9, 15 / 0.9, true},
		{"long negative offset needs adverse", 0.05, 8, 12, -5, SideLong, 0.10 / 0.95, 3 / 0.95, true},
		{"long negative offset not reached", 0.05, 3, 12, -5, SideLong, 0, 0, false},
		{"nan favorable fails non-zero offset", 0.05, 8, nan(), -5, SideShort, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, adverse, ok := Reenter(tt.raw, tt.mae, tt.mfe, tt.offset, tt.side)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			assert.InDelta(t, tt.wantRaw, raw, 1e-9)
			assert.InDelta(t, tt.wantAdverse, adverse, 1e-9)
		})
	}
}
