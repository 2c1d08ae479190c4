package adjust

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-edge-lab/internal/domain"
)

func policy(t *testing.T, stop, eff float64) domain.AdjustmentPolicy {
	t.Helper()
	p, err := domain.NewAdjustmentPolicy(stop, eff, 10000, 0, 0)
	require.NoError(t, err)
	return p
}

func TestAdjust(t *testing.T) {
	p := policy(t, 20, 5)

	tests := []struct {
		name    string
		raw     float64
		adverse float64
		want    float64
	}{
		{"not stopped", 0.10, 5, 0.05},
		{"stopped above", -0.03, 25, -0.25},
		{"stopped on equality", 0.30, 20, -0.25},
		{"winner below stop", 0.12, 19.99, 0.07},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Adjust(tt.raw, tt.adverse, p), 1e-12)
		})
	}
}

func TestAdjust_Pure(t *testing.T) {
	p := policy(t, 15, 0.5)
	first := Adjust(0.042, 12, p)
	for i := 0; i < 10; i++ {
		if got := Adjust(0.042, 12, p); got != first {
			t.Fatalf("iteration %d: expected %v, got %v", i, first, got)
		}
	}
}

func TestAdjust_NaNPropagates(t *testing.T) {
	p := policy(t, 20, 5)
	if !math.IsNaN(Adjust(math.NaN(), 5, p)) {
		t.Error("expected NaN for NaN return")
	}
	if !math.IsNaN(Adjust(0.1, math.NaN(), p)) {
		t.Error("expected NaN for NaN excursion")
	}
}

func TestFromTable_OrdersAndExcludes(t *testing.T) {
	k := func(v int64) *int64 { return &v }
	table := domain.NewTable([]domain.TradeRecord{
		{TradeID: "b", RawReturn: 0.02, AdverseExcursionPct: 1, OrderKey: k(2)},
		{TradeID: "a", RawReturn: 0.01, AdverseExcursionPct: 1, OrderKey: k(1)},
		{TradeID: "c", RawReturn: math.NaN(), AdverseExcursionPct: 1, OrderKey: k(3)},
	})

	s := FromTable(table, policy(t, 50, 0))

	assert.True(t, s.Ordered)
	assert.Equal(t, 1, s.Excluded)
	require.Equal(t, 2, s.Len())
	assert.Equal(t, []int{1, 0}, s.Rows)
	assert.InDelta(t, 0.01, s.Returns[0], 1e-12)
	assert.Equal(t, []bool{false, false}, s.Stopped)
}

func TestFromTable_NoOrderingKey(t *testing.T) {
	table := domain.NewTable([]domain.TradeRecord{
		{RawReturn: 0.02, AdverseExcursionPct: 30},
		{RawReturn: 0.01, AdverseExcursionPct: 1},
	})

	s := FromTable(table, policy(t, 20, 0))

	assert.False(t, s.Ordered)
	assert.Equal(t, []int{0, 1}, s.Rows)
	assert.Equal(t, []bool{true, false}, s.Stopped)
}

func TestFromTable_NoExcursionData(t *testing.T) {
	table, err := domain.NewTableFromColumns(map[string][]float64{
		domain.ColumnRawReturn: {0.05, -0.30},
	}, nil, nil)
	require.NoError(t, err)

	s := FromTable(table, policy(t, 10, 1))

	require.Equal(t, 2, s.Len())
	assert.Equal(t, 0, s.Excluded)
	assert.InDelta(t, 0.04, s.Returns[0], 1e-12)
	assert.InDelta(t, -0.31, s.Returns[1], 1e-12)
	assert.Equal(t, []bool{false, false}, s.Stopped)
}
