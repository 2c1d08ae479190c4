package scenario

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-edge-lab/internal/domain"
)

func nan() float64 { return math.NaN() }

func TestPartialExit_MFETarget(t *testing.T) {
	cmp, err := newEngine().PartialExit(testTable(), testPolicy(t), MFETargetSpec(12, 0.5))
	require.NoError(t, err)

	assert.Equal(t, 5, cmp.Total)
	assert.Equal(t, 2, cmp.Triggered)
	require.NotNil(t, cmp.FullHold)
	require.NotNil(t, cmp.Blended)

	// Trades 1 and 5 reach 12%: 0.5*(0.12-0.05) + 0.5*{0.05, 0.07}.
	assert.InDelta(t, -20.0, *cmp.FullHold.TotalReturnPct, 1e-9)
	assert.InDelta(t, -19.0, *cmp.Blended.TotalReturnPct, 1e-9)
	assert.Equal(t, *cmp.FullHold.MaxLossPct, *cmp.Blended.MaxLossPct)
}

func TestPartialExit_TimeStop(t *testing.T) {
	table, err := domain.NewTableFromColumns(map[string][]float64{
		domain.ColumnRawReturn:           {0.10, -0.08, 0.02},
		domain.ColumnAdverseExcursionPct: {1, 9, 2},
		"chg_30m":                        {3, -4, nan()},
	}, nil, nil)
	require.NoError(t, err)

	policy, err := domain.NewAdjustmentPolicy(50, 0, 1000, 0, 0)
	require.NoError(t, err)

	cmp, err := newEngine().PartialExit(table, policy, TimeStopSpec("chg_30m", -2, 0.5))
	require.NoError(t, err)

	assert.Equal(t, 1, cmp.Triggered)
	// Trade 2: 0.5*(-0.02) + 0.5*(-0.08) = -0.05.
	assert.InDelta(t, 4.0, *cmp.FullHold.TotalReturnPct, 1e-9)
	assert.InDelta(t, 7.0, *cmp.Blended.TotalReturnPct, 1e-9)
}

func TestPartialExit_Validation(t *testing.T) {
	e := newEngine()
	policy := testPolicy(t)

	for _, s := range []float64{0, 1, -0.2, 1.5} {
		_, err := e.PartialExit(testTable(), policy, MFETargetSpec(10, s))
		if !errors.Is(err, domain.ErrInvalidParameter) {
			t.Errorf("scale-out %v: expected ErrInvalidParameter, got %v", s, err)
		}
	}

	_, err := e.PartialExit(testTable(), policy, TimeStopSpec("chg_5m", 0, 0.5))
	if !errors.Is(err, domain.ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}

func TestBlend(t *testing.T) {
	p, err := domain.NewAdjustmentPolicy(20, 5, 1000, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.035+0.025, Blend(0.05, 0.12, 0.5, p), 1e-12)
}
