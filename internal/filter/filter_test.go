package filter

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-edge-lab/internal/domain"
)

func testTable() *domain.Table {
	return domain.NewTable([]domain.TradeRecord{
		{TradeID: "t1", RawReturn: 0.01, Features: map[string]float64{"gap": 1}},
		{TradeID: "t2", RawReturn: 0.02, Features: map[string]float64{"gap": 5}},
		{TradeID: "t3", RawReturn: 0.03, Features: map[string]float64{"gap": 10}},
		{TradeID: "t4", RawReturn: 0.04, Features: map[string]float64{"gap": math.NaN()}},
	})
}

func TestRangeEngine_InclusiveBounds(t *testing.T) {
	sub, err := NewRangeEngine().Apply(testTable(), []domain.Predicate{domain.Range("gap", 5, 10)})
	require.NoError(t, err)

	require.Equal(t, 2, sub.Len())
	assert.Equal(t, "t2", sub.TradeID(0))
	assert.Equal(t, "t3", sub.TradeID(1))
}

func TestRangeEngine_OpenBound(t *testing.T) {
	lo := 2.0
	sub, err := NewRangeEngine().Apply(testTable(), []domain.Predicate{{Column: "gap", Min: &lo}})
	require.NoError(t, err)
	assert.Equal(t, 2, sub.Len(), "NaN row never matches")
}

func TestRangeEngine_AllPredicatesMustMatch(t *testing.T) {
	preds := []domain.Predicate{
		domain.Range("gap", 0, 10),
		domain.Range(domain.ColumnRawReturn, 0.015, 0.025),
	}
	sub, err := NewRangeEngine().Apply(testTable(), preds)
	require.NoError(t, err)
	require.Equal(t, 1, sub.Len())
	assert.Equal(t, "t2", sub.TradeID(0))
}

func TestRangeEngine_NoPredicates(t *testing.T) {
	table := testTable()
	sub, err := NewRangeEngine().Apply(table, nil)
	require.NoError(t, err)
	assert.Equal(t, table.Len(), sub.Len())
}

func TestRangeEngine_UnknownColumn(t *testing.T) {
	_, err := NewRangeEngine().Apply(testTable(), []domain.Predicate{domain.Range("rvol", 0, 1)})
	if !errors.Is(err, ErrUnknownColumn) {
		t.Errorf("expected ErrUnknownColumn, got %v", err)
	}
}
