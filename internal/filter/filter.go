// Package filter provides the Filter Engine boundary and an in-memory range engine.
package filter

import (
	"fmt"

	"trade-edge-lab/internal/domain"
)

// ErrUnknownColumn is returned when a predicate references a column the table lacks.
var ErrUnknownColumn = domain.ErrUnknownColumn

// Engine evaluates column-range predicates against a trade table and returns the
// matching subset. Implementations must be cheap to call repeatedly: sweeps call
// Apply once per row.
type Engine interface {
	Apply(table *domain.Table, preds []domain.Predicate) (*domain.Table, error)
}

// RangeEngine is the default Engine: all predicates must match (AND), bounds are
// inclusive and rows with NaN in a filtered column never match.
type RangeEngine struct{}

// NewRangeEngine creates a range engine.
func NewRangeEngine() *RangeEngine {
	return &RangeEngine{}
}

// Apply returns the rows of table matching every predicate, preserving row order.
func (RangeEngine) Apply(table *domain.Table, preds []domain.Predicate) (*domain.Table, error) {
	if len(preds) == 0 {
		return table, nil
	}

	cols := make([][]float64, len(preds))
	for i, p := range preds {
		col, ok := table.Column(p.Column)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, p.Column)
		}
		cols[i] = col
	}

	idx := make([]int, 0, table.Len())
	for row := 0; row < table.Len(); row++ {
		match := true
		for i, p := range preds {
			if !p.Matches(cols[i][row]) {
				match = false
				break
			}
		}
		if match {
			idx = append(idx, row)
		}
	}
	return table.Select(idx), nil
}

var _ Engine = RangeEngine{}
