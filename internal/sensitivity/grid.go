package sensitivity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
	"trade-edge-lab/internal/worker"
)

// Grid resolution limits and window size.
const (
	MinResolution = 5
	MaxResolution = 25
	WindowFrac    = 0.05 // half-width of each cell's window as a share of the axis range
)

// GridParams configures a grid sweep.
type GridParams struct {
	Axes       []domain.GridAxis // one or two
	Resolution int               // samples per axis, in [5, 25]
	Metrics    []string          // nil selects metrics.DeltaNames
}

// Validate checks the grid parameters.
func (p GridParams) Validate() error {
	if len(p.Axes) < 1 || len(p.Axes) > 2 {
		return fmt.Errorf("%w: grid needs 1 or 2 axes, got %d", domain.ErrInvalidParameter, len(p.Axes))
	}
	if p.Resolution < MinResolution || p.Resolution > MaxResolution {
		return fmt.Errorf("%w: grid resolution must be in [%d, %d], got %d",
			domain.ErrInvalidParameter, MinResolution, MaxResolution, p.Resolution)
	}
	for _, a := range p.Axes {
		if a.Column == "" {
			return fmt.Errorf("%w: grid axis column is required", domain.ErrInvalidParameter)
		}
		if math.IsNaN(a.Min) || math.IsNaN(a.Max) || math.IsInf(a.Min, 0) || math.IsInf(a.Max, 0) || a.Max <= a.Min {
			return fmt.Errorf("%w: axis %q needs finite min < max", domain.ErrInvalidParameter, a.Column)
		}
	}
	if len(p.Axes) == 2 && p.Axes[0].Column == p.Axes[1].Column {
		return fmt.Errorf("%w: grid axes must use different columns", domain.ErrInvalidParameter)
	}
	return nil
}

// Grid samples Resolution evenly spaced values per axis and, at each point, filters
// on a ±5% window of the axis range around the sample. Active filters on other
// columns are held fixed; filters on an axis column are replaced by the window.
// Cells not reached before cancellation stay nil and Truncated is set.
func (e *Engine) Grid(ctl worker.Control, table *domain.Table, preds []domain.Predicate, policy domain.AdjustmentPolicy, params GridParams) (*domain.GridResult, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	names := params.Metrics
	if names == nil {
		names = metrics.DeltaNames
	}
	defs, err := metrics.LookupAll(names)
	if err != nil {
		return nil, err
	}

	axisCols := make(map[string]bool, len(params.Axes))
	for _, a := range params.Axes {
		axisCols[a.Column] = true
	}
	fixed := make([]domain.Predicate, 0, len(preds))
	for _, p := range domain.ClonePredicates(preds) {
		if !axisCols[p.Column] {
			fixed = append(fixed, p)
		}
	}

	r := params.Resolution
	values := make([][]float64, len(params.Axes))
	windows := make([]float64, len(params.Axes))
	for k, a := range params.Axes {
		values[k] = floats.Span(make([]float64, r), a.Min, a.Max)
		windows[k] = (a.Max - a.Min) * WindowFrac
	}

	rows, cols := r, 1
	if len(params.Axes) == 2 {
		cols = r
	}

	res := &domain.GridResult{
		Axes:       append([]domain.GridAxis(nil), params.Axes...),
		Values:     values,
		Cells:      make(map[string][][]*float64, len(defs)),
		TradeCount: make([][]int, rows),
		Total:      rows * cols,
	}
	for _, d := range defs {
		grid := make([][]*float64, rows)
		for i := range grid {
			grid[i] = make([]*float64, cols)
		}
		res.Cells[d.Name] = grid
	}
	for i := range res.TradeCount {
		res.TradeCount[i] = make([]int, cols)
	}

scan:
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if ctl.Cancelled() {
				res.Truncated = true
				e.log.Warn().Int("computed", res.Computed).Int("total", res.Total).Msg("grid sweep cancelled")
				break scan
			}

			trial := append([]domain.Predicate(nil), fixed...)
			point := []int{i, j}
			for k, a := range params.Axes {
				v := values[k][point[k]]
				trial = append(trial, domain.Range(a.Column, v-windows[k], v+windows[k]))
			}

			m, err := e.evaluate(table, trial, policy)
			if err != nil {
				return nil, err
			}
			for _, d := range defs {
				res.Cells[d.Name][i][j] = d.Value(m)
			}
			res.TradeCount[i][j] = m.NumTrades
			res.Computed++
			ctl.Report(res.Computed, res.Total)
		}
	}

	e.log.Debug().Int("axes", len(params.Axes)).Int("resolution", r).Int("computed", res.Computed).Msg("grid sweep")
	return res, nil
}
