// Package sensitivity measures how metrics react when filter bounds move:
// neighborhood robustness scans, grid sweeps and single-bound step sweeps.
package sensitivity

import (
	"github.com/rs/zerolog"

	"trade-edge-lab/internal/adjust"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/filter"
	"trade-edge-lab/internal/metrics"
)

// Engine runs threshold sensitivity scans through a filter engine.
type Engine struct {
	filter filter.Engine
	log    zerolog.Logger
}

// Options contains configuration for creating an Engine.
type Options struct {
	Filter filter.Engine // nil selects filter.RangeEngine
	Logger zerolog.Logger
}

// NewEngine creates a sensitivity engine.
func NewEngine(opts Options) *Engine {
	f := opts.Filter
	if f == nil {
		f = filter.NewRangeEngine()
	}
	return &Engine{
		filter: f,
		log:    opts.Logger.With().Str("component", "sensitivity").Logger(),
	}
}

// evaluate filters the table and computes the bundle for the subset.
func (e *Engine) evaluate(table *domain.Table, preds []domain.Predicate, policy domain.AdjustmentPolicy) (*domain.TradingMetrics, error) {
	subset, err := e.filter.Apply(table, preds)
	if err != nil {
		return nil, err
	}
	return metrics.Compute(adjust.FromTable(subset, policy), metrics.OptionsFromPolicy(policy)), nil
}
