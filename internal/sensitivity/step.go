package sensitivity

import (
	"fmt"
	"math"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
	"trade-edge-lab/internal/worker"
)

// Step sweep shape: StepCount thresholds with the current bound at StepBaselineIndex.
const (
	StepCount         = 11
	StepBaselineIndex = 5
)

// StepParams configures a single-bound step sweep.
type StepParams struct {
	FilterIndex int
	Side        domain.BoundSide
	Step        float64  // > 0
	Metrics     []string // nil selects metrics.DeltaNames

	// Baseline is the published bundle's metrics for the unchanged bound and is
	// reused for the baseline row. Nil computes that row like the others.
	Baseline *domain.TradingMetrics
}

// StepThresholds returns current + (i-5)·step for i in 0..10.
func StepThresholds(current, step float64) []float64 {
	out := make([]float64, StepCount)
	for i := range out {
		out[i] = current + float64(i-StepBaselineIndex)*step
	}
	return out
}

// StepSweep moves one bound of one filter through StepThresholds, re-filters, and
// computes metrics with the policy unchanged. Row 5 is the current bound and every
// row carries deltas against it. On cancellation the rows computed so far are
// returned; deltas need the baseline row and stay nil without it.
func (e *Engine) StepSweep(ctl worker.Control, table *domain.Table, preds []domain.Predicate, policy domain.AdjustmentPolicy, params StepParams) ([]domain.ThresholdRow, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if params.FilterIndex < 0 || params.FilterIndex >= len(preds) {
		return nil, fmt.Errorf("%w: filter index %d out of range", domain.ErrInvalidParameter, params.FilterIndex)
	}
	if math.IsNaN(params.Step) || math.IsInf(params.Step, 0) || params.Step <= 0 {
		return nil, fmt.Errorf("%w: step must be > 0, got %v", domain.ErrInvalidParameter, params.Step)
	}

	target := preds[params.FilterIndex]
	var current *float64
	switch params.Side {
	case domain.BoundMin:
		current = target.Min
	case domain.BoundMax:
		current = target.Max
	default:
		return nil, fmt.Errorf("%w: bound side %q", domain.ErrInvalidParameter, params.Side)
	}
	if current == nil {
		return nil, fmt.Errorf("%w: filter %q has no %s bound", domain.ErrInvalidParameter, target.Column, params.Side)
	}

	names := params.Metrics
	if names == nil {
		names = metrics.DeltaNames
	}
	defs, err := metrics.LookupAll(names)
	if err != nil {
		return nil, err
	}

	thresholds := StepThresholds(*current, params.Step)
	rows := make([]domain.ThresholdRow, 0, len(thresholds))
	for i, th := range thresholds {
		if ctl.Cancelled() {
			e.log.Warn().Int("computed", i).Int("total", len(thresholds)).Msg("step sweep cancelled")
			break
		}
		trial := domain.ClonePredicates(preds)
		v := th
		if params.Side == domain.BoundMin {
			trial[params.FilterIndex].Min = &v
		} else {
			trial[params.FilterIndex].Max = &v
		}

		m := params.Baseline
		if i != StepBaselineIndex || m == nil {
			if m, err = e.evaluate(table, trial, policy); err != nil {
				return nil, err
			}
		}
		rows = append(rows, domain.ThresholdRow{
			Index:     i,
			Threshold: th,
			Baseline:  i == StepBaselineIndex,
			Metrics:   m,
		})
		e.log.Debug().Str("column", target.Column).Float64("threshold", th).Int("trades", m.NumTrades).Msg("step row")
		ctl.Report(i+1, len(thresholds))
	}

	var base *domain.TradingMetrics
	if len(rows) > StepBaselineIndex {
		base = rows[StepBaselineIndex].Metrics
	}
	for i := range rows {
		rows[i].Deltas = Deltas(defs, base, rows[i].Metrics)
	}
	return rows, nil
}

// Deltas compares m against base for every metric in defs.
// A nil base leaves every Delta and Better nil.
func Deltas(defs []metrics.Metric, base, m *domain.TradingMetrics) []domain.MetricDelta {
	out := make([]domain.MetricDelta, len(defs))
	for k, d := range defs {
		v := d.Value(m)
		out[k] = domain.MetricDelta{Metric: d.Name, Value: v}
		if base == nil {
			continue
		}
		b := d.Value(base)
		if b != nil && v != nil {
			delta := *v - *b
			out[k].Delta = &delta
		}
		out[k].Better = d.Better(b, v)
	}
	return out
}
