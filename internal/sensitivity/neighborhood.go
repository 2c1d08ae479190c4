package sensitivity

import (
	"fmt"
	"math"

	"trade-edge-lab/internal/decision"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
	"trade-edge-lab/internal/worker"
)

// DefaultLevels are the perturbation levels used when none are given.
var DefaultLevels = []float64{0.05, 0.10, 0.15}

// DefaultPrimaryMetric is the metric whose degradation drives the verdict.
const DefaultPrimaryMetric = metrics.NameEVPct

// NeighborhoodParams configures a neighborhood scan.
type NeighborhoodParams struct {
	Levels        []float64 // fractions of the bound range; nil selects DefaultLevels
	PrimaryMetric string    // empty selects DefaultPrimaryMetric

	// Baseline is the published bundle's metrics for the unperturbed filters.
	// Nil computes it here.
	Baseline *domain.TradingMetrics
}

// Perturb returns the four perturbed bound pairs of [lo, hi] at level.
func Perturb(lo, hi, level float64) []domain.Perturbation {
	d := (hi - lo) * level
	return []domain.Perturbation{
		{Kind: domain.PerturbShiftDown, Min: lo - d, Max: hi - d},
		{Kind: domain.PerturbShiftUp, Min: lo + d, Max: hi + d},
		{Kind: domain.PerturbExpand, Min: lo - d, Max: hi + d},
		{Kind: domain.PerturbContract, Min: lo + d, Max: hi - d},
	}
}

// Degradation returns how much worse v is than base, in percent of |base|, never
// negative. The sign follows the metric's direction. When base is undefined or zero
// the result is 0 if v is not worse and 100 otherwise.
func Degradation(m metrics.Metric, base, v *float64) float64 {
	if base == nil {
		return 0
	}
	if v == nil {
		return 100
	}
	diff := *base - *v
	if m.Direction == metrics.LowerIsBetter {
		diff = -diff
	}
	if diff <= 0 {
		return 0
	}
	if *base == 0 {
		return 100
	}
	return diff / math.Abs(*base) * 100
}

// Neighborhood perturbs every two-sided filter at every level, holding the other
// filters fixed, and classifies the worst averaged degradation of the primary
// metric. Filters with an open bound are skipped. On cancellation only completed
// levels are reported and Truncated is set.
func (e *Engine) Neighborhood(ctl worker.Control, table *domain.Table, preds []domain.Predicate, policy domain.AdjustmentPolicy, params NeighborhoodParams) (*domain.NeighborhoodResult, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	levels := params.Levels
	if levels == nil {
		levels = DefaultLevels
	}
	for _, l := range levels {
		if math.IsNaN(l) || math.IsInf(l, 0) || l < 0 {
			return nil, fmt.Errorf("%w: perturbation level must be >= 0, got %v", domain.ErrInvalidParameter, l)
		}
	}
	name := params.PrimaryMetric
	if name == "" {
		name = DefaultPrimaryMetric
	}
	primary, err := metrics.Lookup(name)
	if err != nil {
		return nil, err
	}

	baseline := params.Baseline
	if baseline == nil {
		if baseline, err = e.evaluate(table, preds, policy); err != nil {
			return nil, err
		}
	}
	baseValue := primary.Value(baseline)

	var bounded []int
	for i, p := range preds {
		if p.Bounded() {
			bounded = append(bounded, i)
		}
	}

	res := &domain.NeighborhoodResult{
		PrimaryMetric: name,
		Baseline:      baseline,
		Levels:        make([]domain.NeighborhoodLevel, 0, len(bounded)*len(levels)),
	}

	total := len(bounded) * len(levels) * 4
	done := 0
scan:
	for _, fi := range bounded {
		lo, hi := *preds[fi].Min, *preds[fi].Max
		for _, level := range levels {
			perturbed := Perturb(lo, hi, level)
			bundles := make([]*domain.TradingMetrics, 0, len(perturbed))
			for k := range perturbed {
				if ctl.Cancelled() {
					res.Truncated = true
					e.log.Warn().Int("computed", done).Int("total", total).Msg("neighborhood scan cancelled")
					break scan
				}
				trial := domain.ClonePredicates(preds)
				trial[fi] = domain.Range(preds[fi].Column, perturbed[k].Min, perturbed[k].Max)
				m, err := e.evaluate(table, trial, policy)
				if err != nil {
					return nil, err
				}
				perturbed[k].Metrics = m
				bundles = append(bundles, m)
				done++
				ctl.Report(done, total)
			}

			avg := metrics.Average(bundles)
			deg := Degradation(primary, baseValue, primary.Value(avg))
			res.Levels = append(res.Levels, domain.NeighborhoodLevel{
				FilterIndex:    fi,
				Column:         preds[fi].Column,
				Level:          level,
				Perturbations:  perturbed,
				Average:        avg,
				DegradationPct: deg,
			})
			if deg > res.WorstDegradationPct {
				res.WorstDegradationPct = deg
			}
			e.log.Debug().Str("column", preds[fi].Column).Float64("level", level).
				Float64("degradation_pct", deg).Msg("neighborhood level")
		}
	}

	res.Verdict = decision.ClassifyRobustness(res.WorstDegradationPct)
	return res, nil
}
