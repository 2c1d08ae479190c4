package scenario

import (
	"fmt"
	"math"

	"trade-edge-lab/internal/adjust"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
)

// Cross is the direction in which a trigger value must pass its target.
type Cross string

const (
	CrossAbove Cross = "above" // value >= target
	CrossBelow Cross = "below" // value <= target
)

// PartialExitSpec describes one partial-exit assumption.
// A share ScaleOut of the position exits at TargetReturn when the trigger column
// crosses TargetValue; the rest is held to the original exit.
type PartialExitSpec struct {
	TriggerColumn string
	TargetValue   float64
	Direction     Cross
	TargetReturn  float64 // fraction realized on the scaled-out share, before efficiency
	ScaleOut      float64 // in (0, 1)
}

// MFETargetSpec scales out at a favorable excursion target given in pct points.
func MFETargetSpec(targetPct, scaleOut float64) PartialExitSpec {
	return PartialExitSpec{
		TriggerColumn: domain.ColumnFavorableExcursionPct,
		TargetValue:   targetPct,
		Direction:     CrossAbove,
		TargetReturn:  targetPct / 100,
		ScaleOut:      scaleOut,
	}
}

// TimeStopSpec scales out when the price change recorded in column (e.g. chg_30m,
// pct points) is at or below thresholdPct at that minute.
func TimeStopSpec(column string, thresholdPct, scaleOut float64) PartialExitSpec {
	return PartialExitSpec{
		TriggerColumn: column,
		TargetValue:   thresholdPct,
		Direction:     CrossBelow,
		TargetReturn:  thresholdPct / 100,
		ScaleOut:      scaleOut,
	}
}

// Validate checks the partial-exit parameters.
func (s PartialExitSpec) Validate() error {
	switch {
	case s.TriggerColumn == "":
		return fmt.Errorf("%w: trigger column is required", domain.ErrInvalidParameter)
	case s.Direction != CrossAbove && s.Direction != CrossBelow:
		return fmt.Errorf("%w: cross direction %q", domain.ErrInvalidParameter, s.Direction)
	case math.IsNaN(s.ScaleOut) || s.ScaleOut <= 0 || s.ScaleOut >= 1:
		return fmt.Errorf("%w: scale-out must be in (0, 1), got %v", domain.ErrInvalidParameter, s.ScaleOut)
	case math.IsNaN(s.TargetValue) || math.IsInf(s.TargetValue, 0):
		return fmt.Errorf("%w: target value must be finite", domain.ErrInvalidParameter)
	case math.IsNaN(s.TargetReturn) || math.IsInf(s.TargetReturn, 0):
		return fmt.Errorf("%w: target return must be finite", domain.ErrInvalidParameter)
	}
	return nil
}

func (s PartialExitSpec) triggered(v float64) bool {
	if math.IsNaN(v) {
		return false
	}
	if s.Direction == CrossBelow {
		return v <= s.TargetValue
	}
	return v >= s.TargetValue
}

// Blend returns the blended adjusted return of one trade whose full-hold adjusted
// return is fullHold. Efficiency is charged on the scaled-out share too.
func Blend(fullHold, targetReturn, scaleOut float64, policy domain.AdjustmentPolicy) float64 {
	return scaleOut*(targetReturn-policy.EfficiencyPct/100) + (1-scaleOut)*fullHold
}

// PartialExit computes the full-hold and blended bundles side by side.
// A trigger column that exists but holds only NaN triggers nothing.
func (e *Engine) PartialExit(table *domain.Table, policy domain.AdjustmentPolicy, spec PartialExitSpec) (*domain.PartialExitComparison, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	trigger, ok := table.Column(spec.TriggerColumn)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownColumn, spec.TriggerColumn)
	}

	full := adjust.FromTable(table, policy)
	blended := adjust.NewSeries(full.Len(), full.Ordered)
	blended.Excluded = full.Excluded

	hits := 0
	for k, row := range full.Rows {
		r := full.Returns[k]
		if spec.triggered(trigger[row]) {
			r = Blend(r, spec.TargetReturn, spec.ScaleOut, policy)
			hits++
		}
		blended.AddAdjusted(row, r, full.Stopped[k])
	}

	opts := metrics.OptionsFromPolicy(policy)
	out := &domain.PartialExitComparison{
		TriggerColumn: spec.TriggerColumn,
		TargetValue:   spec.TargetValue,
		ScaleOut:      spec.ScaleOut,
		Triggered:     hits,
		Total:         full.Len(),
		FullHold:      metrics.Compute(full, opts),
		Blended:       metrics.Compute(blended, opts),
	}
	e.log.Debug().Str("trigger", spec.TriggerColumn).Int("triggered", hits).Int("total", full.Len()).
		Msg("partial exit comparison")
	return out, nil
}
