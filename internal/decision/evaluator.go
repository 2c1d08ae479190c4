package decision

import (
	"fmt"

	"trade-edge-lab/internal/domain"
)

// ClassifyRobustness maps a worst-case degradation percentage to a verdict:
// below 10 is robust, below 25 caution, anything else fragile.
func ClassifyRobustness(worstDegradationPct float64) domain.Robustness {
	switch {
	case worstDegradationPct < RobustBelowPct:
		return domain.RobustnessRobust
	case worstDegradationPct < CautionBelowPct:
		return domain.RobustnessCaution
	default:
		return domain.RobustnessFragile
	}
}

// Evaluator builds robustness checklists.
type Evaluator struct{}

// NewEvaluator creates a new robustness evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate produces a RobustnessReport from input.
// The verdict is driven by the worst degradation only; the per-level checks list
// which perturbation levels stayed within the robust band.
func (e *Evaluator) Evaluate(input RobustnessInput) (*RobustnessReport, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	checks := make([]CriterionResult, 0, len(input.Levels)+2)

	baseline := "—"
	if input.BaselineValue != nil {
		baseline = fmt.Sprintf("%.4f", *input.BaselineValue)
	}
	checks = append(checks, CriterionResult{
		Name:      fmt.Sprintf("Baseline %s defined", input.PrimaryMetric),
		Threshold: "not —",
		Actual:    baseline,
		Pass:      input.BaselineValue != nil,
	})

	for _, l := range input.Levels {
		checks = append(checks, CriterionResult{
			Name:      fmt.Sprintf("%s ±%.0f%%", l.Column, l.Level*100),
			Threshold: fmt.Sprintf("< %.0f%%", RobustBelowPct),
			Actual:    fmt.Sprintf("%.2f%%", l.DegradationPct),
			Pass:      l.DegradationPct < RobustBelowPct,
		})
	}

	checks = append(checks, CriterionResult{
		Name:      "Worst degradation",
		Threshold: fmt.Sprintf("< %.0f%%", CautionBelowPct),
		Actual:    fmt.Sprintf("%.2f%%", input.WorstDegradationPct),
		Pass:      input.WorstDegradationPct < CautionBelowPct,
	})

	return &RobustnessReport{
		Verdict:       ClassifyRobustness(input.WorstDegradationPct),
		PrimaryMetric: input.PrimaryMetric,
		Checks:        checks,
		Truncated:     input.Truncated,
	}, nil
}
