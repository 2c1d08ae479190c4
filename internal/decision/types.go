package decision

import (
	"errors"
	"fmt"
	"math"

	"trade-edge-lab/internal/domain"
)

// Degradation thresholds in percent.
const (
	RobustBelowPct  = 10.0
	CautionBelowPct = 25.0
)

// Validation errors.
var (
	ErrEmptyPrimaryMetric   = errors.New("primary metric is required")
	ErrNegativeDegradation  = errors.New("degradation must be >= 0")
	ErrInvalidDegradation   = errors.New("degradation must be finite")
	ErrNoNeighborhoodResult = errors.New("no neighborhood result")
)

// LevelDegradation is the averaged primary-metric degradation of one filter at one
// perturbation level.
type LevelDegradation struct {
	Column         string
	Level          float64
	DegradationPct float64
}

// RobustnessInput contains the numbers a robustness verdict is derived from.
type RobustnessInput struct {
	PrimaryMetric string
	BaselineValue *float64 // primary metric on the unperturbed filters

	Levels              []LevelDegradation
	WorstDegradationPct float64

	// Truncated is true when the scan was cancelled before every level ran.
	Truncated bool
}

// Validate checks input invariants.
func (in *RobustnessInput) Validate() error {
	if in == nil {
		return ErrNoNeighborhoodResult
	}
	if in.PrimaryMetric == "" {
		return ErrEmptyPrimaryMetric
	}
	if err := checkDegradation(in.WorstDegradationPct); err != nil {
		return fmt.Errorf("worst: %w", err)
	}
	for _, l := range in.Levels {
		if err := checkDegradation(l.DegradationPct); err != nil {
			return fmt.Errorf("%s at %.2f: %w", l.Column, l.Level, err)
		}
	}
	return nil
}

func checkDegradation(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrInvalidDegradation
	}
	if v < 0 {
		return ErrNegativeDegradation
	}
	return nil
}

// CriterionResult represents pass/fail for one check.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// RobustnessReport is the verdict with its checklist.
type RobustnessReport struct {
	Verdict       domain.Robustness
	PrimaryMetric string
	Checks        []CriterionResult
	Truncated     bool
}
