package domain

import (
	"errors"
	"fmt"
	"math"
)

// Validation errors.
var (
	// ErrInvalidPolicy is returned when an AdjustmentPolicy violates its invariants.
	ErrInvalidPolicy = errors.New("invalid adjustment policy")

	// ErrInvalidParameter is returned for invalid sweep or table parameters.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUnknownColumn is returned when a table lacks a referenced numeric column.
	ErrUnknownColumn = errors.New("unknown column")
)

// DefaultFractionalKellyPct is the fraction of full Kelly used when none is configured.
const DefaultFractionalKellyPct = 25.0

// AdjustmentPolicy holds the risk-management parameters applied to every trade.
// All percentages are percentage-of-100 (20 means 20%).
// Construct with NewAdjustmentPolicy; the zero value is not valid.
type AdjustmentPolicy struct {
	StopLossPct        float64 // stop distance in pct points
	EfficiencyPct      float64 // flat pct-point reduction applied to every trade (slippage)
	StartCapital       float64 // account size, > 0
	FlatStake          float64 // fixed stake per trade, >= 0 (0 disables flat-stake EG)
	FractionalKellyPct float64 // share of full Kelly, (0, 100]
}

// NewAdjustmentPolicy validates and returns a policy.
// A fractionalKellyPct of 0 selects DefaultFractionalKellyPct.
func NewAdjustmentPolicy(stopLossPct, efficiencyPct, startCapital, flatStake, fractionalKellyPct float64) (AdjustmentPolicy, error) {
	if fractionalKellyPct == 0 {
		fractionalKellyPct = DefaultFractionalKellyPct
	}
	p := AdjustmentPolicy{
		StopLossPct:        stopLossPct,
		EfficiencyPct:      efficiencyPct,
		StartCapital:       startCapital,
		FlatStake:          flatStake,
		FractionalKellyPct: fractionalKellyPct,
	}
	if err := p.Validate(); err != nil {
		return AdjustmentPolicy{}, err
	}
	return p, nil
}

// Validate checks the policy invariants. Values are never clamped.
func (p AdjustmentPolicy) Validate() error {
	switch {
	case !finite(p.StopLossPct) || p.StopLossPct < 0:
		return fmt.Errorf("%w: stop_loss_pct must be >= 0, got %v", ErrInvalidPolicy, p.StopLossPct)
	case !finite(p.EfficiencyPct) || p.EfficiencyPct < 0:
		return fmt.Errorf("%w: efficiency_pct must be >= 0, got %v", ErrInvalidPolicy, p.EfficiencyPct)
	case !finite(p.StartCapital) || p.StartCapital <= 0:
		return fmt.Errorf("%w: start_capital must be > 0, got %v", ErrInvalidPolicy, p.StartCapital)
	case !finite(p.FlatStake) || p.FlatStake < 0:
		return fmt.Errorf("%w: flat_stake must be >= 0, got %v", ErrInvalidPolicy, p.FlatStake)
	case !finite(p.FractionalKellyPct) || p.FractionalKellyPct <= 0 || p.FractionalKellyPct > 100:
		return fmt.Errorf("%w: fractional_kelly_pct must be in (0, 100], got %v", ErrInvalidPolicy, p.FractionalKellyPct)
	}
	return nil
}

// WithStop returns a copy of the policy using a different stop level.
func (p AdjustmentPolicy) WithStop(stopLossPct float64) (AdjustmentPolicy, error) {
	p.StopLossPct = stopLossPct
	if err := p.Validate(); err != nil {
		return AdjustmentPolicy{}, err
	}
	return p, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
