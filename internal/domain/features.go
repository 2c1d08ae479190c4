package domain

// ImpactDirection says which side of the optimal threshold performs better.
type ImpactDirection string

const (
	DirectionAbove ImpactDirection = "above"
	DirectionBelow ImpactDirection = "below"
)

// ProfileBins is the fixed length of the percentile win-rate profile.
const ProfileBins = 20

// ProfileBin is one equal-frequency bin of a feature's win-rate profile.
type ProfileBin struct {
	Lower      float64
	Upper      float64
	Count      int
	WinRatePct *float64 // nil for an empty bin
}

// FeatureImpactResult summarizes how one feature separates winners from losers.
// Win rates are percentages; expectancies are in the gain column's units.
type FeatureImpactResult struct {
	Feature     string
	ValidRows   int
	Correlation float64

	OptimalThreshold float64
	Direction        ImpactDirection
	MedianFallback   bool // no candidate satisfied the per-side minimum

	BaselineWinRatePct float64
	BaselineExpectancy float64
	AboveWinRatePct    float64
	AboveExpectancy    float64
	BelowWinRatePct    float64
	BelowExpectancy    float64
	TradesAbove        int
	TradesBelow        int

	WinRateLift    float64
	ExpectancyLift float64
	ImpactScore    float64

	Profile []ProfileBin
}
