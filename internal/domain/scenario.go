package domain

// StopScenario is one row of a stop-level sweep.
type StopScenario struct {
	StopLossPct float64
	Baseline    bool // stop level equals the active policy's stop
	Metrics     *TradingMetrics
}

// OffsetScenario is one row of an entry-offset sweep.
type OffsetScenario struct {
	OffsetPct       float64
	Baseline        bool // offset 0
	QualifyingCount int
	WinRatePct      *float64
	TotalReturnPct  *float64
	AvgReturnPct    *float64
	EGFracKelly     *float64
	EGFlatStake     *float64
	Metrics         *TradingMetrics
}

// PartialExitComparison holds the full-hold and blended bundles side by side.
type PartialExitComparison struct {
	TriggerColumn string
	TargetValue   float64
	ScaleOut      float64
	Triggered     int // trades whose trigger crossed the target
	Total         int // trades evaluated
	FullHold      *TradingMetrics
	Blended       *TradingMetrics
}

// BoundSide selects which bound of a predicate a step sweep moves.
type BoundSide string

const (
	BoundMin BoundSide = "min"
	BoundMax BoundSide = "max"
)

// MetricDelta is the change of one metric against the baseline row.
type MetricDelta struct {
	Metric string
	Value  *float64
	Delta  *float64
	Better *bool // nil when the direction is neutral or either value is undefined
}

// ThresholdRow is one row of a single-bound step sweep.
type ThresholdRow struct {
	Index     int
	Threshold float64
	Baseline  bool // index 5, the current bound
	Metrics   *TradingMetrics
	Deltas    []MetricDelta
}

// PerturbationKind names one of the four neighborhood perturbations.
type PerturbationKind string

const (
	PerturbShiftDown PerturbationKind = "shift_down"
	PerturbShiftUp   PerturbationKind = "shift_up"
	PerturbExpand    PerturbationKind = "expand"
	PerturbContract  PerturbationKind = "contract"
)

// Perturbation is one perturbed bound pair and its metrics.
type Perturbation struct {
	Kind    PerturbationKind
	Min     float64
	Max     float64
	Metrics *TradingMetrics
}

// NeighborhoodLevel aggregates the four perturbations at one level.
type NeighborhoodLevel struct {
	FilterIndex    int
	Column         string
	Level          float64
	Perturbations  []Perturbation
	Average        *TradingMetrics
	DegradationPct float64 // of the primary metric vs baseline, >= 0
}

// Robustness verdict of a neighborhood scan.
type Robustness string

const (
	RobustnessRobust  Robustness = "robust"
	RobustnessCaution Robustness = "caution"
	RobustnessFragile Robustness = "fragile"
)

// NeighborhoodResult is the output of a neighborhood robustness scan.
type NeighborhoodResult struct {
	PrimaryMetric       string
	Baseline            *TradingMetrics
	Levels              []NeighborhoodLevel
	WorstDegradationPct float64
	Verdict             Robustness
	Truncated           bool
}

// GridAxis is one axis of a grid sweep.
type GridAxis struct {
	Column string
	Min    float64
	Max    float64
}

// GridResult holds per-metric arrays of a 1-D or 2-D grid sweep.
// Cells[metric][i][j]: i indexes axis 0, j indexes axis 1 (always 0 for 1-D).
// A nil cell is undefined or was not computed because of cancellation.
type GridResult struct {
	Axes       []GridAxis
	Values     [][]float64 // sampled values per axis
	Cells      map[string][][]*float64
	TradeCount [][]int
	Computed   int
	Total      int
	Truncated  bool
}
