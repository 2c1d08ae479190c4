package reporting

import (
	"time"

	"trade-edge-lab/internal/domain"
)

// Report collects everything one CLI run produced. Nil or empty sections are
// omitted when rendering.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	Source      string

	// Data Summary
	DataSummary DataSummary

	// Core bundle for the current filters and policy
	Metrics *domain.TradingMetrics

	// Scenario sweeps
	StopScenarios   []domain.StopScenario
	OffsetScenarios []domain.OffsetScenario
	PartialExit     *domain.PartialExitComparison

	// Threshold sensitivity
	Neighborhood *domain.NeighborhoodResult
	Grid         *domain.GridResult
	StepColumn   string
	StepRows     []domain.ThresholdRow

	// Feature impact, sorted by impact score
	Features []domain.FeatureImpactResult
}

// DataSummary describes the inputs of the bundle.
type DataSummary struct {
	TotalRows  int
	SubsetRows int
	Excluded   int  // subset rows dropped for NaN inputs
	Ordered    bool // table has an ordering key
	Filters    []domain.Predicate
	Policy     domain.AdjustmentPolicy
}
