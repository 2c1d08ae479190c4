package reporting

import (
	"time"

	"trade-edge-lab/internal/domain"
)

// Generator produces reports from a published result bundle.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{
		now: func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate starts a report for bundle, computed from table.
// Sweep and feature sections are attached by the caller.
func (g *Generator) Generate(source string, table *domain.Table, bundle *domain.ResultBundle) *Report {
	r := &Report{
		GeneratedAt: g.now(),
		Source:      source,
	}
	if table != nil {
		r.DataSummary.TotalRows = table.Len()
		_, r.DataSummary.Ordered = table.OrderKeys()
	}
	if bundle != nil {
		r.DataSummary.SubsetRows = bundle.Subset.Len()
		r.DataSummary.Excluded = bundle.Excluded
		r.DataSummary.Filters = bundle.Filters
		r.DataSummary.Policy = bundle.Policy
		r.Metrics = bundle.Metrics
	}
	return r
}
