// Package adjust converts raw trade returns into stop- and efficiency-adjusted returns.
package adjust

import (
	"math"
	"sort"

	"trade-edge-lab/internal/domain"
)

// StopFired reports whether the stop is hit for a trade with the given adverse excursion.
// The check always uses the unadjusted excursion.
func StopFired(adverseExcursionPct float64, policy domain.AdjustmentPolicy) bool {
	return adverseExcursionPct >= policy.StopLossPct
}

// Adjust returns the adjusted return (fraction) of one trade:
//
//	stopped  = -stop/100 if adverse >= stop else raw
//	adjusted = stopped - efficiency/100
//
// Efficiency is subtracted whether or not the stop fired. NaN inputs yield NaN.
func Adjust(rawReturn, adverseExcursionPct float64, policy domain.AdjustmentPolicy) float64 {
	if math.IsNaN(rawReturn) || math.IsNaN(adverseExcursionPct) {
		return math.NaN()
	}
	stopped := rawReturn
	if StopFired(adverseExcursionPct, policy) {
		stopped = -policy.StopLossPct / 100
	}
	return stopped - policy.EfficiencyPct/100
}

// Series is an ordered adjusted-return series ready for metric computation.
type Series struct {
	Returns  []float64 // adjusted returns as fractions
	Stopped  []bool    // stop fired for the matching return
	Rows     []int     // source table row of the matching return
	Ordered  bool      // returns follow the table's ordering key
	Excluded int       // rows dropped because of NaN inputs
}

// NewSeries returns an empty series with capacity for n returns.
func NewSeries(n int, ordered bool) *Series {
	return &Series{
		Returns: make([]float64, 0, n),
		Stopped: make([]bool, 0, n),
		Rows:    make([]int, 0, n),
		Ordered: ordered,
	}
}

// Add adjusts one trade and appends it. NaN results are counted as excluded.
func (s *Series) Add(row int, rawReturn, adverseExcursionPct float64, policy domain.AdjustmentPolicy) {
	adj := Adjust(rawReturn, adverseExcursionPct, policy)
	if math.IsNaN(adj) {
		s.Excluded++
		return
	}
	s.Returns = append(s.Returns, adj)
	s.Stopped = append(s.Stopped, StopFired(adverseExcursionPct, policy))
	s.Rows = append(s.Rows, row)
}

// AddAdjusted appends an already adjusted return.
func (s *Series) AddAdjusted(row int, adjusted float64, stopped bool) {
	if math.IsNaN(adjusted) {
		s.Excluded++
		return
	}
	s.Returns = append(s.Returns, adjusted)
	s.Stopped = append(s.Stopped, stopped)
	s.Rows = append(s.Rows, row)
}

// Len returns the number of returns in the series.
func (s *Series) Len() int {
	return len(s.Returns)
}

// FromTable adjusts every row of the table in ordering-key order.
// A table without any adverse excursion data cannot evaluate the stop, so only the
// efficiency deduction is applied.
func FromTable(table *domain.Table, policy domain.AdjustmentPolicy) *Series {
	order, ordered := Order(table)
	s := NewSeries(len(order), ordered)
	raw, _ := table.Column(domain.ColumnRawReturn)
	mae, _ := table.Column(domain.ColumnAdverseExcursionPct)
	if !table.HasData(domain.ColumnAdverseExcursionPct) {
		for _, i := range order {
			s.AddAdjusted(i, raw[i]-policy.EfficiencyPct/100, false)
		}
		return s
	}
	for _, i := range order {
		s.Add(i, raw[i], mae[i], policy)
	}
	return s
}

// Order returns row indices sorted by ordering key (stable), or table order when the
// table has no key. The bool reports whether an ordering key exists.
func Order(table *domain.Table) ([]int, bool) {
	n := table.Len()
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	keys, ok := table.OrderKeys()
	if !ok {
		return idx, false
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return keys[idx[a]] < keys[idx[b]]
	})
	return idx, true
}
