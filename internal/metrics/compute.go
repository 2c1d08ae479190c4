// Package metrics derives the canonical TradingMetrics bundle from an adjusted-return
// series. Every consumer (dashboard, sweeps, coordinator) goes through Compute so the
// formulas are identical for one call or thousands.
package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"trade-edge-lab/internal/adjust"
	"trade-edge-lab/internal/domain"
)

// Options carries the capital parameters needed by the sizing metrics.
type Options struct {
	StartCapital       float64
	FlatStake          float64
	FractionalKellyPct float64 // 0 selects domain.DefaultFractionalKellyPct
}

// OptionsFromPolicy extracts metric options from an adjustment policy.
func OptionsFromPolicy(p domain.AdjustmentPolicy) Options {
	return Options{
		StartCapital:       p.StartCapital,
		FlatStake:          p.FlatStake,
		FractionalKellyPct: p.FractionalKellyPct,
	}
}

// IsWin is the single winner rule: strictly positive return.
// Breakeven trades (== 0) count toward the trade total but are neither winners nor losers.
func IsWin(r float64) bool {
	return r > 0
}

// IsLoss is the single loser rule: strictly negative return.
func IsLoss(r float64) bool {
	return r < 0
}

// Compute derives the metrics bundle from an adjusted series.
// Pure and deterministic; undefined metrics are nil.
func Compute(s *adjust.Series, opts Options) *domain.TradingMetrics {
	if s == nil {
		return &domain.TradingMetrics{}
	}
	return computeFromReturns(s.Returns, s.Stopped, s.Ordered, opts)
}

func computeFromReturns(returns []float64, stopped []bool, ordered bool, opts Options) *domain.TradingMetrics {
	n := len(returns)
	m := &domain.TradingMetrics{NumTrades: n}
	if n == 0 {
		return m
	}

	fracKelly := opts.FractionalKellyPct
	if fracKelly == 0 {
		fracKelly = domain.DefaultFractionalKellyPct
	}

	var winners, losers []float64
	for _, r := range returns {
		switch {
		case IsWin(r):
			winners = append(winners, r)
		case IsLoss(r):
			losers = append(losers, r)
		default:
			m.NumBreakeven++
		}
	}
	m.NumWinners = len(winners)
	m.NumLosers = len(losers)

	mean := stat.Mean(returns, nil)
	winRate := float64(len(winners)) / float64(n) * 100
	m.WinRatePct = ptr(winRate)
	m.EVPct = ptr(mean * 100)
	m.TotalReturnPct = ptr(floats.Sum(returns) * 100)

	var variance *float64
	if n >= 2 {
		v := stat.Variance(returns, nil)
		variance = &v
		m.StdDevPct = ptr(math.Sqrt(v) * 100)
	}

	if len(winners) > 0 {
		m.AvgWinnerPct = ptr(stat.Mean(winners, nil) * 100)
		m.MedianWinnerPct = ptr(computeMedian(winners) * 100)
	}
	if len(losers) > 0 {
		m.AvgLoserPct = ptr(stat.Mean(losers, nil) * 100)
		m.MedianLoserPct = ptr(computeMedian(losers) * 100)
	}

	if m.AvgWinnerPct != nil && m.AvgLoserPct != nil && *m.AvgLoserPct != 0 {
		pr := *m.AvgWinnerPct / math.Abs(*m.AvgLoserPct)
		m.ProfitRatio = &pr

		edge := ((pr+1)*(winRate/100) - 1) * 100
		m.EdgePct = &edge

		if pr > 0 {
			kelly := edge / pr
			m.KellyPct = &kelly
			m.FractionalKellyPct = ptr(kelly * fracKelly / 100)
		}
	}

	if variance != nil {
		evPct := *m.EVPct
		if m.KellyPct != nil && *m.KellyPct > 0 {
			m.EGFullKelly = ptr(expectedGrowth(*m.KellyPct/100, evPct, *variance))
			m.EGFracKelly = ptr(expectedGrowth(*m.FractionalKellyPct/100, evPct, *variance))
		}
		if opts.FlatStake > 0 && opts.StartCapital > 0 {
			m.EGFlatStake = ptr(expectedGrowth(opts.FlatStake/opts.StartCapital, evPct, *variance))
		}
	}

	if stopped != nil {
		hits := 0
		for _, s := range stopped {
			if s {
				hits++
			}
		}
		m.MaxLossPct = ptr(float64(hits) / float64(n) * 100)
	}

	if ordered {
		m.MaxDDPct = ptr(computeMaxDrawdown(returns))
	}
	m.MaxConsecutiveLosses = computeMaxConsecutiveLosses(returns)

	return m
}

// expectedGrowth approximates the per-trade geometric growth for bet fraction f:
// EG(f) = f·μ − f²·σ²/2, with μ the EV in percentage points, f and σ² decimal.
func expectedGrowth(f, evPct, variance float64) float64 {
	return f*evPct - f*f*variance/2
}

// computeMedian returns the median using linear interpolation.
func computeMedian(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return computePercentile(sorted, 0.50)
}

// computePercentile uses linear interpolation.
// sorted must be pre-sorted ASC.
// p is percentile (0.10 = 10th percentile).
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// Percentile exposes the interpolated percentile for other engines.
// values need not be sorted; NaN for an empty slice.
func Percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return computePercentile(sorted, p)
}

// computeMaxDrawdown returns the worst peak-to-trough decline, in percent, of the
// equity curve built by compounding returns from 1.0.
// Returns must be in chronological order. Equity is floored at zero, so a
// return at or below -100% caps the drawdown at 100.
func computeMaxDrawdown(returns []float64) float64 {
	equity := 1.0
	peak := 1.0
	maxDrawdown := 0.0

	for _, r := range returns {
		equity *= 1 + r
		if equity < 0 {
			equity = 0
		}
		if equity > peak {
			peak = equity
		}
		drawdown := (peak - equity) / peak * 100
		if drawdown > maxDrawdown {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of losing returns.
func computeMaxConsecutiveLosses(returns []float64) int {
	maxStreak := 0
	currentStreak := 0

	for _, r := range returns {
		if IsLoss(r) {
			currentStreak++
			if currentStreak > maxStreak {
				maxStreak = currentStreak
			}
		} else {
			currentStreak = 0
		}
	}
	return maxStreak
}

func ptr(v float64) *float64 {
	return &v
}
