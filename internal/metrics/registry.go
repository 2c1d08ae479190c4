package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"trade-edge-lab/internal/domain"
)

// ErrUnknownMetric is returned for a metric name that is not registered.
var ErrUnknownMetric = errors.New("unknown metric")

// Direction tells which way a metric improves.
type Direction int

const (
	// HigherIsBetter: EV, edge, Kelly, EG, win rate.
	HigherIsBetter Direction = iota
	// LowerIsBetter: max loss, drawdown, dispersion.
	LowerIsBetter
	// MoreIsNeutralGood: trade count; an increase is good, a decrease is neutral.
	MoreIsNeutralGood
)

// Metric is a named accessor into TradingMetrics.
type Metric struct {
	Name      string
	Direction Direction
	get       func(*domain.TradingMetrics) *float64
	set       func(*domain.TradingMetrics, *float64)
}

// Value returns the metric for m, nil when undefined.
func (d Metric) Value(m *domain.TradingMetrics) *float64 {
	if m == nil {
		return nil
	}
	return d.get(m)
}

// Better reports whether moving from base to v is an improvement.
// Nil means neutral or not comparable.
func (d Metric) Better(base, v *float64) *bool {
	if base == nil || v == nil || *base == *v {
		return nil
	}
	var better bool
	switch d.Direction {
	case HigherIsBetter:
		better = *v > *base
	case LowerIsBetter:
		better = *v < *base
	case MoreIsNeutralGood:
		if *v < *base {
			return nil
		}
		better = true
	}
	return &better
}

func field(name string, dir Direction, f func(*domain.TradingMetrics) **float64) Metric {
	return Metric{
		Name:      name,
		Direction: dir,
		get:       func(m *domain.TradingMetrics) *float64 { return *f(m) },
		set:       func(m *domain.TradingMetrics, v *float64) { *f(m) = v },
	}
}

func count(name string, f func(*domain.TradingMetrics) *int) Metric {
	return Metric{
		Name:      name,
		Direction: MoreIsNeutralGood,
		get: func(m *domain.TradingMetrics) *float64 {
			return ptr(float64(*f(m)))
		},
		set: func(m *domain.TradingMetrics, v *float64) {
			if v != nil {
				*f(m) = int(math.Round(*v))
			}
		},
	}
}

// Metric names accepted by Lookup.
const (
	NameNumTrades          = "num_trades"
	NameWinRatePct         = "win_rate_pct"
	NameEVPct              = "ev_pct"
	NameTotalReturnPct     = "total_return_pct"
	NameStdDevPct          = "stddev_pct"
	NameAvgWinnerPct       = "avg_winner_pct"
	NameAvgLoserPct        = "avg_loser_pct"
	NameMedianWinnerPct    = "median_winner_pct"
	NameMedianLoserPct     = "median_loser_pct"
	NameProfitRatio        = "profit_ratio"
	NameEdgePct            = "edge_pct"
	NameKellyPct           = "kelly_pct"
	NameFractionalKellyPct = "fractional_kelly_pct"
	NameEGFullKelly        = "eg_full_kelly"
	NameEGFracKelly        = "eg_frac_kelly"
	NameEGFlatStake        = "eg_flat_stake"
	NameMaxLossPct         = "max_loss_pct"
	NameMaxDDPct           = "max_dd_pct"
)

var registry = []Metric{
	count(NameNumTrades, func(m *domain.TradingMetrics) *int { return &m.NumTrades }),
	field(NameWinRatePct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.WinRatePct }),
	field(NameEVPct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.EVPct }),
	field(NameTotalReturnPct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.TotalReturnPct }),
	field(NameStdDevPct, LowerIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.StdDevPct }),
	field(NameAvgWinnerPct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.AvgWinnerPct }),
	field(NameAvgLoserPct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.AvgLoserPct }),
	field(NameMedianWinnerPct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.MedianWinnerPct }),
	field(NameMedianLoserPct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.MedianLoserPct }),
	field(NameProfitRatio, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.ProfitRatio }),
	field(NameEdgePct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.EdgePct }),
	field(NameKellyPct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.KellyPct }),
	field(NameFractionalKellyPct, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.FractionalKellyPct }),
	field(NameEGFullKelly, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.EGFullKelly }),
	field(NameEGFracKelly, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.EGFracKelly }),
	field(NameEGFlatStake, HigherIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.EGFlatStake }),
	field(NameMaxLossPct, LowerIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.MaxLossPct }),
	field(NameMaxDDPct, LowerIsBetter, func(m *domain.TradingMetrics) **float64 { return &m.MaxDDPct }),
}

// Lookup returns the registered metric with the given name.
func Lookup(name string) (Metric, error) {
	for _, m := range registry {
		if m.Name == name {
			return m, nil
		}
	}
	return Metric{}, fmt.Errorf("%w: %q", ErrUnknownMetric, name)
}

// LookupAll resolves a list of names, failing on the first unknown one.
func LookupAll(names []string) ([]Metric, error) {
	out := make([]Metric, 0, len(names))
	for _, name := range names {
		m, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

// All returns every registered metric in display order.
func All() []Metric {
	return append([]Metric(nil), registry...)
}

// Names returns all registered metric names sorted.
func Names() []string {
	names := make([]string, len(registry))
	for i, m := range registry {
		names[i] = m.Name
	}
	sort.Strings(names)
	return names
}

// DeltaNames is the default metric list reported by step sweeps.
var DeltaNames = []string{
	NameNumTrades,
	NameWinRatePct,
	NameEVPct,
	NameEdgePct,
	NameKellyPct,
	NameEGFracKelly,
	NameEGFlatStake,
	NameMaxLossPct,
}

// Average returns a bundle whose every metric is the mean of the defined values
// across bundles. A metric undefined in all bundles stays nil.
func Average(bundles []*domain.TradingMetrics) *domain.TradingMetrics {
	out := &domain.TradingMetrics{}
	if len(bundles) == 0 {
		return out
	}
	for _, def := range registry {
		sum, k := 0.0, 0
		for _, b := range bundles {
			if v := def.Value(b); v != nil {
				sum += *v
				k++
			}
		}
		if k > 0 {
			def.set(out, ptr(sum/float64(k)))
		}
	}
	return out
}
