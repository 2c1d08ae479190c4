// Package scenario re-runs the metrics kernel across stop levels, entry offsets and
// partial-exit assumptions.
package scenario

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"trade-edge-lab/internal/adjust"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
	"trade-edge-lab/internal/worker"
)

// Default sweep inputs.
var (
	DefaultStopLevels = []float64{10, 20, 30, 40, 50, 75, 100}
	DefaultOffsets    = []float64{-20, -10, 0, 10, 20, 30, 40}
)

// Engine runs scenario sweeps. It holds no table state and is safe for concurrent use.
type Engine struct {
	log zerolog.Logger
}

// Options contains configuration for creating an Engine.
type Options struct {
	Logger zerolog.Logger
}

// NewEngine creates a scenario engine.
func NewEngine(opts Options) *Engine {
	return &Engine{
		log: opts.Logger.With().Str("component", "scenario").Logger(),
	}
}

// StopSweep rebuilds adjusted returns for every stop level with the policy's
// efficiency unchanged and computes one bundle per level. Nil levels select
// DefaultStopLevels. A table without adverse excursion data yields no rows.
// On cancellation the rows computed so far are returned.
func (e *Engine) StopSweep(ctl worker.Control, table *domain.Table, policy domain.AdjustmentPolicy, levels []float64) ([]domain.StopScenario, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if levels == nil {
		levels = DefaultStopLevels
	}
	policies := make([]domain.AdjustmentPolicy, len(levels))
	for i, level := range levels {
		p, err := policy.WithStop(level)
		if err != nil {
			return nil, fmt.Errorf("stop level %v: %w", level, err)
		}
		policies[i] = p
	}

	if !table.HasData(domain.ColumnAdverseExcursionPct) {
		e.log.Warn().Msg("stop sweep skipped: no adverse excursion data")
		return []domain.StopScenario{}, nil
	}

	opts := metrics.OptionsFromPolicy(policy)
	rows := make([]domain.StopScenario, 0, len(levels))
	for i, p := range policies {
		if ctl.Cancelled() {
			e.log.Warn().Int("computed", i).Int("total", len(levels)).Msg("stop sweep cancelled")
			break
		}
		m := metrics.Compute(adjust.FromTable(table, p), opts)
		rows = append(rows, domain.StopScenario{
			StopLossPct: p.StopLossPct,
			Baseline:    p.StopLossPct == policy.StopLossPct,
			Metrics:     m,
		})
		e.log.Debug().Float64("stop_pct", p.StopLossPct).Int("trades", m.NumTrades).Msg("stop scenario")
		ctl.Report(i+1, len(levels))
	}
	return rows, nil
}

// Side selects the position direction used to re-derive entry geometry.
type Side string

const (
	// SideShort follows the documented short-position geometry.
	SideShort Side = "short"
	// SideLong swaps the roles of adverse and favorable excursion.
	SideLong Side = "long"
)

// OffsetSweep re-enters every trade at entry×(1+offset/100) and recomputes metrics
// on the trades that could have been filled at that price. Nil offsets select
// DefaultOffsets; an empty side selects SideShort.
func (e *Engine) OffsetSweep(ctl worker.Control, table *domain.Table, policy domain.AdjustmentPolicy, offsets []float64, side Side) ([]domain.OffsetScenario, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if offsets == nil {
		offsets = DefaultOffsets
	}
	if side == "" {
		side = SideShort
	}
	if side != SideShort && side != SideLong {
		return nil, fmt.Errorf("%w: side %q", domain.ErrInvalidParameter, side)
	}
	for _, off := range offsets {
		if math.IsNaN(off) || math.IsInf(off, 0) || off <= -100 {
			return nil, fmt.Errorf("%w: entry offset must be > -100, got %v", domain.ErrInvalidParameter, off)
		}
	}

	if !table.HasData(domain.ColumnAdverseExcursionPct) {
		e.log.Warn().Msg("offset sweep skipped: no adverse excursion data")
		return []domain.OffsetScenario{}, nil
	}

	order, ordered := adjust.Order(table)
	raw, _ := table.Column(domain.ColumnRawReturn)
	mae, _ := table.Column(domain.ColumnAdverseExcursionPct)
	mfe, _ := table.Column(domain.ColumnFavorableExcursionPct)
	opts := metrics.OptionsFromPolicy(policy)

	rows := make([]domain.OffsetScenario, 0, len(offsets))
	for i, off := range offsets {
		if ctl.Cancelled() {
			e.log.Warn().Int("computed", i).Int("total", len(offsets)).Msg("offset sweep cancelled")
			break
		}

		s := adjust.NewSeries(len(order), ordered)
		for _, row := range order {
			newRaw, newAdverse, ok := Reenter(raw[row], mae[row], mfe[row], off, side)
			if !ok {
				continue
			}
			s.Add(row, newRaw, newAdverse, policy)
		}

		m := metrics.Compute(s, opts)
		rows = append(rows, domain.OffsetScenario{
			OffsetPct:       off,
			Baseline:        off == 0,
			QualifyingCount: s.Len(),
			WinRatePct:      m.WinRatePct,
			TotalReturnPct:  m.TotalReturnPct,
			AvgReturnPct:    m.EVPct,
			EGFracKelly:     m.EGFracKelly,
			EGFlatStake:     m.EGFlatStake,
			Metrics:         m,
		})
		e.log.Debug().Float64("offset_pct", off).Int("qualifying", s.Len()).Msg("offset scenario")
		ctl.Report(i+1, len(offsets))
	}
	return rows, nil
}

// Reenter re-derives raw return and adverse excursion for an entry moved by offsetPct
// from the original entry at 1.0. ok is false when the trade could not have been
// filled at the new price or an input is NaN. Offset 0 always qualifies and returns
// the inputs unchanged.
func Reenter(rawReturn, adversePct, favorablePct, offsetPct float64, side Side) (newRaw, newAdversePct float64, ok bool) {
	if math.IsNaN(rawReturn) || math.IsNaN(adversePct) {
		return 0, 0, false
	}
	if offsetPct == 0 {
		return rawReturn, adversePct, true
	}

	// The excursion that proves the new price traded.
	reach := favorablePct
	if (side == SideLong) == (offsetPct < 0) {
		reach = adversePct
	}
	if math.IsNaN(reach) || reach < math.Abs(offsetPct) {
		return 0, 0, false
	}

	entry := 1 + offsetPct/100
	newRaw = (rawReturn - offsetPct/100) / entry
	if side == SideLong {
		lowest := 1 - adversePct/100
		newAdversePct = (entry - lowest) / entry * 100
	} else {
		highest := 1 + adversePct/100
		newAdversePct = (highest - entry) / entry * 100
	}
	return newRaw, newAdversePct, true
}
