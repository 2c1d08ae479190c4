// Package featureimpact ranks numeric features by how well a single threshold on
// each one separates winning from losing trades.
package featureimpact

import (
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
	"trade-edge-lab/internal/observability"
	"trade-edge-lab/internal/worker"
)

// Search limits.
const (
	MinValidRows       = 10  // fewer valid rows yields a zeroed result
	MinTradesPerSide   = 5   // per side of a candidate threshold
	MaxUniqueMidpoints = 100 // above this, candidates are sampled percentiles
	SampledCandidates  = 50  // sampled between the 5th and 95th percentile
)

// Impact score weights.
const (
	WeightExpectancyLift = 0.50
	WeightWinRateLift    = 0.25
	WeightCorrelation    = 0.25
)

// Analyzer runs feature impact analysis.
type Analyzer struct {
	log     zerolog.Logger
	metrics *observability.Metrics
}

// Options contains configuration for creating an Analyzer.
type Options struct {
	Logger  zerolog.Logger
	Metrics *observability.Metrics // optional
}

// NewAnalyzer creates a feature impact analyzer.
func NewAnalyzer(opts Options) *Analyzer {
	return &Analyzer{
		log:     opts.Logger.With().Str("component", "featureimpact").Logger(),
		metrics: opts.Metrics,
	}
}

// DefaultExcluded reports whether a column is never analysed: the gain column, the
// built-in trade columns, and names that look like dates, times, tickers or ids.
func DefaultExcluded(name, gainColumn string) bool {
	if name == gainColumn || domain.IsBuiltinColumn(name) {
		return true
	}
	lower := strings.ToLower(name)
	for _, part := range []string{"date", "time", "ticker", "symbol"} {
		if strings.Contains(lower, part) {
			return true
		}
	}
	return isIDColumn(name)
}

// isIDColumn matches "id" itself, a "_id" or "-id" suffix, and camelCase "tradeId".
func isIDColumn(name string) bool {
	lower := strings.ToLower(name)
	if lower == "id" || strings.HasSuffix(lower, "_id") || strings.HasSuffix(lower, "-id") {
		return true
	}
	return len(name) > 2 && strings.HasSuffix(name, "Id")
}

// Analyze evaluates every numeric column that is not excluded against gainColumn
// and returns results sorted by impact score, highest first. A missing or empty gain
// column yields no results. On cancellation the features analysed so far are
// scored and returned.
func (a *Analyzer) Analyze(ctl worker.Control, table *domain.Table, gainColumn string, excluded []string) ([]domain.FeatureImpactResult, error) {
	if !table.HasData(gainColumn) {
		a.log.Warn().Str("gain_column", gainColumn).Msg("feature impact skipped: no gain data")
		return []domain.FeatureImpactResult{}, nil
	}
	gain, _ := table.Column(gainColumn)

	skip := make(map[string]bool, len(excluded))
	for _, name := range excluded {
		skip[name] = true
	}
	var features []string
	for _, name := range table.NumericColumns() {
		if skip[name] || DefaultExcluded(name, gainColumn) {
			continue
		}
		features = append(features, name)
	}

	results := make([]domain.FeatureImpactResult, 0, len(features))
	for i, name := range features {
		if ctl.Cancelled() {
			a.log.Warn().Int("computed", i).Int("total", len(features)).Msg("feature impact cancelled")
			break
		}
		col, _ := table.Column(name)
		res := analyzeFeature(name, col, gain)
		results = append(results, res)
		a.log.Debug().Str("feature", name).Int("valid_rows", res.ValidRows).
			Float64("threshold", res.OptimalThreshold).Str("direction", string(res.Direction)).
			Msg("feature analysed")
		ctl.Report(i+1, len(features))
	}
	a.metrics.RecordFeatureAnalyses(len(results))

	score(results)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ImpactScore > results[j].ImpactScore
	})
	return results, nil
}

// side holds win rate and expectancy of one side of a split.
type side struct {
	n          int
	winRatePct float64
	expectancy float64
}

func summarize(gains []float64) side {
	s := side{n: len(gains)}
	if s.n == 0 {
		return s
	}
	wins := 0
	for _, g := range gains {
		if metrics.IsWin(g) {
			wins++
		}
	}
	s.winRatePct = float64(wins) / float64(s.n) * 100
	s.expectancy = stat.Mean(gains, nil)
	return s
}

func split(xs, gains []float64, t float64) (above, below side) {
	var up, down []float64
	for i, x := range xs {
		if x > t {
			up = append(up, gains[i])
		} else {
			down = append(down, gains[i])
		}
	}
	return summarize(up), summarize(down)
}

func analyzeFeature(name string, col, gain []float64) domain.FeatureImpactResult {
	var xs, gs []float64
	for i, v := range col {
		if math.IsNaN(v) || math.IsNaN(gain[i]) {
			continue
		}
		xs = append(xs, v)
		gs = append(gs, gain[i])
	}

	res := domain.FeatureImpactResult{Feature: name, ValidRows: len(xs)}
	if len(xs) < MinValidRows {
		return res
	}

	if c := stat.Correlation(xs, gs, nil); !math.IsNaN(c) {
		res.Correlation = c
	}

	base := summarize(gs)
	res.BaselineWinRatePct = base.winRatePct
	res.BaselineExpectancy = base.expectancy

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)

	found := false
	bestDiff := math.Inf(-1)
	var (
		best                 float64
		bestAbove, bestBelow side
	)
	for _, t := range candidates(sorted) {
		above, below := split(xs, gs, t)
		if above.n < MinTradesPerSide || below.n < MinTradesPerSide {
			continue
		}
		diff := math.Abs(above.winRatePct - below.winRatePct)
		if diff > bestDiff {
			found = true
			bestDiff = diff
			best, bestAbove, bestBelow = t, above, below
		}
	}
	if !found {
		best = stat.Quantile(0.5, stat.LinInterp, sorted, nil)
		bestAbove, bestBelow = split(xs, gs, best)
		res.MedianFallback = true
	}

	res.OptimalThreshold = best
	res.AboveWinRatePct, res.AboveExpectancy = bestAbove.winRatePct, bestAbove.expectancy
	res.BelowWinRatePct, res.BelowExpectancy = bestBelow.winRatePct, bestBelow.expectancy
	res.TradesAbove, res.TradesBelow = bestAbove.n, bestBelow.n

	win := bestAbove
	res.Direction = domain.DirectionAbove
	if bestBelow.winRatePct > bestAbove.winRatePct {
		win = bestBelow
		res.Direction = domain.DirectionBelow
	}
	res.WinRateLift = win.winRatePct - base.winRatePct
	res.ExpectancyLift = win.expectancy - base.expectancy

	res.Profile = profile(xs, gs)
	return res
}

// candidates returns midpoints between consecutive unique values, or sampled
// percentiles when there are too many unique values. sorted must be ascending.
func candidates(sorted []float64) []float64 {
	uniq := make([]float64, 0, len(sorted))
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			uniq = append(uniq, v)
		}
	}

	if len(uniq) <= MaxUniqueMidpoints {
		out := make([]float64, 0, len(uniq))
		for i := 1; i < len(uniq); i++ {
			out = append(out, (uniq[i-1]+uniq[i])/2)
		}
		return out
	}

	ps := floats.Span(make([]float64, SampledCandidates), 0.05, 0.95)
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = stat.Quantile(p, stat.LinInterp, sorted, nil)
	}
	return out
}

// profile splits rows into ProfileBins equal-frequency bins ordered by feature value.
func profile(xs, gs []float64) []domain.ProfileBin {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return xs[idx[a]] < xs[idx[b]] })

	n := len(idx)
	bins := make([]domain.ProfileBin, domain.ProfileBins)
	for k := range bins {
		start := k * n / domain.ProfileBins
		end := (k + 1) * n / domain.ProfileBins
		at := start
		if at >= n {
			at = n - 1
		}
		bins[k].Lower = xs[idx[at]]
		bins[k].Upper = xs[idx[at]]
		if end <= start {
			continue
		}
		bins[k].Upper = xs[idx[end-1]]
		bins[k].Count = end - start
		wins := 0
		for _, i := range idx[start:end] {
			if metrics.IsWin(gs[i]) {
				wins++
			}
		}
		wr := float64(wins) / float64(end-start) * 100
		bins[k].WinRatePct = &wr
	}
	return bins
}

// score fills ImpactScore from the normalized lifts and |correlation| of results
// with enough valid rows. Zeroed results keep a score of 0.
func score(results []domain.FeatureImpactResult) {
	var idx []int
	for i, r := range results {
		if r.ValidRows >= MinValidRows {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return
	}

	exp := make([]float64, len(idx))
	wr := make([]float64, len(idx))
	corr := make([]float64, len(idx))
	for k, i := range idx {
		exp[k] = results[i].ExpectancyLift
		wr[k] = results[i].WinRateLift
		corr[k] = math.Abs(results[i].Correlation)
	}
	exp, wr, corr = normalize(exp), normalize(wr), normalize(corr)

	for k, i := range idx {
		results[i].ImpactScore = WeightExpectancyLift*exp[k] + WeightWinRateLift*wr[k] + WeightCorrelation*corr[k]
	}
}

// normalize rescales values linearly to [0, 1]; all-equal values map to 0.5.
func normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	lo, hi := floats.Min(values), floats.Max(values)
	for i, v := range values {
		if hi == lo {
			out[i] = 0.5
			continue
		}
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}
