package domain

// TradingMetrics is the canonical performance bundle for one return series.
// Values in *Pct fields are percentage points. Optional values are nil when the
// metric is undefined for the series (empty subset, zero denominator, missing
// ordering key) and must be rendered as "—", never as 0.
type TradingMetrics struct {
	NumTrades    int
	NumWinners   int // return > 0
	NumLosers    int // return < 0
	NumBreakeven int // return == 0, counted in NumTrades only

	WinRatePct     *float64
	EVPct          *float64 // mean adjusted return
	TotalReturnPct *float64 // sum of adjusted returns
	StdDevPct      *float64 // sample standard deviation, n >= 2

	AvgWinnerPct    *float64
	AvgLoserPct     *float64
	MedianWinnerPct *float64
	MedianLoserPct  *float64

	ProfitRatio        *float64 // avg winner / |avg loser|
	EdgePct            *float64
	KellyPct           *float64
	FractionalKellyPct *float64

	EGFullKelly *float64
	EGFracKelly *float64
	EGFlatStake *float64

	MaxLossPct           *float64 // share of trades closed by the stop
	MaxDDPct             *float64 // compounded equity drawdown, needs ordering key
	MaxConsecutiveLosses int
}
