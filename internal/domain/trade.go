package domain

// TradeRecord is one row of the trade table.
// Returns are fractional (0.05 = 5%), excursions are percentage points.
type TradeRecord struct {
	TradeID string // optional, carried through for reporting

	RawReturn             float64 // realized return as a fraction
	AdverseExcursionPct   float64 // max move against the position before exit (>= 0)
	FavorableExcursionPct float64 // max move in favor of the position before exit (>= 0)

	// Features holds named numeric feature values (e.g. gap_pct, rvol, chg_5m).
	Features map[string]float64

	// Labels holds non-numeric columns (ticker, date strings). Never analysed.
	Labels map[string]string

	// OrderKey is the entry timestamp in unix ms, nil when the source has no ordering.
	OrderKey *int64
}

// Built-in column names of the trade table.
const (
	ColumnRawReturn             = "raw_return"
	ColumnAdverseExcursionPct   = "adverse_excursion_pct"
	ColumnFavorableExcursionPct = "favorable_excursion_pct"
)

// IsBuiltinColumn reports whether name is one of the core trade columns.
func IsBuiltinColumn(name string) bool {
	switch name {
	case ColumnRawReturn, ColumnAdverseExcursionPct, ColumnFavorableExcursionPct:
		return true
	default:
		return false
	}
}
