package domain

// ResultKey identifies the inputs a bundle was computed from.
// Each version is bumped by the coordinator when its input changes.
type ResultKey struct {
	TableVersion  uint64
	FilterVersion uint64
	PolicyVersion uint64
}

// Before reports whether k is older than other in any input.
func (k ResultKey) Before(other ResultKey) bool {
	return k.TableVersion < other.TableVersion ||
		k.FilterVersion < other.FilterVersion ||
		k.PolicyVersion < other.PolicyVersion
}

// ResultBundle is the published, read-only result for one ResultKey.
// Consumers must not modify any field.
type ResultBundle struct {
	Key         ResultKey
	Fingerprint string // hash of table, filters and policy

	Policy  AdjustmentPolicy
	Filters []Predicate
	Subset  *Table // filtered table

	AdjustedReturns []float64 // fractions, ordering-key order
	Stopped         []bool
	Excluded        int // subset rows dropped for NaN inputs

	Metrics    *TradingMetrics
	ComputedAt int64 // unix ms
}
