package domain

// Predicate is an inclusive range condition on one numeric column.
// A nil bound is open.
type Predicate struct {
	Column string
	Min    *float64
	Max    *float64
}

// Range returns a predicate with both bounds set.
func Range(column string, lo, hi float64) Predicate {
	return Predicate{Column: column, Min: &lo, Max: &hi}
}

// Matches reports whether v satisfies the predicate. NaN never matches.
func (p Predicate) Matches(v float64) bool {
	if v != v {
		return false
	}
	if p.Min != nil && v < *p.Min {
		return false
	}
	if p.Max != nil && v > *p.Max {
		return false
	}
	return true
}

// Bounded reports whether both bounds are set.
func (p Predicate) Bounded() bool {
	return p.Min != nil && p.Max != nil
}

// ClonePredicates deep-copies a predicate list so bounds can be rewritten safely.
func ClonePredicates(preds []Predicate) []Predicate {
	out := make([]Predicate, len(preds))
	for i, p := range preds {
		out[i] = Predicate{Column: p.Column}
		if p.Min != nil {
			v := *p.Min
			out[i].Min = &v
		}
		if p.Max != nil {
			v := *p.Max
			out[i].Max = &v
		}
	}
	return out
}
