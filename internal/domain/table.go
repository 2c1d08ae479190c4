package domain

import (
	"fmt"
	"math"
	"sort"
)

// Table is an immutable, columnar trade table.
// Numeric columns are homogeneous []float64 keyed by name; missing values are NaN.
// Label columns hold non-numeric values and are never used as features.
// Slices returned by accessors are shared and must be treated as read-only.
type Table struct {
	n        int
	ids      []string
	numeric  map[string][]float64
	labels   map[string][]string
	orderKey []int64 // nil when the source has no ordering key
}

// NewTable builds a table from row records.
// A feature absent from a record becomes NaN in that row. The ordering key is kept
// only if every record carries one.
func NewTable(records []TradeRecord) *Table {
	n := len(records)
	t := &Table{
		n:       n,
		ids:     make([]string, n),
		numeric: make(map[string][]float64),
		labels:  make(map[string][]string),
	}

	raw := make([]float64, n)
	mae := make([]float64, n)
	mfe := make([]float64, n)
	ordered := n > 0
	keys := make([]int64, n)

	for i, r := range records {
		t.ids[i] = r.TradeID
		raw[i] = r.RawReturn
		mae[i] = r.AdverseExcursionPct
		mfe[i] = r.FavorableExcursionPct
		if r.OrderKey == nil {
			ordered = false
		} else {
			keys[i] = *r.OrderKey
		}
		for name := range r.Features {
			if _, ok := t.numeric[name]; !ok && !IsBuiltinColumn(name) {
				t.numeric[name] = nanColumn(n)
			}
		}
		for name := range r.Labels {
			if _, ok := t.labels[name]; !ok {
				t.labels[name] = make([]string, n)
			}
		}
	}

	for i, r := range records {
		for name, v := range r.Features {
			if IsBuiltinColumn(name) {
				continue
			}
			t.numeric[name][i] = v
		}
		for name, v := range r.Labels {
			t.labels[name][i] = v
		}
	}

	t.numeric[ColumnRawReturn] = raw
	t.numeric[ColumnAdverseExcursionPct] = mae
	t.numeric[ColumnFavorableExcursionPct] = mfe
	if ordered {
		t.orderKey = keys
	}
	return t
}

// NewTableFromColumns builds a table from already-columnar data.
// All columns must have the same length. Missing built-in columns are filled with NaN,
// which is how a source without excursion data is represented.
func NewTableFromColumns(numeric map[string][]float64, labels map[string][]string, orderKey []int64) (*Table, error) {
	n := -1
	check := func(name string, l int) error {
		if n == -1 {
			n = l
			return nil
		}
		if l != n {
			return fmt.Errorf("%w: column %q has %d rows, expected %d", ErrInvalidParameter, name, l, n)
		}
		return nil
	}

	for name, col := range numeric {
		if err := check(name, len(col)); err != nil {
			return nil, err
		}
	}
	for name, col := range labels {
		if err := check(name, len(col)); err != nil {
			return nil, err
		}
	}
	if orderKey != nil {
		if err := check("order_key", len(orderKey)); err != nil {
			return nil, err
		}
	}
	if n == -1 {
		n = 0
	}

	t := &Table{
		n:       n,
		ids:     make([]string, n),
		numeric: make(map[string][]float64, len(numeric)+3),
		labels:  make(map[string][]string, len(labels)),
	}
	for name, col := range numeric {
		t.numeric[name] = append([]float64(nil), col...)
	}
	for name, col := range labels {
		t.labels[name] = append([]string(nil), col...)
	}
	for _, name := range []string{ColumnRawReturn, ColumnAdverseExcursionPct, ColumnFavorableExcursionPct} {
		if _, ok := t.numeric[name]; !ok {
			t.numeric[name] = nanColumn(n)
		}
	}
	if orderKey != nil {
		t.orderKey = append([]int64(nil), orderKey...)
	}
	return t, nil
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.n
}

// Column returns the numeric column with the given name.
func (t *Table) Column(name string) ([]float64, bool) {
	if t == nil {
		return nil, false
	}
	col, ok := t.numeric[name]
	return col, ok
}

// HasData reports whether the named numeric column exists and holds at least one
// non-NaN value.
func (t *Table) HasData(name string) bool {
	col, ok := t.Column(name)
	if !ok {
		return false
	}
	for _, v := range col {
		if !math.IsNaN(v) {
			return true
		}
	}
	return false
}

// NumericColumns returns all numeric column names sorted.
func (t *Table) NumericColumns() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.numeric))
	for name := range t.numeric {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LabelColumns returns all label column names sorted.
func (t *Table) LabelColumns() []string {
	if t == nil {
		return nil
	}
	names := make([]string, 0, len(t.labels))
	for name := range t.labels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Label returns the label column with the given name.
func (t *Table) Label(name string) ([]string, bool) {
	if t == nil {
		return nil, false
	}
	col, ok := t.labels[name]
	return col, ok
}

// OrderKeys returns the ordering key column, false when the table has none.
func (t *Table) OrderKeys() ([]int64, bool) {
	if t == nil || t.orderKey == nil {
		return nil, false
	}
	return t.orderKey, true
}

// TradeID returns the identifier of row i.
func (t *Table) TradeID(i int) string {
	return t.ids[i]
}

// Row materializes row i as a TradeRecord.
func (t *Table) Row(i int) TradeRecord {
	r := TradeRecord{
		TradeID:               t.ids[i],
		RawReturn:             t.numeric[ColumnRawReturn][i],
		AdverseExcursionPct:   t.numeric[ColumnAdverseExcursionPct][i],
		FavorableExcursionPct: t.numeric[ColumnFavorableExcursionPct][i],
	}
	for name, col := range t.numeric {
		if IsBuiltinColumn(name) {
			continue
		}
		if r.Features == nil {
			r.Features = make(map[string]float64)
		}
		r.Features[name] = col[i]
	}
	for name, col := range t.labels {
		if r.Labels == nil {
			r.Labels = make(map[string]string)
		}
		r.Labels[name] = col[i]
	}
	if t.orderKey != nil {
		k := t.orderKey[i]
		r.OrderKey = &k
	}
	return r
}

// Select returns a new table holding the given rows in the given order.
func (t *Table) Select(indices []int) *Table {
	out := &Table{
		n:       len(indices),
		ids:     make([]string, len(indices)),
		numeric: make(map[string][]float64, len(t.numeric)),
		labels:  make(map[string][]string, len(t.labels)),
	}
	for j, i := range indices {
		out.ids[j] = t.ids[i]
	}
	for name, col := range t.numeric {
		sub := make([]float64, len(indices))
		for j, i := range indices {
			sub[j] = col[i]
		}
		out.numeric[name] = sub
	}
	for name, col := range t.labels {
		sub := make([]string, len(indices))
		for j, i := range indices {
			sub[j] = col[i]
		}
		out.labels[name] = sub
	}
	if t.orderKey != nil {
		out.orderKey = make([]int64, len(indices))
		for j, i := range indices {
			out.orderKey[j] = t.orderKey[i]
		}
	}
	return out
}

func nanColumn(n int) []float64 {
	col := make([]float64, n)
	for i := range col {
		col[i] = math.NaN()
	}
	return col
}
