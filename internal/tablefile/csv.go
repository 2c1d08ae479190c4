package tablefile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"trade-edge-lab/internal/domain"
)

// ErrMissingColumn is returned when a mapped column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

// Mapping names the source columns that feed the built-in trade columns.
// Empty names are not mapped; only Return is required.
type Mapping struct {
	Return    string // realized return
	Adverse   string // adverse excursion, pct points
	Favorable string // favorable excursion, pct points
	OrderKey  string // entry time: unix ms or a date/time string

	// ReturnInPct divides the return column by 100 (5 means 5%).
	ReturnInPct bool
}

// DefaultMapping matches the built-in column names.
func DefaultMapping() Mapping {
	return Mapping{
		Return:    domain.ColumnRawReturn,
		Adverse:   domain.ColumnAdverseExcursionPct,
		Favorable: domain.ColumnFavorableExcursionPct,
	}
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// LoadCSV reads a trade table from a CSV file with a header row.
func LoadCSV(path string, m Mapping) (*domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Load(f, m)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return t, nil
}

// Load reads a trade table from CSV. Mapped columns become the built-in trade
// columns; every other column is numeric when all its non-empty cells parse as
// numbers and a label otherwise. Empty and unparseable numeric cells become NaN.
// The ordering key is kept only when every row has a parseable value.
func Load(r io.Reader, m Mapping) (*domain.Table, error) {
	if m.Return == "" {
		return nil, fmt.Errorf("%w: return column is not mapped", domain.ErrInvalidParameter)
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", domain.ErrInvalidParameter)
	}

	header := records[0]
	rows := records[1:]
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}

	builtin := map[string]string{
		m.Return:    domain.ColumnRawReturn,
		m.Adverse:   domain.ColumnAdverseExcursionPct,
		m.Favorable: domain.ColumnFavorableExcursionPct,
	}
	delete(builtin, "")
	for src := range builtin {
		if _, ok := index[src]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, src)
		}
	}
	if m.OrderKey != "" {
		if _, ok := index[m.OrderKey]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, m.OrderKey)
		}
	}

	numeric := make(map[string][]float64)
	labels := make(map[string][]string)

	for i, raw := range header {
		name := strings.TrimSpace(raw)
		cells := column(rows, i)

		if name == m.OrderKey {
			continue
		}
		if target, ok := builtin[name]; ok {
			col := make([]float64, len(cells))
			for j, c := range cells {
				col[j] = parseFloat(c)
			}
			if target == domain.ColumnRawReturn && m.ReturnInPct {
				for j := range col {
					col[j] /= 100
				}
			}
			numeric[target] = col
			continue
		}
		if domain.IsBuiltinColumn(name) {
			// A built-in name that is not mapped would shadow a mapped column.
			continue
		}
		if col, ok := numericColumn(cells); ok {
			numeric[name] = col
		} else {
			labels[name] = cells
		}
	}

	var keys []int64
	if m.OrderKey != "" {
		keys = orderKeys(column(rows, index[m.OrderKey]))
	}

	return domain.NewTableFromColumns(numeric, labels, keys)
}

func column(rows [][]string, i int) []string {
	out := make([]string, len(rows))
	for j, row := range rows {
		if i < len(row) {
			out[j] = strings.TrimSpace(row[i])
		}
	}
	return out
}

// numericColumn parses cells as floats, failing on the first non-empty cell that is
// not a number. An all-empty column is a label.
func numericColumn(cells []string) ([]float64, bool) {
	col := make([]float64, len(cells))
	seen := false
	for j, c := range cells {
		if isMissing(c) {
			col[j] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(c, "%"), 64)
		if err != nil {
			return nil, false
		}
		col[j] = v
		seen = true
	}
	return col, seen
}

func parseFloat(c string) float64 {
	if isMissing(c) {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(c, "%"), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

func isMissing(c string) bool {
	switch strings.ToLower(c) {
	case "", "na", "n/a", "nan", "null":
		return true
	}
	return false
}

// orderKeys parses unix ms or date/time cells, nil when any row fails.
func orderKeys(cells []string) []int64 {
	keys := make([]int64, len(cells))
	for j, c := range cells {
		if ms, err := strconv.ParseInt(c, 10, 64); err == nil {
			keys[j] = ms
			continue
		}
		ts, ok := parseTime(c)
		if !ok {
			return nil
		}
		keys[j] = ts.UnixMilli()
	}
	return keys
}

func parseTime(c string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, c); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
