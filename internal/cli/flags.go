// Package cli holds flag types and setup shared by the command-line tools.
package cli

import (
	"flag"
	"fmt"
	"math"
	"strconv"
	"strings"

	"trade-edge-lab/internal/config"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/tablefile"
)

// Filters is a repeatable flag of "column:min:max" predicates. Either bound may be
// empty for an open side.
type Filters []domain.Predicate

func (f *Filters) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, len(*f))
	for i, p := range *f {
		parts[i] = fmt.Sprintf("%s:%s:%s", p.Column, bound(p.Min), bound(p.Max))
	}
	return strings.Join(parts, ",")
}

// Set parses one predicate.
func (f *Filters) Set(s string) error {
	p, err := ParsePredicate(s)
	if err != nil {
		return err
	}
	*f = append(*f, p)
	return nil
}

// ParsePredicate parses "column:min:max".
func ParsePredicate(s string) (domain.Predicate, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 || strings.TrimSpace(parts[0]) == "" {
		return domain.Predicate{}, fmt.Errorf("%w: filter %q, want column:min:max", domain.ErrInvalidParameter, s)
	}
	p := domain.Predicate{Column: strings.TrimSpace(parts[0])}
	var err error
	if p.Min, err = parseBound(parts[1]); err != nil {
		return domain.Predicate{}, fmt.Errorf("%w: filter %q min: %v", domain.ErrInvalidParameter, s, err)
	}
	if p.Max, err = parseBound(parts[2]); err != nil {
		return domain.Predicate{}, fmt.Errorf("%w: filter %q max: %v", domain.ErrInvalidParameter, s, err)
	}
	if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
		return domain.Predicate{}, fmt.Errorf("%w: filter %q has min > max", domain.ErrInvalidParameter, s)
	}
	return p, nil
}

func parseBound(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(v) {
		return nil, fmt.Errorf("NaN bound")
	}
	return &v, nil
}

func bound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}

// Floats is a comma-separated list flag.
type Floats []float64

func (f *Floats) String() string {
	if f == nil {
		return ""
	}
	parts := make([]string, len(*f))
	for i, v := range *f {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// Set replaces the list.
func (f *Floats) Set(s string) error {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", domain.ErrInvalidParameter, part)
		}
		out = append(out, v)
	}
	*f = out
	return nil
}

// TableFlags selects and maps the input CSV.
type TableFlags struct {
	Input     string
	Return    string
	Adverse   string
	Favorable string
	OrderKey  string
	ReturnPct bool
}

// Register adds the table flags to fs.
func (t *TableFlags) Register(fs *flag.FlagSet) {
	d := tablefile.DefaultMapping()
	fs.StringVar(&t.Input, "input", "", "Trade table CSV (required)")
	fs.StringVar(&t.Return, "return-col", d.Return, "Realized return column")
	fs.StringVar(&t.Adverse, "mae-col", d.Adverse, "Adverse excursion column, pct points (empty: none)")
	fs.StringVar(&t.Favorable, "mfe-col", d.Favorable, "Favorable excursion column, pct points (empty: none)")
	fs.StringVar(&t.OrderKey, "order-col", "", "Entry time column for drawdown ordering (empty: none)")
	fs.BoolVar(&t.ReturnPct, "return-pct", false, "Return column is in percent (5 = 5%)")
}

// Load validates the flags and reads the table.
func (t *TableFlags) Load() (*domain.Table, error) {
	if t.Input == "" {
		return nil, fmt.Errorf("%w: --input is required", domain.ErrInvalidParameter)
	}
	return tablefile.LoadCSV(t.Input, tablefile.Mapping{
		Return:      t.Return,
		Adverse:     t.Adverse,
		Favorable:   t.Favorable,
		OrderKey:    t.OrderKey,
		ReturnInPct: t.ReturnPct,
	})
}

// PolicyFlags overrides the configured adjustment policy.
type PolicyFlags struct {
	StopLossPct        float64
	EfficiencyPct      float64
	StartCapital       float64
	FlatStake          float64
	FractionalKellyPct float64
}

// Register adds the policy flags to fs with cfg values as defaults.
func (p *PolicyFlags) Register(fs *flag.FlagSet, cfg *config.Config) {
	fs.Float64Var(&p.StopLossPct, "stop", cfg.StopLossPct, "Stop loss, pct points")
	fs.Float64Var(&p.EfficiencyPct, "efficiency", cfg.EfficiencyPct, "Flat slippage per trade, pct points")
	fs.Float64Var(&p.StartCapital, "capital", cfg.StartCapital, "Start capital")
	fs.Float64Var(&p.FlatStake, "flat-stake", cfg.FlatStake, "Flat stake per trade (0 disables flat-stake EG)")
	fs.Float64Var(&p.FractionalKellyPct, "kelly-fraction", cfg.FractionalKellyPct, "Share of full Kelly, pct")
}

// Policy validates and returns the adjustment policy.
func (p *PolicyFlags) Policy() (domain.AdjustmentPolicy, error) {
	return domain.NewAdjustmentPolicy(p.StopLossPct, p.EfficiencyPct, p.StartCapital, p.FlatStake, p.FractionalKellyPct)
}
