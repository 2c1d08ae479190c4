package tablefile

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"trade-edge-lab/internal/domain"
)

const sampleCSV = `ticker,date,gain_pct,mae,mfe,gap_pct,rvol
AAA,2024-01-02,5,2,8,3.5,1.2
BBB,2024-01-03,-10,12,1,,2.0
CCC,2024-01-04,3,1,4,7.25,NA
`

func sampleMapping() Mapping {
	return Mapping{
		Return:      "gain_pct",
		Adverse:     "mae",
		Favorable:   "mfe",
		OrderKey:    "date",
		ReturnInPct: true,
	}
}

func TestLoad_MapsColumns(t *testing.T) {
	table, err := Load(strings.NewReader(sampleCSV), sampleMapping())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if table.Len() != 3 {
		t.Fatalf("Len = %d, want 3", table.Len())
	}

	raw, _ := table.Column(domain.ColumnRawReturn)
	want := []float64{0.05, -0.10, 0.03}
	for i := range want {
		if math.Abs(raw[i]-want[i]) > 1e-12 {
			t.Errorf("raw[%d] = %v, want %v", i, raw[i], want[i])
		}
	}

	mae, _ := table.Column(domain.ColumnAdverseExcursionPct)
	if mae[1] != 12 {
		t.Errorf("mae[1] = %v, want 12", mae[1])
	}

	gap, ok := table.Column("gap_pct")
	if !ok {
		t.Fatal("gap_pct not loaded as numeric")
	}
	if !math.IsNaN(gap[1]) || gap[2] != 7.25 {
		t.Errorf("gap_pct = %v, want [3.5 NaN 7.25]", gap)
	}

	rvol, _ := table.Column("rvol")
	if !math.IsNaN(rvol[2]) {
		t.Errorf("NA cell = %v, want NaN", rvol[2])
	}

	if _, ok := table.Column("gain_pct"); ok {
		t.Error("mapped source column should not remain as a feature")
	}
	if _, ok := table.Label("ticker"); !ok {
		t.Error("ticker should be a label column")
	}

	keys, ok := table.OrderKeys()
	if !ok {
		t.Fatal("expected ordering key")
	}
	if keys[0] >= keys[1] || keys[1] >= keys[2] {
		t.Errorf("order keys not increasing: %v", keys)
	}
}

func TestLoad_UnparseableOrderKeyDropsOrdering(t *testing.T) {
	csv := "r,when\n0.1,2024-01-02\n0.2,yesterday\n"
	table, err := Load(strings.NewReader(csv), Mapping{Return: "r", OrderKey: "when"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := table.OrderKeys(); ok {
		t.Error("ordering key kept despite unparseable row")
	}
}

func TestLoad_MissingExcursionsAreNaN(t *testing.T) {
	table, err := Load(strings.NewReader("r\n0.1\n-0.2\n"), Mapping{Return: "r"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.HasData(domain.ColumnAdverseExcursionPct) {
		t.Error("unmapped adverse excursion should hold no data")
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		mapping Mapping
		want    error
	}{
		{"unmapped return", "r\n1\n", Mapping{}, domain.ErrInvalidParameter},
		{"empty input", "", Mapping{Return: "r"}, domain.ErrInvalidParameter},
		{"missing return", "x\n1\n", Mapping{Return: "r"}, ErrMissingColumn},
		{"missing mae", "r\n1\n", Mapping{Return: "r", Adverse: "mae"}, ErrMissingColumn},
		{"missing order key", "r\n1\n", Mapping{Return: "r", OrderKey: "ts"}, ErrMissingColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.input), tt.mapping)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestLoadCSV_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		t.Fatal(err)
	}

	table, err := LoadCSV(path, sampleMapping())
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	if table.Len() != 3 {
		t.Errorf("Len = %d, want 3", table.Len())
	}

	if _, err := LoadCSV(filepath.Join(t.TempDir(), "nope.csv"), sampleMapping()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file err = %v", err)
	}
}
