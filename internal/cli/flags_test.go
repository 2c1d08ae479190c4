package cli

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-edge-lab/internal/config"
	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/observability"
)

func TestParsePredicate(t *testing.T) {
	p, err := ParsePredicate("gap_pct:2:8.5")
	require.NoError(t, err)
	assert.Equal(t, "gap_pct", p.Column)
	require.NotNil(t, p.Min)
	require.NotNil(t, p.Max)
	assert.Equal(t, 2.0, *p.Min)
	assert.Equal(t, 8.5, *p.Max)

	open, err := ParsePredicate("rvol:1.5:")
	require.NoError(t, err)
	assert.NotNil(t, open.Min)
	assert.Nil(t, open.Max)

	for _, bad := range []string{"gap_pct", ":1:2", "gap:x:2", "gap:5:1", "gap:NaN:1"} {
		_, err := ParsePredicate(bad)
		assert.True(t, errors.Is(err, domain.ErrInvalidParameter), "input %q: %v", bad, err)
	}
}

func TestFiltersFlag(t *testing.T) {
	var f Filters
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Var(&f, "filter", "")

	require.NoError(t, fs.Parse([]string{"-filter", "a:1:2", "-filter", "b::3"}))
	require.Len(t, f, 2)
	assert.Equal(t, "a:1:2,b::3", f.String())
}

func TestFloatsFlag(t *testing.T) {
	var f Floats
	require.NoError(t, f.Set("5, 10,,20"))
	assert.Equal(t, Floats{5, 10, 20}, f)
	assert.Equal(t, "5,10,20", f.String())
	assert.Error(t, f.Set("5,x"))
}

func TestPolicyFlags_DefaultsFromConfig(t *testing.T) {
	cfg := &config.Config{StopLossPct: 15, StartCapital: 2000, FractionalKellyPct: 25}
	var p PolicyFlags
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	p.Register(fs, cfg)

	require.NoError(t, fs.Parse([]string{"-efficiency", "0.5"}))
	policy, err := p.Policy()
	require.NoError(t, err)
	assert.Equal(t, 15.0, policy.StopLossPct)
	assert.Equal(t, 0.5, policy.EfficiencyPct)
	assert.Equal(t, 2000.0, policy.StartCapital)
}

func TestTableFlags_Load(t *testing.T) {
	var tf TableFlags
	_, err := tf.Load()
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	path := filepath.Join(t.TempDir(), "t.csv")
	require.NoError(t, os.WriteFile(path, []byte("gain,gap\n5,1\n-3,2\n"), 0o600))

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	tf.Register(fs)
	require.NoError(t, fs.Parse([]string{"-input", path, "-return-col", "gain", "-mae-col", "", "-mfe-col", "", "-return-pct"}))

	table, err := tf.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
	raw, _ := table.Column(domain.ColumnRawReturn)
	assert.InDelta(t, -0.03, raw[1], 1e-12)
}

func TestDumpMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics("test", reg)
	m.RecordBundleComputed()

	var buf bytes.Buffer
	require.NoError(t, DumpMetrics(&buf, reg))
	assert.Contains(t, buf.String(), "test_coordinator_bundle_computations_total 1")
}
