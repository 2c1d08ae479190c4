package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 10.0, cfg.StopLossPct)
	assert.Equal(t, 10000.0, cfg.StartCapital)
	assert.Equal(t, 25.0, cfg.FractionalKellyPct)
	assert.Equal(t, 10, cfg.GridResolution)
	assert.Equal(t, "ev_pct", cfg.PrimaryMetric)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Nil(t, cfg.StopLevels)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("TEL_STOP_LOSS_PCT", "15")
	t.Setenv("TEL_STOP_LEVELS", "5,10,20")
	t.Setenv("TEL_PRIMARY_METRIC", metrics.NameEGFracKelly)
	t.Setenv("TEL_LOG_PRETTY", "true")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 15.0, cfg.StopLossPct)
	assert.Equal(t, []float64{5, 10, 20}, cfg.StopLevels)
	assert.Equal(t, metrics.NameEGFracKelly, cfg.PrimaryMetric)
	assert.True(t, cfg.LogPretty)
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("TEL_EFFICIENCY_PCT=1.5\nTEL_GRID_RESOLUTION=20\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("TEL_EFFICIENCY_PCT")
		os.Unsetenv("TEL_GRID_RESOLUTION")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1.5, cfg.EfficiencyPct)
	assert.Equal(t, 20, cfg.GridResolution)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want error
	}{
		{"negative stop", "TEL_STOP_LOSS_PCT", "-1", domain.ErrInvalidPolicy},
		{"zero capital", "TEL_START_CAPITAL", "0", domain.ErrInvalidPolicy},
		{"kelly above 100", "TEL_FRACTIONAL_KELLY_PCT", "150", domain.ErrInvalidPolicy},
		{"resolution too small", "TEL_GRID_RESOLUTION", "2", domain.ErrInvalidParameter},
		{"perturbation level 1", "TEL_PERTURBATION_LEVELS", "0.1,1", domain.ErrInvalidParameter},
		{"unknown metric", "TEL_PRIMARY_METRIC", "sharpe", metrics.ErrUnknownMetric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load(missingEnvFile(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad_Unparseable(t *testing.T) {
	t.Setenv("TEL_STOP_LOSS_PCT", "ten")
	_, err := Load(missingEnvFile(t))
	assert.Error(t, err)
}

func TestPolicy(t *testing.T) {
	cfg := &Config{StopLossPct: 20, EfficiencyPct: 1, StartCapital: 5000, FlatStake: 100, FractionalKellyPct: 50}
	p, err := cfg.Policy()
	require.NoError(t, err)
	assert.Equal(t, domain.AdjustmentPolicy{
		StopLossPct: 20, EfficiencyPct: 1, StartCapital: 5000, FlatStake: 100, FractionalKellyPct: 50,
	}, p)
}
