package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"trade-edge-lab/internal/domain"
	"trade-edge-lab/internal/metrics"
	"trade-edge-lab/internal/sensitivity"
)

// Prefix is prepended to every variable name, e.g. TEL_STOP_LOSS_PCT.
const Prefix = "TEL"

// Config holds run defaults read from the environment.
// Empty sweep lists select the engines' built-in defaults.
type Config struct {
	// Adjustment policy
	StopLossPct        float64 `envconfig:"STOP_LOSS_PCT" default:"10"`
	EfficiencyPct      float64 `envconfig:"EFFICIENCY_PCT" default:"0"`
	StartCapital       float64 `envconfig:"START_CAPITAL" default:"10000"`
	FlatStake          float64 `envconfig:"FLAT_STAKE" default:"0"`
	FractionalKellyPct float64 `envconfig:"FRACTIONAL_KELLY_PCT" default:"25"`

	// Sweeps
	StopLevels         []float64 `envconfig:"STOP_LEVELS"`
	EntryOffsets       []float64 `envconfig:"ENTRY_OFFSETS"`
	PerturbationLevels []float64 `envconfig:"PERTURBATION_LEVELS"`
	GridResolution     int       `envconfig:"GRID_RESOLUTION" default:"10"`
	PrimaryMetric      string    `envconfig:"PRIMARY_METRIC" default:"ev_pct"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty bool   `envconfig:"LOG_PRETTY" default:"false"`
}

// Load reads optional .env files (".env" when none are given) and then the
// environment. Missing files are skipped; variables already set win over files.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks everything that can be checked without a table.
func (c *Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	if c.GridResolution < sensitivity.MinResolution || c.GridResolution > sensitivity.MaxResolution {
		return fmt.Errorf("%w: GRID_RESOLUTION must be in [%d, %d], got %d",
			domain.ErrInvalidParameter, sensitivity.MinResolution, sensitivity.MaxResolution, c.GridResolution)
	}
	if _, err := metrics.Lookup(c.PrimaryMetric); err != nil {
		return fmt.Errorf("PRIMARY_METRIC: %w", err)
	}
	for _, l := range c.StopLevels {
		if l < 0 {
			return fmt.Errorf("%w: STOP_LEVELS must be >= 0, got %v", domain.ErrInvalidParameter, l)
		}
	}
	for _, l := range c.PerturbationLevels {
		if l < 0 || l >= 1 {
			return fmt.Errorf("%w: PERTURBATION_LEVELS must be in [0, 1), got %v", domain.ErrInvalidParameter, l)
		}
	}
	return nil
}

// Policy builds the adjustment policy described by the config.
func (c *Config) Policy() (domain.AdjustmentPolicy, error) {
	return domain.NewAdjustmentPolicy(c.StopLossPct, c.EfficiencyPct, c.StartCapital, c.FlatStake, c.FractionalKellyPct)
}
