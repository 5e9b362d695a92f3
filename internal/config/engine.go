package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineParams holds the numeric defaults of the optimization and simulation
// engines. These are configuration, not constants baked into the math: they
// can be overridden by an engine.yaml file referenced via ENGINE_CONFIG.
type EngineParams struct {
	// Black-Litterman
	Tau          float64 `yaml:"tau"`           // posterior uncertainty scaling
	RiskAversion float64 `yaml:"risk_aversion"` // lambda in the equilibrium prior

	// Allocation
	RiskFreeRate float64 `yaml:"risk_free_rate"` // annualized

	// Data requirements
	LookbackDays  int `yaml:"lookback_days"`   // trading days of history fetched
	MinStableDays int `yaml:"min_stable_days"` // below this the estimate is flagged degraded

	// Simulation defaults
	HorizonDays int   `yaml:"horizon_days"`
	PathCount   int   `yaml:"path_count"`
	DefaultSeed int64 `yaml:"default_seed"` // used when a request carries no seed

	// Validation
	WeightTolerance float64 `yaml:"weight_tolerance"` // |sum(w)-1| must be below this

	// Risk categorization thresholds on annualized standard deviation
	ConservativeBelow float64 `yaml:"conservative_below"`
	ModerateBelow     float64 `yaml:"moderate_below"`
}

// DefaultEngineParams returns the documented defaults: tau and risk aversion
// follow the original calibration, one year of history and a one-year horizon
// at 2000 paths, a 2% risk-free rate, and 10%/20% risk-category cutoffs.
func DefaultEngineParams() EngineParams {
	return EngineParams{
		Tau:               0.05,
		RiskAversion:      2.5,
		RiskFreeRate:      0.02,
		LookbackDays:      252,
		MinStableDays:     20,
		HorizonDays:       252,
		PathCount:         2000,
		DefaultSeed:       42,
		WeightTolerance:   0.001,
		ConservativeBelow: 0.10,
		ModerateBelow:     0.20,
	}
}

// LoadEngineParams loads engine parameters from a yaml file, falling back to
// defaults when path is empty. Fields missing from the file keep defaults.
func LoadEngineParams(path string) (EngineParams, error) {
	params := DefaultEngineParams()
	if path == "" {
		return params, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return params, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &params); err != nil {
		return params, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := params.Validate(); err != nil {
		return params, fmt.Errorf("invalid engine parameters in %s: %w", path, err)
	}
	return params, nil
}

// Validate rejects parameter combinations the engine cannot operate with.
func (p EngineParams) Validate() error {
	if p.Tau <= 0 {
		return fmt.Errorf("tau must be positive, got %g", p.Tau)
	}
	if p.RiskAversion <= 0 {
		return fmt.Errorf("risk_aversion must be positive, got %g", p.RiskAversion)
	}
	if p.HorizonDays <= 0 {
		return fmt.Errorf("horizon_days must be positive, got %d", p.HorizonDays)
	}
	if p.PathCount <= 0 {
		return fmt.Errorf("path_count must be positive, got %d", p.PathCount)
	}
	if p.WeightTolerance <= 0 {
		return fmt.Errorf("weight_tolerance must be positive, got %g", p.WeightTolerance)
	}
	if p.ConservativeBelow <= 0 || p.ModerateBelow <= p.ConservativeBelow {
		return fmt.Errorf("risk thresholds must satisfy 0 < conservative_below < moderate_below")
	}
	return nil
}
