package main

import (
	"math"

	"github.com/pthm-cable/desert/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of optimizable parameters.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			// Energy economy
			{Name: "upkeep", Path: "energy.upkeep", Min: 0.5, Max: 3.0, Default: 1.5},
			{Name: "move_cost", Path: "energy.move_cost", Min: 0.001, Max: 0.01, Default: 0.004},
			// Digestion
			{Name: "plant_efficiency", Path: "digestion.plant_efficiency", Min: 0.4, Max: 1.0, Default: 0.8},
			{Name: "meat_gain", Path: "digestion.meat_gain", Min: 20, Max: 80, Default: 45},
			{Name: "meat_efficiency", Path: "digestion.meat_efficiency", Min: 0.5, Max: 1.0, Default: 0.9},
			// Plants
			{Name: "bite_size", Path: "plants.bite_size", Min: 0.5, Max: 4.0, Default: 2.0},
			{Name: "regrow_ticks", Path: "plants.regrow_ticks", Min: 100, Max: 1000, Default: 400},
			{Name: "plants", Path: "population.plants", Min: 30, Max: 150, Default: 70},
			// Behaviour
			{Name: "mating_energy", Path: "thresholds.mating_energy", Min: 40, Max: 90, Default: 60},
			{Name: "maturity_age", Path: "thresholds.maturity_age", Min: 200, Max: 1500, Default: 600},
			{Name: "size_ratio", Path: "predation.size_ratio", Min: 0.3, Max: 1.0, Default: 0.6},
			// Reproduction
			{Name: "offspring_fraction", Path: "reproduction.offspring_fraction", Min: 0.1, Max: 0.4, Default: 0.25},
			{Name: "cooldown_ticks", Path: "reproduction.cooldown_ticks", Min: 100, Max: 1000, Default: 400},
			{Name: "pair_timeout_ticks", Path: "reproduction.pair_timeout_ticks", Min: 200, Max: 1200, Default: 600},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig applies parameter values to a Config struct.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	// Clamp values to ensure they're within bounds
	clamped := pv.Clamp(values)

	// Order must match Specs order
	i := 0

	// Energy economy
	cfg.Energy.Upkeep = clamped[i]
	i++
	cfg.Energy.MoveCost = clamped[i]
	i++

	// Digestion
	cfg.Digestion.PlantEfficiency = clamped[i]
	i++
	cfg.Digestion.MeatGain = clamped[i]
	i++
	cfg.Digestion.MeatEfficiency = clamped[i]
	i++

	// Plants
	cfg.Plants.BiteSize = clamped[i]
	i++
	cfg.Plants.RegrowTicks = round(clamped[i])
	i++
	cfg.Population.Plants = round(clamped[i])
	i++

	// Behaviour
	cfg.Thresholds.MatingEnergy = clamped[i]
	i++
	cfg.Thresholds.MaturityAge = round(clamped[i])
	i++
	cfg.Predation.SizeRatio = clamped[i]
	i++

	// Reproduction
	cfg.Reproduction.OffspringFraction = clamped[i]
	i++
	cfg.Reproduction.CooldownTicks = round(clamped[i])
	i++
	cfg.Reproduction.PairTimeoutTicks = round(clamped[i])

	cfg.ComputeDerived()
}

func round(v float64) int {
	return int(math.Round(v))
}

// ExtractFromConfig extracts current parameter values from a Config struct.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Energy.Upkeep,
		cfg.Energy.MoveCost,
		cfg.Digestion.PlantEfficiency,
		cfg.Digestion.MeatGain,
		cfg.Digestion.MeatEfficiency,
		cfg.Plants.BiteSize,
		float64(cfg.Plants.RegrowTicks),
		float64(cfg.Population.Plants),
		cfg.Thresholds.MatingEnergy,
		float64(cfg.Thresholds.MaturityAge),
		cfg.Predation.SizeRatio,
		cfg.Reproduction.OffspringFraction,
		float64(cfg.Reproduction.CooldownTicks),
		float64(cfg.Reproduction.PairTimeoutTicks),
	}
}
