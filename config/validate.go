package config

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is wrapped by every ValidationError.
var ErrInvalid = errors.New("invalid configuration")

// Nest classes.
const (
	NestClassPrey     = "prey"
	NestClassPredator = "predator"
)

// ValidationError lists every problem found in a Config.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("%v: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Unwrap exposes ErrInvalid and each individual problem to errors.Is.
func (e *ValidationError) Unwrap() []error {
	return append([]error{ErrInvalid}, e.Problems...)
}

type problems []error

func (p *problems) addf(format string, args ...any) {
	*p = append(*p, fmt.Errorf(format, args...))
}

func (p *problems) positive(name string, v float64) {
	if !(v > 0) {
		p.addf("%s must be > 0, got %v", name, v)
	}
}

func (p *problems) nonNegative(name string, v float64) {
	if !(v >= 0) {
		p.addf("%s must be >= 0, got %v", name, v)
	}
}

func (p *problems) unit(name string, v float64) {
	if !(v >= 0 && v <= 1) {
		p.addf("%s must be in [0,1], got %v", name, v)
	}
}

func (p *problems) bounds(name string, b TraitBounds) {
	if !(b.Min <= b.Max) {
		p.addf("genome.%s: min %v exceeds max %v", name, b.Min, b.Max)
	}
}

// Validate checks every field and returns a *ValidationError listing all
// violations, or nil.
func (c *Config) Validate() error {
	var p problems

	p.positive("world.width", c.World.Width)
	p.positive("world.height", c.World.Height)
	p.positive("world.tick_seconds", c.World.TickSeconds)
	p.nonNegative("world.grid_cell_size", c.World.GridCellSize)
	if c.World.MaxAgeTicks <= 0 {
		p.addf("world.max_age_ticks must be > 0, got %d", c.World.MaxAgeTicks)
	}
	if c.World.Workers < 0 {
		p.addf("world.workers must be >= 0, got %d", c.World.Workers)
	}

	if c.Population.Plants < 0 || c.Population.Herbivores < 0 || c.Population.Predators < 0 {
		p.addf("population counts must be >= 0")
	}
	p.nonNegative("population.spawn_margin", c.Population.SpawnMargin)
	if 2*c.Population.SpawnMargin >= c.World.Width || 2*c.Population.SpawnMargin >= c.World.Height {
		p.addf("population.spawn_margin %v leaves no room in a %vx%v world",
			c.Population.SpawnMargin, c.World.Width, c.World.Height)
	}
	if c.Population.RespawnThreshold < 0 || c.Population.RespawnCount < 0 || c.Population.HallOfFameSize < 0 {
		p.addf("population respawn settings must be >= 0")
	}

	p.bounds("size", c.Genome.Size)
	p.bounds("speed", c.Genome.Speed)
	p.bounds("vision", c.Genome.Vision)
	p.bounds("aggression", c.Genome.Aggression)
	p.bounds("metabolism", c.Genome.Metabolism)
	p.positive("genome.size.min", c.Genome.Size.Min)
	p.nonNegative("genome.speed.min", c.Genome.Speed.Min)
	p.nonNegative("genome.vision.min", c.Genome.Vision.Min)
	p.nonNegative("genome.metabolism.min", c.Genome.Metabolism.Min)

	p.unit("mutation.rate", c.Mutation.Rate)
	p.nonNegative("mutation.sigma", c.Mutation.Sigma)

	p.positive("energy.max_per_size", c.Energy.MaxPerSize)
	p.unit("energy.initial_min", c.Energy.InitialMin)
	p.unit("energy.initial_max", c.Energy.InitialMax)
	if c.Energy.InitialMin > c.Energy.InitialMax {
		p.addf("energy.initial_min %v exceeds energy.initial_max %v", c.Energy.InitialMin, c.Energy.InitialMax)
	}
	p.nonNegative("energy.upkeep", c.Energy.Upkeep)
	p.nonNegative("energy.move_cost", c.Energy.MoveCost)
	p.nonNegative("energy.move_exponent", c.Energy.MoveExponent)

	p.unit("digestion.plant_efficiency", c.Digestion.PlantEfficiency)
	p.unit("digestion.meat_efficiency", c.Digestion.MeatEfficiency)
	p.nonNegative("digestion.meat_gain", c.Digestion.MeatGain)
	if c.Digestion.PlantTicks < 1 {
		p.addf("digestion.plant_ticks must be >= 1, got %d", c.Digestion.PlantTicks)
	}
	if c.Digestion.MeatTicks < 1 {
		p.addf("digestion.meat_ticks must be >= 1, got %d", c.Digestion.MeatTicks)
	}

	p.positive("plants.max_biomass", c.Plants.MaxBiomass)
	p.positive("plants.bite_size", c.Plants.BiteSize)
	p.nonNegative("plants.regrow_rate", c.Plants.RegrowRate)
	if c.Plants.RegrowTicks < 0 {
		p.addf("plants.regrow_ticks must be >= 0, got %d", c.Plants.RegrowTicks)
	}
	p.positive("plants.contact_range", c.Plants.ContactRange)

	p.nonNegative("thresholds.critical_energy", c.Thresholds.CriticalEnergy)
	p.positive("thresholds.low_energy", c.Thresholds.LowEnergy)
	p.unit("thresholds.forage_fraction", c.Thresholds.ForageFraction)
	if c.Thresholds.MatingEnergy < c.Thresholds.CriticalEnergy {
		p.addf("thresholds.mating_energy %v is below thresholds.critical_energy %v",
			c.Thresholds.MatingEnergy, c.Thresholds.CriticalEnergy)
	}
	if c.Thresholds.MaturityAge < 0 {
		p.addf("thresholds.maturity_age must be >= 0, got %d", c.Thresholds.MaturityAge)
	}

	p.positive("movement.base_speed", c.Movement.BaseSpeed)
	p.nonNegative("movement.wander_turn", c.Movement.WanderTurn)
	p.nonNegative("predation.size_ratio", c.Predation.SizeRatio)
	p.positive("predation.contact_range", c.Predation.ContactRange)

	p.positive("scent.cell_size", c.Scent.CellSize)
	if !(c.Scent.DecayFactor > 0 && c.Scent.DecayFactor < 1) {
		p.addf("scent.decay_factor must be in (0,1), got %v", c.Scent.DecayFactor)
	}
	if !(c.Scent.CarrionDecayFactor > 0 && c.Scent.CarrionDecayFactor < 1) {
		p.addf("scent.carrion_decay_factor must be in (0,1), got %v", c.Scent.CarrionDecayFactor)
	}
	// Explicit 4-neighbour diffusion is only stable below 1/4.
	if !(c.Scent.Diffusion >= 0 && c.Scent.Diffusion < 0.25) {
		p.addf("scent.diffusion must be in [0,0.25), got %v", c.Scent.Diffusion)
	}
	p.nonNegative("scent.epsilon", c.Scent.Epsilon)
	p.positive("scent.max_intensity", c.Scent.MaxIntensity)
	p.nonNegative("scent.trail_strength", c.Scent.TrailStrength)
	p.nonNegative("scent.forage_strength", c.Scent.ForageStrength)
	p.nonNegative("scent.carrion_strength", c.Scent.CarrionStrength)
	p.nonNegative("scent.flee_threshold", c.Scent.FleeThreshold)

	r := c.Reproduction
	if r.MatingTicks < 1 {
		p.addf("reproduction.mating_ticks must be >= 1, got %d", r.MatingTicks)
	}
	if r.PairTimeoutTicks < 1 || r.SignalTimeoutTicks < 1 {
		p.addf("reproduction timeouts must be >= 1")
	}
	if r.CooldownTicks < 0 {
		p.addf("reproduction.cooldown_ticks must be >= 0, got %d", r.CooldownTicks)
	}
	if !(r.OffspringFraction > 0 && r.OffspringFraction <= 0.5) {
		p.addf("reproduction.offspring_fraction must be in (0,0.5], got %v", r.OffspringFraction)
	}
	p.nonNegative("reproduction.spawn_offset", r.SpawnOffset)
	p.positive("reproduction.call_range_factor", r.CallRangeFactor)

	for i, n := range c.Nests {
		if n.Class != NestClassPrey && n.Class != NestClassPredator {
			p.addf("nests[%d].class must be %q or %q, got %q", i, NestClassPrey, NestClassPredator, n.Class)
		}
		if !(n.Radius > 0) {
			p.addf("nests[%d].radius must be > 0, got %v", i, n.Radius)
		}
		if n.Capacity < 1 {
			p.addf("nests[%d].capacity must be >= 1, got %d", i, n.Capacity)
		}
		if n.X < 0 || n.X > c.World.Width || n.Y < 0 || n.Y > c.World.Height {
			p.addf("nests[%d] centre (%v,%v) lies outside the world", i, n.X, n.Y)
		}
	}

	if c.Telemetry.StatsWindowTicks < 1 {
		p.addf("telemetry.stats_window_ticks must be >= 1, got %d", c.Telemetry.StatsWindowTicks)
	}

	if len(p) == 0 {
		return nil
	}
	return &ValidationError{Problems: p}
}
