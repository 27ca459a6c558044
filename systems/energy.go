package systems

import (
	"math"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
)

// MaxEnergy returns the energy capacity of a genome.
func MaxEnergy(g components.Genome, cfg config.EnergyConfig) float64 {
	return cfg.MaxPerSize * g.Size
}

// MetabolicCost returns the upkeep for one tick of length dt.
func MetabolicCost(g components.Genome, cfg config.EnergyConfig, dt float64) float64 {
	return cfg.Upkeep * g.Size * g.Metabolism * dt
}

// MovementCost returns the energy spent moving dist world units.
func MovementCost(g components.Genome, cfg config.EnergyConfig, dist float64) float64 {
	return cfg.MoveCost * math.Pow(g.Speed, cfg.MoveExponent) * dist
}

// MoveSpeed returns world units per second, slowed when energy is low.
func MoveSpeed(g components.Genome, energy float64, mv config.MovementConfig, th config.ThresholdConfig) float64 {
	s := mv.BaseSpeed * g.Speed
	if energy < th.LowEnergy {
		s *= 0.65 + 0.35*clamp01(energy/th.LowEnergy)
	}
	return s
}

// Spend removes cost from e, never going below zero. It returns the amount
// actually removed.
func Spend(e *components.Energy, cost float64) float64 {
	if cost <= 0 {
		return 0
	}
	spent := math.Min(cost, e.Value)
	e.Value -= spent
	return spent
}

// Meal describes energy taken from a food source.
type Meal struct {
	Removed float64 // energy removed from the source
	Gained  float64 // energy queued for the consumer
	Loss    float64 // conversion loss, Removed - Gained
}

// PlantMeal converts grazed biomass into a meal.
func PlantMeal(biomass float64, cfg config.DigestionConfig) Meal {
	gain := biomass * cfg.PlantEfficiency
	return Meal{Removed: biomass, Gained: gain, Loss: biomass - gain}
}

// MeatMeal converts a kill into a meal: min(meat_gain, prey energy * meat_efficiency).
func MeatMeal(preyEnergy float64, cfg config.DigestionConfig) Meal {
	preyEnergy = math.Max(preyEnergy, 0)
	gain := math.Min(cfg.MeatGain, preyEnergy*cfg.MeatEfficiency)
	return Meal{Removed: preyEnergy, Gained: gain, Loss: preyEnergy - gain}
}

// Ingest queues gain to be released evenly over ticks.
func Ingest(d *components.Digestion, food components.FoodKind, gain float64, ticks int) {
	if gain <= 0 {
		return
	}
	ticks = max(ticks, 1)
	d.Queue = append(d.Queue, components.Portion{
		Food:      food,
		PerTick:   gain / float64(ticks),
		Remaining: ticks,
	})
}

// ReleaseDigestion releases one tick of every queued portion into e.
// Energy above e.Max is discarded and returned as overflow.
func ReleaseDigestion(e *components.Energy, d *components.Digestion) (released, overflow float64) {
	kept := d.Queue[:0]
	for _, p := range d.Queue {
		if p.Remaining <= 0 {
			continue
		}
		released += p.PerTick
		p.Remaining--
		if p.Remaining > 0 {
			kept = append(kept, p)
		}
	}
	clear(d.Queue[len(kept):])
	d.Queue = kept

	e.Value += released
	if e.Value > e.Max {
		overflow = e.Value - e.Max
		e.Value = e.Max
	}
	return released, overflow
}
