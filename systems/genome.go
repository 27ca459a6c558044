package systems

import (
	"math/rand/v2"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
)

func traitBounds(b config.GenomeConfig) [5]config.TraitBounds {
	return [5]config.TraitBounds{b.Size, b.Speed, b.Vision, b.Aggression, b.Metabolism}
}

// Mutate builds a child genome. Each trait starts at the parent average and,
// with probability rate, is perturbed by a normal draw whose std-dev is sigma
// times the trait span. Every trait is clamped to its bounds.
func Mutate(a, b components.Genome, bounds config.GenomeConfig, rate, sigma float64, rng *rand.Rand) components.Genome {
	ta, tb := a.Traits(), b.Traits()
	tb5 := traitBounds(bounds)
	var out [5]float64
	for i := range out {
		v := (ta[i] + tb[i]) / 2
		// Always draw both numbers so the stream does not depend on rate.
		roll := rng.Float64()
		jitter := rng.NormFloat64()
		if roll < rate {
			v += jitter * sigma * tb5[i].Span()
		}
		out[i] = tb5[i].Clamp(v)
	}
	return components.GenomeFromTraits(out)
}

// ClampGenome limits every trait of g to its bounds.
func ClampGenome(g components.Genome, bounds config.GenomeConfig) components.Genome {
	t := g.Traits()
	tb := traitBounds(bounds)
	for i := range t {
		t[i] = tb[i].Clamp(t[i])
	}
	return components.GenomeFromTraits(t)
}

// InBounds reports whether every trait of g lies within its bounds.
func InBounds(g components.Genome, bounds config.GenomeConfig) bool {
	t := g.Traits()
	tb := traitBounds(bounds)
	for i := range t {
		if t[i] < tb[i].Min || t[i] > tb[i].Max {
			return false
		}
	}
	return true
}

// ClassOf derives the behavioral class from aggression.
func ClassOf(g components.Genome, predatorThreshold float64) components.Class {
	if g.Aggression > predatorThreshold {
		return components.ClassPredator
	}
	return components.ClassPrey
}

// RandomGenome draws a seed genome of the requested class. Aggression is drawn
// on the class's side of the predator threshold.
func RandomGenome(class components.Class, bounds config.GenomeConfig, rng *rand.Rand) components.Genome {
	uniform := func(b config.TraitBounds) float64 {
		return b.Min + rng.Float64()*b.Span()
	}
	g := components.Genome{
		Size:       uniform(bounds.Size),
		Speed:      uniform(bounds.Speed),
		Vision:     uniform(bounds.Vision),
		Metabolism: uniform(bounds.Metabolism),
	}
	agg := bounds.Aggression
	if class == components.ClassPredator {
		lo := max(bounds.PredatorThreshold, agg.Min)
		// strictly above the threshold
		g.Aggression = lo + (1-rng.Float64())*(agg.Max-lo)
	} else {
		hi := min(bounds.PredatorThreshold, agg.Max)
		g.Aggression = agg.Min + rng.Float64()*(hi-agg.Min)
	}
	return g
}
