package systems

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
)

// MateCandidate is an unpaired signalling animal eligible for pairing.
type MateCandidate struct {
	ID     uint32
	Class  components.Class
	Pos    r2.Vec
	Vision float64
}

// Pair is two animals that agreed to mate.
type Pair struct {
	A, B uint32 // A < B
}

// Parent carries what offspring creation needs from one parent.
type Parent struct {
	Genome     components.Genome
	PreEnergy  float64
	Generation int
}

// Offspring is the result of a completed mating.
type Offspring struct {
	Genome     components.Genome
	Class      components.Class
	Energy     float64
	Generation int
	CostA      float64
	CostB      float64
}

// Breeding applies the pairing and offspring rules.
type Breeding struct {
	repro    config.ReproductionConfig
	genome   config.GenomeConfig
	mutation config.MutationConfig
}

// NewBreeding creates the breeding rules from configuration.
func NewBreeding(cfg *config.Config) *Breeding {
	return &Breeding{
		repro:    cfg.Reproduction,
		genome:   cfg.Genome,
		mutation: cfg.Mutation,
	}
}

// Pair matches candidates greedily. Candidates are visited in ascending id;
// each takes its nearest unmatched same-class partner that both can see.
// Ties go to the lower id. cands must be sorted by id.
func (b *Breeding) Pair(cands []MateCandidate) []Pair {
	taken := make([]bool, len(cands))
	var pairs []Pair
	for i := range cands {
		if taken[i] {
			continue
		}
		a := &cands[i]
		best, bestD := -1, math.Inf(1)
		for j := range cands {
			if j == i || taken[j] {
				continue
			}
			c := &cands[j]
			if c.Class != a.Class {
				continue
			}
			d := distance(a.Pos, c.Pos)
			if d > a.Vision || d > c.Vision {
				continue
			}
			if d < bestD {
				best, bestD = j, d
			}
		}
		if best < 0 {
			continue
		}
		taken[i], taken[best] = true, true
		pairs = append(pairs, Pair{A: min(a.ID, cands[best].ID), B: max(a.ID, cands[best].ID)})
	}
	return pairs
}

// Offspring builds the child of two parents. The child receives
// offspring_fraction of the parents' combined pre-mating energy and each
// parent pays the same fraction of its own.
func (b *Breeding) Offspring(pa, pb Parent, rng *rand.Rand) Offspring {
	g := Mutate(pa.Genome, pb.Genome, b.genome, b.mutation.Rate, b.mutation.Sigma, rng)
	f := b.repro.OffspringFraction
	return Offspring{
		Genome:     g,
		Class:      ClassOf(g, b.genome.PredatorThreshold),
		Energy:     f * (pa.PreEnergy + pb.PreEnergy),
		Generation: max(pa.Generation, pb.Generation) + 1,
		CostA:      f * pa.PreEnergy,
		CostB:      f * pb.PreEnergy,
	}
}

// BirthPosition places a child near a nest centre.
func (b *Breeding) BirthPosition(center r2.Vec, rng *rand.Rand) r2.Vec {
	angle := rng.Float64() * 2 * math.Pi
	r := rng.Float64() * b.repro.SpawnOffset
	return r2.Add(center, r2.Scale(r, headingVec(angle)))
}

// SignalExpired reports whether an unpaired signaller has called too long.
func (b *Breeding) SignalExpired(m *components.Mating, tick int) bool {
	return m.Signal && !m.Paired() && tick-m.SignalSince >= b.repro.SignalTimeoutTicks
}

// PairExpired reports whether a pair failed to start mating in time.
func (b *Breeding) PairExpired(m *components.Mating, tick int) bool {
	return m.Paired() && m.MatingSince < 0 && tick-m.PairedAt >= b.repro.PairTimeoutTicks
}

// MatingDone reports whether a mating pair has finished.
func (b *Breeding) MatingDone(m *components.Mating, tick int) bool {
	return m.MatingSince >= 0 && tick-m.MatingSince >= b.repro.MatingTicks
}

// Cooldown returns the rest period after mating or a reset.
func (b *Breeding) Cooldown() int {
	return b.repro.CooldownTicks
}
