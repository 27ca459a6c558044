package systems

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
)

func TestBreeding_PairGreedyNearest(t *testing.T) {
	b := NewBreeding(config.Default())
	prey := components.ClassPrey
	cands := []MateCandidate{
		{ID: 1, Class: prey, Pos: r2.Vec{X: 0, Y: 0}, Vision: 100},
		{ID: 2, Class: prey, Pos: r2.Vec{X: 50, Y: 0}, Vision: 100},
		{ID: 3, Class: prey, Pos: r2.Vec{X: 10, Y: 0}, Vision: 100},
		{ID: 4, Class: prey, Pos: r2.Vec{X: 55, Y: 0}, Vision: 100},
	}
	pairs := b.Pair(cands)
	want := []Pair{{A: 1, B: 3}, {A: 2, B: 4}}
	if len(pairs) != len(want) {
		t.Fatalf("pairs = %v, want %v", pairs, want)
	}
	for i := range want {
		if pairs[i] != want[i] {
			t.Errorf("pair %d = %v, want %v", i, pairs[i], want[i])
		}
	}
}

func TestBreeding_PairRequiresMutualVisionAndClass(t *testing.T) {
	b := NewBreeding(config.Default())
	tests := []struct {
		name  string
		cands []MateCandidate
		pairs int
	}{
		{"one-sided vision", []MateCandidate{
			{ID: 1, Class: components.ClassPrey, Pos: r2.Vec{}, Vision: 100},
			{ID: 2, Class: components.ClassPrey, Pos: r2.Vec{X: 60}, Vision: 40},
		}, 0},
		{"mixed class", []MateCandidate{
			{ID: 1, Class: components.ClassPrey, Pos: r2.Vec{}, Vision: 100},
			{ID: 2, Class: components.ClassPredator, Pos: r2.Vec{X: 10}, Vision: 100},
		}, 0},
		{"odd one out", []MateCandidate{
			{ID: 1, Class: components.ClassPredator, Pos: r2.Vec{}, Vision: 100},
			{ID: 2, Class: components.ClassPredator, Pos: r2.Vec{X: 10}, Vision: 100},
			{ID: 3, Class: components.ClassPredator, Pos: r2.Vec{X: 20}, Vision: 100},
		}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(b.Pair(tt.cands)); got != tt.pairs {
				t.Errorf("pairs = %d, want %d", got, tt.pairs)
			}
		})
	}
}

func TestBreeding_OffspringEnergyAndGeneration(t *testing.T) {
	cfg := config.Default()
	cfg.Reproduction.OffspringFraction = 0.25
	b := NewBreeding(cfg)
	rng := rand.New(rand.NewPCG(1, 1))

	g := components.Genome{Size: 1, Speed: 1, Vision: 80, Aggression: 0.2, Metabolism: 1}
	child := b.Offspring(
		Parent{Genome: g, PreEnergy: 80, Generation: 2},
		Parent{Genome: g, PreEnergy: 60, Generation: 5},
		rng,
	)
	if math.Abs(child.Energy-35) > 1e-9 {
		t.Errorf("child energy = %v, want 35", child.Energy)
	}
	if math.Abs(child.CostA-20) > 1e-9 || math.Abs(child.CostB-15) > 1e-9 {
		t.Errorf("costs = %v,%v, want 20,15", child.CostA, child.CostB)
	}
	if math.Abs(child.CostA+child.CostB-child.Energy) > 1e-9 {
		t.Error("parents' costs should equal child energy")
	}
	if child.Generation != 6 {
		t.Errorf("generation = %d, want 6", child.Generation)
	}
	if child.Class != ClassOf(child.Genome, cfg.Genome.PredatorThreshold) {
		t.Error("child class does not match its genome")
	}
}

func TestBreeding_Timers(t *testing.T) {
	cfg := config.Default()
	cfg.Reproduction.SignalTimeoutTicks = 10
	cfg.Reproduction.PairTimeoutTicks = 20
	cfg.Reproduction.MatingTicks = 5
	b := NewBreeding(cfg)

	m := components.NewMating()
	m.Signal, m.SignalSince = true, 100
	if b.SignalExpired(&m, 109) || !b.SignalExpired(&m, 110) {
		t.Error("signal timeout boundary wrong")
	}

	m.Partner, m.PairedAt = 7, 200
	if b.SignalExpired(&m, 500) {
		t.Error("paired animals do not hit the signal timeout")
	}
	if b.PairExpired(&m, 219) || !b.PairExpired(&m, 220) {
		t.Error("pair timeout boundary wrong")
	}

	m.MatingSince = 215
	if b.PairExpired(&m, 400) {
		t.Error("mating pairs do not hit the pair timeout")
	}
	if b.MatingDone(&m, 219) || !b.MatingDone(&m, 220) {
		t.Error("mating duration boundary wrong")
	}
}

func TestBreeding_BirthPositionNearNest(t *testing.T) {
	cfg := config.Default()
	cfg.Reproduction.SpawnOffset = 15
	b := NewBreeding(cfg)
	rng := rand.New(rand.NewPCG(2, 2))
	center := r2.Vec{X: 200, Y: 200}
	for i := 0; i < 100; i++ {
		p := b.BirthPosition(center, rng)
		if distance(p, center) > 15+1e-9 {
			t.Fatalf("birth at %v is %v from centre", p, distance(p, center))
		}
	}
}
