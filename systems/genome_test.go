package systems

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
)

func TestMutate_StaysInBounds(t *testing.T) {
	bounds := config.Default().Genome
	rng := rand.New(rand.NewPCG(1, 2))

	extremes := []components.Genome{
		{Size: bounds.Size.Min, Speed: bounds.Speed.Min, Vision: bounds.Vision.Min, Aggression: bounds.Aggression.Min, Metabolism: bounds.Metabolism.Min},
		{Size: bounds.Size.Max, Speed: bounds.Speed.Max, Vision: bounds.Vision.Max, Aggression: bounds.Aggression.Max, Metabolism: bounds.Metabolism.Max},
	}

	for _, rate := range []float64{0, 0.25, 0.5, 1} {
		for _, sigma := range []float64{0.07, 1, 10} {
			for i := 0; i < 500; i++ {
				a := extremes[i%2]
				b := extremes[(i/2)%2]
				child := Mutate(a, b, bounds, rate, sigma, rng)
				if !InBounds(child, bounds) {
					t.Fatalf("rate=%v sigma=%v: child out of bounds: %+v", rate, sigma, child)
				}
			}
		}
	}
}

func TestMutate_RateZeroIsAverage(t *testing.T) {
	bounds := config.Default().Genome
	rng := rand.New(rand.NewPCG(3, 4))
	a := components.Genome{Size: 0.6, Speed: 1.0, Vision: 60, Aggression: 0.2, Metabolism: 0.8}
	b := components.Genome{Size: 1.0, Speed: 1.4, Vision: 100, Aggression: 0.4, Metabolism: 1.2}

	got := Mutate(a, b, bounds, 0, 0.5, rng).Traits()
	want := components.Genome{Size: 0.8, Speed: 1.2, Vision: 80, Aggression: 0.3, Metabolism: 1.0}.Traits()
	for i := range got {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("%s = %v, want %v", components.TraitNames[i], got[i], want[i])
		}
	}
}

func TestMutate_Deterministic(t *testing.T) {
	bounds := config.Default().Genome
	a := components.Genome{Size: 0.6, Speed: 1.0, Vision: 60, Aggression: 0.2, Metabolism: 0.8}
	b := components.Genome{Size: 1.0, Speed: 1.4, Vision: 100, Aggression: 0.4, Metabolism: 1.2}

	g1 := Mutate(a, b, bounds, 0.5, 0.07, rand.New(rand.NewPCG(9, 9)))
	g2 := Mutate(a, b, bounds, 0.5, 0.07, rand.New(rand.NewPCG(9, 9)))
	if g1 != g2 {
		t.Errorf("same seed produced %+v and %+v", g1, g2)
	}
}

func TestClassOf(t *testing.T) {
	tests := []struct {
		aggression float64
		want       components.Class
	}{
		{0, components.ClassPrey},
		{0.6, components.ClassPrey},
		{0.6001, components.ClassPredator},
		{1, components.ClassPredator},
	}
	for _, tt := range tests {
		got := ClassOf(components.Genome{Aggression: tt.aggression}, 0.6)
		if got != tt.want {
			t.Errorf("ClassOf(%v) = %v, want %v", tt.aggression, got, tt.want)
		}
	}
}

func TestRandomGenome_MatchesClass(t *testing.T) {
	bounds := config.Default().Genome
	rng := rand.New(rand.NewPCG(5, 6))
	for i := 0; i < 1000; i++ {
		for _, class := range []components.Class{components.ClassPrey, components.ClassPredator} {
			g := RandomGenome(class, bounds, rng)
			if !InBounds(g, bounds) {
				t.Fatalf("genome out of bounds: %+v", g)
			}
			if got := ClassOf(g, bounds.PredatorThreshold); got != class {
				t.Fatalf("RandomGenome(%v) produced class %v (aggression %v)", class, got, g.Aggression)
			}
		}
	}
}
