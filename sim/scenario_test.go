package sim

import (
	"math"
	"testing"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
	"github.com/pthm-cable/desert/systems"
)

// ---------- predation ----------

func TestScenario_PredationDigestsOverWindow(t *testing.T) {
	cfg := config.Default()
	cfg.Digestion.MeatGain = 20
	s := newTestSim(t, cfg, Options{Empty: true})

	pred := s.AddAnimal(AnimalSpec{
		Genome:   predatorGenome(),
		Position: components.Position{X: 500, Y: 500},
		Energy:   50,
	})
	prey := s.AddAnimal(AnimalSpec{
		Genome:   components.Genome{Size: 0.6, Speed: 0.5, Vision: 40, Aggression: 0.1, Metabolism: 1.0},
		Position: components.Position{X: 560, Y: 500},
		Energy:   50,
	})

	s.Step()
	if rec, _ := s.Inspect(pred); rec.State != components.StateSeekingFood {
		t.Fatalf("predator state = %s, want seeking_food", rec.State)
	}

	killTick := 0
	for tick := 2; tick <= 300 && killTick == 0; tick++ {
		if rep := s.Step(); rep.Deaths > 0 {
			killTick = rep.Tick
		}
	}
	if killTick == 0 {
		t.Fatal("predator never caught the prey")
	}
	if _, ok := s.Inspect(prey); ok {
		t.Error("prey still in snapshot after the kill")
	}
	if _, ok := s.index.Position(prey); ok {
		t.Error("prey still in the spatial index")
	}

	// One portion was released in the kill tick; the rest is pending.
	per := cfg.Digestion.MeatGain / float64(cfg.Digestion.MeatTicks)
	rec, _ := s.Inspect(pred)
	if want := cfg.Digestion.MeatGain - per; math.Abs(rec.Digesting-want) > 1e-9 {
		t.Errorf("pending after kill = %g, want %g", rec.Digesting, want)
	}

	var credited float64
	for i := 1; i < cfg.Digestion.MeatTicks; i++ {
		credited += s.Step().Ledger.Credited
	}
	rec, _ = s.Inspect(pred)
	if rec.Digesting > 1e-9 {
		t.Errorf("pending after the window = %g, want 0", rec.Digesting)
	}
	if want := cfg.Digestion.MeatGain - per; math.Abs(credited-want) > 1e-9 {
		t.Errorf("credited after kill tick = %g, want %g", credited, want)
	}
}

func TestScenario_PredationBlockedInPreyNest(t *testing.T) {
	cfg := config.Default()
	cfg.Nests = []config.NestConfig{{X: 500, Y: 350, Radius: 60, Class: config.NestClassPrey, Capacity: 4}}
	s := newTestSim(t, cfg, Options{Empty: true})

	pred := s.AddAnimal(AnimalSpec{Genome: predatorGenome(), Position: components.Position{X: 500, Y: 350}, Energy: 20})
	prey := s.AddAnimal(AnimalSpec{Genome: preyGenome(), Position: components.Position{X: 505, Y: 350}, Energy: 50})

	e, _ := s.entity(pred)
	s.applyAttack(e, s.orgMap.Get(e), prey)
	if len(s.deaths) != 0 {
		t.Fatalf("prey inside a nest was killed")
	}
	for i := 0; i < 20; i++ {
		if rep := s.Step(); rep.Deaths > 0 {
			t.Fatalf("tick %d: %d deaths with prey sheltered", rep.Tick, rep.Deaths)
		}
	}
}

func TestScenario_PredationIgnoresInsertionOrder(t *testing.T) {
	predator := AnimalSpec{Genome: predatorGenome(), Position: components.Position{X: 500, Y: 500}, Energy: 20}
	prey := AnimalSpec{Genome: preyGenome(), Position: components.Position{X: 509, Y: 500}, Energy: 80}

	tests := []struct {
		name  string
		order []AnimalSpec
	}{
		{"predator first", []AnimalSpec{predator, prey}},
		{"prey first", []AnimalSpec{prey, predator}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSim(t, config.Default(), Options{Empty: true})
			for _, a := range tt.order {
				s.AddAnimal(a)
			}
			if rep := s.Step(); rep.Deaths != 1 {
				t.Errorf("deaths = %d, want 1", rep.Deaths)
			}
		})
	}
}

// ---------- mating ----------

func matingConfig(capacity int) *config.Config {
	cfg := config.Default()
	cfg.Nests = []config.NestConfig{{X: 500, Y: 350, Radius: 60, Class: config.NestClassPrey, Capacity: capacity}}
	return cfg
}

func TestScenario_TwoParentMating(t *testing.T) {
	cfg := matingConfig(2)
	s := newTestSim(t, cfg, Options{Empty: true, Seed: 11})

	a := s.AddAnimal(AnimalSpec{Genome: preyGenome(), Position: components.Position{X: 495, Y: 350}, Energy: 90, Age: 700})
	b := s.AddAnimal(AnimalSpec{Genome: preyGenome(), Position: components.Position{X: 505, Y: 350}, Energy: 90, Age: 700})

	s.Step()
	snap := s.Snapshot()
	if occ := snap.Nests[0].Occupants; len(occ) != 2 {
		t.Fatalf("occupants after tick 1 = %v, want both parents", occ)
	}
	ra, _ := s.Inspect(a)
	rb, _ := s.Inspect(b)
	if ra.State != components.StateMating || rb.State != components.StateMating {
		t.Fatalf("states = %s, %s, want mating", ra.State, rb.State)
	}
	if ra.Partner != b || rb.Partner != a {
		t.Fatalf("partners = %d, %d", ra.Partner, rb.Partner)
	}
	preA, preB := ra.Energy, rb.Energy

	var lastA, lastB float64
	birthTick := 0
	for tick := 2; tick <= 1+cfg.Reproduction.MatingTicks+5 && birthTick == 0; tick++ {
		ra, _ = s.Inspect(a)
		rb, _ = s.Inspect(b)
		lastA, lastB = ra.Energy, rb.Energy
		if rep := s.Step(); rep.Births > 0 {
			if rep.Births != 1 {
				t.Fatalf("births = %d, want 1", rep.Births)
			}
			birthTick = rep.Tick
		}
	}
	if want := 1 + cfg.Reproduction.MatingTicks; birthTick != want {
		t.Fatalf("birth tick = %d, want %d", birthTick, want)
	}

	snap = s.Snapshot()
	if n := snap.Count(components.KindHerbivore); n != 3 {
		t.Fatalf("herbivores = %d, want 3", n)
	}
	child, ok := s.Inspect(b + 1)
	if !ok {
		t.Fatal("child not found")
	}
	f := cfg.Reproduction.OffspringFraction
	if want := f * (preA + preB); math.Abs(child.Energy-want) > 1e-9 {
		t.Errorf("child energy = %g, want %g", child.Energy, want)
	}
	if child.Generation != 1 {
		t.Errorf("child generation = %d, want 1", child.Generation)
	}

	upkeep := systems.MetabolicCost(preyGenome(), cfg.Energy, cfg.World.TickSeconds)
	ra, _ = s.Inspect(a)
	rb, _ = s.Inspect(b)
	if want := lastA - upkeep - f*preA; math.Abs(ra.Energy-want) > 1e-9 {
		t.Errorf("parent a energy = %g, want %g", ra.Energy, want)
	}
	if want := lastB - upkeep - f*preB; math.Abs(rb.Energy-want) > 1e-9 {
		t.Errorf("parent b energy = %g, want %g", rb.Energy, want)
	}
	if ra.Partner != 0 || rb.Partner != 0 || ra.Nest != -1 || rb.Nest != -1 {
		t.Errorf("parents not released: %+v %+v", ra, rb)
	}
	if occ := snap.Nests[0].Occupants; len(occ) != 0 {
		t.Errorf("nest still occupied: %v", occ)
	}
}

func TestScenario_OffspringGetsWhatParentsPaid(t *testing.T) {
	cfg := matingConfig(2)
	s := newTestSim(t, cfg, Options{Empty: true, Seed: 11})

	a := s.AddAnimal(AnimalSpec{Genome: preyGenome(), Position: components.Position{X: 495, Y: 350}, Energy: 90, Age: 700})
	b := s.AddAnimal(AnimalSpec{Genome: preyGenome(), Position: components.Position{X: 505, Y: 350}, Energy: 90, Age: 700})

	s.Step()
	ea, _ := s.entity(a)
	if s.orgMap.Get(ea).State != components.StateMating {
		t.Fatal("pair did not start mating")
	}
	eb, _ := s.entity(b)
	// Parent a owes more than it holds.
	s.matingMap.Get(ea).PreEnergy = 1000
	preB := s.matingMap.Get(eb).PreEnergy

	upkeep := systems.MetabolicCost(preyGenome(), cfg.Energy, cfg.World.TickSeconds)
	f := cfg.Reproduction.OffspringFraction
	for tick := 2; tick <= 1+cfg.Reproduction.MatingTicks; tick++ {
		ra, _ := s.Inspect(a)
		rep := s.Step()
		if rep.Births == 0 {
			continue
		}
		child, ok := s.Inspect(b + 1)
		if !ok {
			t.Fatal("child not found")
		}
		paid := (ra.Energy - upkeep) + f*preB
		if got := child.Energy + rep.BirthClipped; math.Abs(got-paid) > 1e-9 {
			t.Errorf("child energy %g + clipped %g = %g, want %g paid", child.Energy, rep.BirthClipped, got, paid)
		}
		if child.Energy > child.MaxEnergy+1e-9 {
			t.Errorf("child energy %g above cap %g", child.Energy, child.MaxEnergy)
		}
		return
	}
	t.Fatal("no birth")
}

func TestScenario_CapacityOneContention(t *testing.T) {
	cfg := matingConfig(1)
	s := newTestSim(t, cfg, Options{Empty: true, Seed: 3})

	ids := []uint32{
		s.AddAnimal(AnimalSpec{Genome: preyGenome(), Position: components.Position{X: 490, Y: 350}, Energy: 90, Age: 700}),
		s.AddAnimal(AnimalSpec{Genome: preyGenome(), Position: components.Position{X: 500, Y: 350}, Energy: 90, Age: 700}),
		s.AddAnimal(AnimalSpec{Genome: preyGenome(), Position: components.Position{X: 510, Y: 350}, Energy: 90, Age: 700}),
	}

	s.Step()
	if occ := s.Snapshot().Nests[0].Occupants; len(occ) != 1 || occ[0] != ids[0] {
		t.Fatalf("occupants after tick 1 = %v, want [%d]", occ, ids[0])
	}

	end := 2 + cfg.Reproduction.PairTimeoutTicks
	for tick := 2; tick <= end; tick++ {
		rep := s.Step()
		if rep.Births != 0 {
			t.Fatalf("tick %d: birth in a capacity-1 nest", tick)
		}
		if occ := s.Snapshot().Nests[0].Occupants; len(occ) > 1 {
			t.Fatalf("tick %d: occupants %v exceed capacity", tick, occ)
		}
	}

	snap := s.Snapshot()
	if occ := snap.Nests[0].Occupants; len(occ) != 0 {
		t.Errorf("occupants after timeout = %v, want none", occ)
	}
	for _, id := range ids {
		rec, ok := s.Inspect(id)
		if !ok {
			t.Fatalf("animal %d died", id)
		}
		switch rec.State {
		case components.StateSeekingMate, components.StateReturningToNest, components.StateMating:
			t.Errorf("animal %d still in %s after timeout", id, rec.State)
		}
		if rec.Partner != 0 {
			t.Errorf("animal %d still paired with %d", id, rec.Partner)
		}
	}
}
