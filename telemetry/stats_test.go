package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/desert/components"
)

// ---------- distributions ----------

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty slice", []float64{}, 0.5, 0},
		{"single element", []float64{5.0}, 0.5, 5.0},
		{"p0", []float64{1, 2, 3, 4, 5}, 0.0, 1.0},
		{"p100", []float64{1, 2, 3, 4, 5}, 1.0, 5.0},
		{"p50 odd", []float64{1, 2, 3, 4, 5}, 0.5, 3.0},
		{"p50 even", []float64{1, 2, 3, 4}, 0.5, 2.5},
		{"p10", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.1, 1.9},
		{"p90", []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 0.9, 9.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Percentile(tt.sorted, tt.p)
			if math.Abs(got-tt.want) > 0.001 {
				t.Errorf("Percentile(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func TestComputeEnergyStats(t *testing.T) {
	values := []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
	mean, p10, p50, p90 := ComputeEnergyStats(values)

	// Mean should be 0.55
	if math.Abs(mean-0.55) > 0.001 {
		t.Errorf("mean = %v, want 0.55", mean)
	}

	// P10 should be around 0.19
	if math.Abs(p10-0.19) > 0.01 {
		t.Errorf("p10 = %v, want ~0.19", p10)
	}

	// P50 should be around 0.55
	if math.Abs(p50-0.55) > 0.01 {
		t.Errorf("p50 = %v, want ~0.55", p50)
	}

	// P90 should be around 0.91
	if math.Abs(p90-0.91) > 0.01 {
		t.Errorf("p90 = %v, want ~0.91", p90)
	}
}

func TestComputeEnergyStatsEmpty(t *testing.T) {
	mean, p10, p50, p90 := ComputeEnergyStats([]float64{})

	if mean != 0 || p10 != 0 || p50 != 0 || p90 != 0 {
		t.Error("empty slice should return all zeros")
	}
}

func TestComputeTraitStats(t *testing.T) {
	genomes := []components.Genome{
		{Size: 1, Speed: 1, Vision: 50, Aggression: 0.2, Metabolism: 1},
		{Size: 2, Speed: 1, Vision: 150, Aggression: 0.8, Metabolism: 0.5},
	}
	ts := ComputeTraitStats(genomes)

	if math.Abs(ts.Size-1.5) > 1e-9 || math.Abs(ts.Vision-100) > 1e-9 {
		t.Errorf("means = %+v", ts)
	}
	if math.Abs(ts.Aggression-0.5) > 1e-9 {
		t.Errorf("aggression mean = %v, want 0.5", ts.Aggression)
	}
	// population std of {0.2, 0.8}
	if math.Abs(ts.AggressionStd-0.3) > 1e-9 {
		t.Errorf("aggression std = %v, want 0.3", ts.AggressionStd)
	}
	if (ComputeTraitStats(nil) != TraitStats{}) {
		t.Error("no genomes should give zero stats")
	}
}

// ---------- collector ----------

func TestCollector_FlushAndReset(t *testing.T) {
	c := NewCollector(100, 0.05)

	c.RecordBirth(components.KindHerbivore)
	c.RecordBirth(components.KindHerbivore)
	c.RecordBirth(components.KindPredator)
	c.RecordDeath(CauseStarvation)
	c.RecordDeath(CausePredation)
	c.RecordDeath(CausePredation)
	c.RecordAttack()
	c.RecordAttack()
	c.RecordAttack()
	c.RecordAttack()
	c.RecordKill()
	c.RecordAttackBlocked()
	c.RecordGraze(2)
	c.RecordGraze(1.5)
	c.RecordMating()
	c.RecordLedger(Ledger{Removed: 10, Ingested: 8, Loss: 2})
	c.RecordLedger(Ledger{Removed: 5, Ingested: 4, Loss: 1})

	if c.ShouldFlush(99) {
		t.Error("window should not be due at tick 99")
	}
	if !c.ShouldFlush(100) {
		t.Fatal("window should be due at tick 100")
	}

	s := c.Flush(100, Sample{
		Plants:            10,
		HerbivoreEnergies: []float64{10, 20, 30},
		PredatorEnergies:  []float64{50},
		Scent:             [4]float64{1, 2, 3, 4},
	})

	if s.HerbivoreBirths != 2 || s.PredatorBirths != 1 {
		t.Errorf("births = %d/%d", s.HerbivoreBirths, s.PredatorBirths)
	}
	if s.Deaths() != 3 || s.PredationDeaths != 2 {
		t.Errorf("deaths = %d (predation %d)", s.Deaths(), s.PredationDeaths)
	}
	if s.KillRate != 0.25 {
		t.Errorf("kill rate = %v, want 0.25", s.KillRate)
	}
	if s.Grazes != 2 || s.BiomassGrazed != 3.5 {
		t.Errorf("grazes = %d biomass %v", s.Grazes, s.BiomassGrazed)
	}
	if s.Herbivores != 3 || s.Predators != 1 || s.HerbEnergyMean != 20 {
		t.Errorf("population sample wrong: %+v", s)
	}
	if s.EnergyRemoved != 15 || s.EnergyIngested+s.EnergyLoss != s.EnergyRemoved {
		t.Errorf("ledger = %v removed, %v ingested, %v loss", s.EnergyRemoved, s.EnergyIngested, s.EnergyLoss)
	}
	if s.ScentCarrion != 4 {
		t.Errorf("carrion scent = %v", s.ScentCarrion)
	}
	if math.Abs(s.SimTimeSec-5) > 1e-9 {
		t.Errorf("sim time = %v, want 5", s.SimTimeSec)
	}

	next := c.Flush(200, Sample{})
	if next.WindowStartTick != 100 || next.Births() != 0 || next.Attacks != 0 || next.EnergyRemoved != 0 {
		t.Errorf("counters not reset: %+v", next)
	}
	if c.WindowDurationTicks() != 100 {
		t.Errorf("window = %d", c.WindowDurationTicks())
	}
}

// ---------- lifetime ----------

func TestLifetimeTracker(t *testing.T) {
	lt := NewLifetimeTracker()
	lt.Register(7, 100, components.KindPredator, 3, components.Genome{Size: 1.2})

	lt.RecordAttack(7)
	lt.RecordKill(7)
	lt.RecordChild(7)
	lt.RecordForage(7, 12)
	lt.UpdateEnergy(7, 80)
	lt.UpdateEnergy(7, 60)
	lt.RecordKill(99) // unknown ids are ignored

	s := lt.Get(7)
	if s.Kills != 1 || s.Attacks != 1 || s.Children != 1 || s.TotalForaged != 12 || s.PeakEnergy != 80 {
		t.Errorf("stats = %+v", s)
	}
	if s.Ticks(250) != 150 {
		t.Errorf("Ticks = %d, want 150", s.Ticks(250))
	}

	removed := lt.Remove(7, 400)
	if removed == nil || removed.DeathTick != 400 || removed.Ticks(1000) != 300 {
		t.Errorf("removed = %+v", removed)
	}
	if lt.Count() != 0 || lt.Get(7) != nil {
		t.Error("entity still tracked after Remove")
	}
}
