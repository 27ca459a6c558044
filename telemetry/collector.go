// Package telemetry provides windowed ecosystem statistics, lifetime
// tracking, bookmarks, performance timings and run output.
package telemetry

import "github.com/pthm-cable/desert/components"

// DeathCause records why an animal died.
type DeathCause uint8

const (
	CauseStarvation DeathCause = iota
	CausePredation
	CauseAge
	CauseInvariant
)

func (c DeathCause) String() string {
	switch c {
	case CauseStarvation:
		return "starvation"
	case CausePredation:
		return "predation"
	case CauseAge:
		return "age"
	case CauseInvariant:
		return "invariant"
	}
	return "unknown"
}

// Ledger is the energy bookkeeping for one or more ticks.
//
// Removed = Ingested + Loss and Released = Credited + Overflow hold per tick.
type Ledger struct {
	Removed  float64 // taken from plants and prey
	Ingested float64 // queued for digestion
	Loss     float64 // conversion loss at ingestion
	Released float64 // drained from digestion queues
	Credited float64 // added to energy stores
	Overflow float64 // discarded above the energy cap
}

// Add accumulates another ledger into l.
func (l *Ledger) Add(o Ledger) {
	l.Removed += o.Removed
	l.Ingested += o.Ingested
	l.Loss += o.Loss
	l.Released += o.Released
	l.Credited += o.Credited
	l.Overflow += o.Overflow
}

// Sample is the world state captured when a window is flushed.
type Sample struct {
	Plants            int
	DepletedPlants    int
	HerbivoreEnergies []float64
	PredatorEnergies  []float64
	Genomes           []components.Genome
	MaxGeneration     int
	Scent             [4]float64 // prey, predator, forage, carrion
}

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int
	dt                  float64

	windowStartTick int

	herbivoreBirths  int
	predatorBirths   int
	deaths           [4]int
	attacks          int
	kills            int
	attacksBlocked   int
	attacksFailed    int
	grazes           int
	biomassGrazed    float64
	pairings         int
	matings          int
	signalTimeouts   int
	pairTimeouts     int
	admissionsDenied int
	invariants       int
	ledger           Ledger
}

// NewCollector creates a new stats collector.
// windowTicks: how many ticks each window lasts
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowTicks int, dt float64) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: windowTicks,
		dt:                  dt,
	}
}

// RecordBirth records a birth event.
func (c *Collector) RecordBirth(kind components.Kind) {
	if kind == components.KindPredator {
		c.predatorBirths++
	} else {
		c.herbivoreBirths++
	}
}

// RecordDeath records a death event.
func (c *Collector) RecordDeath(cause DeathCause) {
	if int(cause) < len(c.deaths) {
		c.deaths[cause]++
	}
}

// RecordAttack records a strike that reached commit.
func (c *Collector) RecordAttack() { c.attacks++ }

// RecordKill records a successful predation.
func (c *Collector) RecordKill() { c.kills++ }

// RecordAttackBlocked records a strike on prey sheltered in a nest.
func (c *Collector) RecordAttackBlocked() { c.attacksBlocked++ }

// RecordAttackFailed records a strike whose target was gone or out of reach.
func (c *Collector) RecordAttackFailed() { c.attacksFailed++ }

// RecordGraze records a bite taken from a plant.
func (c *Collector) RecordGraze(biomass float64) {
	c.grazes++
	c.biomassGrazed += biomass
}

// RecordPairing records a newly formed pair.
func (c *Collector) RecordPairing() { c.pairings++ }

// RecordMating records a completed mating that produced offspring.
func (c *Collector) RecordMating() { c.matings++ }

// RecordSignalTimeout records an unanswered mating call.
func (c *Collector) RecordSignalTimeout() { c.signalTimeouts++ }

// RecordPairTimeout records a pair that never reached a nest together.
func (c *Collector) RecordPairTimeout() { c.pairTimeouts++ }

// RecordAdmissionDenied records a nest admission refused for capacity.
func (c *Collector) RecordAdmissionDenied() { c.admissionsDenied++ }

// RecordInvariantViolation records a detected invariant violation.
func (c *Collector) RecordInvariantViolation() { c.invariants++ }

// RecordLedger adds one tick's energy ledger.
func (c *Collector) RecordLedger(l Ledger) { c.ledger.Add(l) }

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int, s Sample) WindowStats {
	var killRate float64
	if c.attacks > 0 {
		killRate = float64(c.kills) / float64(c.attacks)
	}

	herbMean, herbP10, herbP50, herbP90 := ComputeEnergyStats(s.HerbivoreEnergies)
	predMean, predP10, predP50, predP90 := ComputeEnergyStats(s.PredatorEnergies)
	traits := ComputeTraitStats(s.Genomes)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Plants:         s.Plants,
		DepletedPlants: s.DepletedPlants,
		Herbivores:     len(s.HerbivoreEnergies),
		Predators:      len(s.PredatorEnergies),

		HerbivoreBirths:  c.herbivoreBirths,
		PredatorBirths:   c.predatorBirths,
		StarvationDeaths: c.deaths[CauseStarvation],
		PredationDeaths:  c.deaths[CausePredation],
		AgeDeaths:        c.deaths[CauseAge],
		InvariantDeaths:  c.deaths[CauseInvariant],

		Attacks:        c.attacks,
		Kills:          c.kills,
		AttacksBlocked: c.attacksBlocked,
		AttacksFailed:  c.attacksFailed,
		KillRate:       killRate,

		Grazes:        c.grazes,
		BiomassGrazed: c.biomassGrazed,

		Pairings:         c.pairings,
		Matings:          c.matings,
		SignalTimeouts:   c.signalTimeouts,
		PairTimeouts:     c.pairTimeouts,
		AdmissionsDenied: c.admissionsDenied,

		InvariantViolations: c.invariants,

		HerbEnergyMean: herbMean,
		HerbEnergyP10:  herbP10,
		HerbEnergyP50:  herbP50,
		HerbEnergyP90:  herbP90,

		PredEnergyMean: predMean,
		PredEnergyP10:  predP10,
		PredEnergyP50:  predP50,
		PredEnergyP90:  predP90,

		SizeMean:       traits.Size,
		SpeedMean:      traits.Speed,
		VisionMean:     traits.Vision,
		AggressionMean: traits.Aggression,
		AggressionStd:  traits.AggressionStd,
		MetabolismMean: traits.Metabolism,
		MaxGeneration:  s.MaxGeneration,

		ScentPrey:     s.Scent[0],
		ScentPredator: s.Scent[1],
		ScentForage:   s.Scent[2],
		ScentCarrion:  s.Scent[3],

		EnergyRemoved:  c.ledger.Removed,
		EnergyIngested: c.ledger.Ingested,
		EnergyLoss:     c.ledger.Loss,
		EnergyReleased: c.ledger.Released,
		EnergyOverflow: c.ledger.Overflow,
	}

	*c = Collector{
		windowDurationTicks: c.windowDurationTicks,
		dt:                  c.dt,
		windowStartTick:     currentTick,
	}

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int {
	return c.windowDurationTicks
}
