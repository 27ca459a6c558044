package sim

import (
	"fmt"
	"math"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/systems"
	"github.com/pthm-cable/desert/telemetry"
)

// checkInvariants repairs world state that should be impossible: nests
// over capacity or holding the wrong class, negative energy, and a class
// that no longer matches the genome. Each repair is reported as a violation.
func (s *Simulation) checkInvariants() {
	for i := 0; i < s.nests.Len(); i++ {
		zone := s.nests.Zone(i)
		for len(zone.Occupants) > zone.Capacity {
			id := zone.Occupants[len(zone.Occupants)-1]
			s.violation(fmt.Errorf("%w: nest %d over capacity (%d/%d), evicting %d",
				ErrInvariantViolation, i, len(zone.Occupants), zone.Capacity, id))
			s.evict(id)
		}
		for _, id := range slices.Clone(zone.Occupants) {
			e, ok := s.entity(id)
			if !ok {
				s.violation(fmt.Errorf("%w: nest %d holds vanished id %d", ErrInvariantViolation, i, id))
				s.nests.Release(i, id)
				continue
			}
			if org := s.orgMap.Get(e); org.Class != zone.Class {
				s.violation(fmt.Errorf("%w: %s %d in %s nest %d",
					ErrInvariantViolation, org.Class, id, zone.Class, i))
				s.evict(id)
			}
		}
	}

	threshold := s.cfg.Genome.PredatorThreshold
	s.forEachAnimal(func(e ecs.Entity, org *components.Organism) {
		energy := s.energyMap.Get(e)
		if energy.Value < 0 || math.IsNaN(energy.Value) {
			s.violation(fmt.Errorf("%w: animal %d energy %g", ErrInvariantViolation, org.ID, energy.Value))
			energy.Value = 0
		}
		if systems.ClassOf(*s.genomeMap.Get(e), threshold) != org.Class {
			s.violation(fmt.Errorf("%w: animal %d class %s does not match genome", ErrInvariantViolation, org.ID, org.Class))
			org.State = components.StateDead
			s.deaths[org.ID] = telemetry.CauseInvariant
		}
	})
}

// evict removes id from every nest and drops its pair state.
func (s *Simulation) evict(id uint32) {
	s.nests.ReleaseAll(id)
	e, ok := s.entity(id)
	if !ok || !s.isAnimal(e) {
		return
	}
	org := s.orgMap.Get(e)
	if m := s.matingMap.Get(e); m.Paired() {
		if pe, ok := s.entity(m.Partner); ok {
			s.resetMating(pe, s.orgMap.Get(pe))
		}
	}
	s.resetMating(e, org)
}

// removeDead takes every dead animal out of the world in ascending id:
// killed this tick, starved (energy <= 0) or past the age cap.
func (s *Simulation) removeDead() {
	cfg := s.cfg
	dead := s.dead[:0]
	for _, e := range s.parallel.entities {
		if !s.world.Alive(e) {
			continue
		}
		org := s.orgMap.Get(e)
		if _, marked := s.deaths[org.ID]; !marked {
			switch {
			case s.energyMap.Get(e).Value <= 0:
				s.deaths[org.ID] = telemetry.CauseStarvation
			case cfg.World.MaxAgeTicks > 0 && org.Age > cfg.World.MaxAgeTicks:
				s.deaths[org.ID] = telemetry.CauseAge
			default:
				continue
			}
		}
		dead = append(dead, e)
	}
	s.dead = dead

	for _, e := range dead {
		org := s.orgMap.Get(e)
		cause := s.deaths[org.ID]
		pos := s.posMap.Get(e).Vec()
		org.State = components.StateDead

		if m := s.matingMap.Get(e); m.Paired() {
			if pe, ok := s.entity(m.Partner); ok && s.orgMap.Get(pe).Alive() {
				s.resetMating(pe, s.orgMap.Get(pe))
			}
		}
		s.nests.ReleaseAll(org.ID)
		s.index.Remove(org.ID)
		s.scent.Deposit(pos, systems.ScentCarrion, cfg.Scent.CarrionStrength)

		if stats := s.lifetime.Remove(org.ID, s.tick); stats != nil {
			s.hallOfFame.Consider(org.ID, stats)
		}
		s.collector.RecordDeath(cause)
		s.logger.Debug("death",
			"tick", s.tick,
			"id", org.ID,
			"kind", org.Kind,
			"cause", cause,
			"age", org.Age,
		)

		s.uncount(org.Kind)
		delete(s.byID, org.ID)
		s.world.RemoveEntity(e)
		s.report.Deaths++
	}
}

// insertBirths adds the offspring produced this tick.
func (s *Simulation) insertBirths() {
	for _, b := range s.births {
		if b.child.Energy <= 0 {
			s.logger.Debug("stillborn", "tick", s.tick, "a", b.parents[0], "b", b.parents[1])
			continue
		}
		if maxE := systems.MaxEnergy(b.child.Genome, s.cfg.Energy); b.child.Energy > maxE {
			s.report.BirthClipped += b.child.Energy - maxE
			s.logger.Debug("birth_energy_clipped", "tick", s.tick, "energy", b.child.Energy, "max", maxE)
		}
		id := s.spawnAnimal(AnimalSpec{
			Genome:     b.child.Genome,
			Position:   components.PositionOf(b.pos),
			Heading:    b.heading,
			Energy:     b.child.Energy,
			Generation: b.child.Generation,
		})
		kind := components.KindForClass(b.child.Class)
		s.collector.RecordBirth(kind)
		s.report.Births++
		s.logger.Debug("birth",
			"tick", s.tick,
			"id", id,
			"kind", kind,
			"generation", b.child.Generation,
			"a", b.parents[0],
			"b", b.parents[1],
		)
	}
	clear(s.births)
	s.births = s.births[:0]
}

// respawn tops the population up when it falls below the configured floor.
// Each respawned animal is a predator with probability equal to the
// predator share of the seed population, otherwise a herbivore.
func (s *Simulation) respawn() {
	pop := s.cfg.Population
	if pop.RespawnThreshold <= 0 || s.numHerb+s.numPred >= pop.RespawnThreshold {
		return
	}
	predShare := 0.0
	if total := pop.Herbivores + pop.Predators; total > 0 {
		predShare = float64(pop.Predators) / float64(total)
	}
	for i := 0; i < pop.RespawnCount; i++ {
		class := components.ClassPrey
		if s.rng.Float64() < predShare {
			class = components.ClassPredator
		}
		id := s.spawnRandomAnimal(class)
		s.logger.Debug("respawn", "tick", s.tick, "id", id, "class", class)
	}
}
