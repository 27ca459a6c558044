package sim

import (
	"fmt"
	"slices"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/systems"
	"github.com/pthm-cable/desert/telemetry"
)

// TickReport summarises one committed tick.
type TickReport struct {
	Tick       int
	Herbivores int
	Predators  int
	Plants     int
	Births     int
	Deaths     int
	Ledger     telemetry.Ledger
	Violations []error

	// BirthClipped is offspring energy above the child's cap, discarded at birth.
	BirthClipped float64
}

// agentRow pairs a view entry with its entity while the view is sorted.
type agentRow struct {
	entity ecs.Entity
	view   systems.AgentView
}

// Step advances the world by one tick and returns what happened.
func (s *Simulation) Step() TickReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step()
}

func (s *Simulation) step() TickReport {
	s.tick++
	s.report = TickReport{Tick: s.tick}
	s.violations = nil
	clear(s.deaths)

	s.perf.StartTick()

	s.perf.StartPhase(telemetry.PhaseScent)
	s.scent.TickDecay()

	s.perf.StartPhase(telemetry.PhaseSpatialIndex)
	s.rebuildIndex()

	s.perf.StartPhase(telemetry.PhaseSnapshot)
	s.buildView()

	s.perf.StartPhase(telemetry.PhaseDecide)
	s.decideAll()

	s.perf.StartPhase(telemetry.PhaseCommit)
	s.commit()

	s.perf.StartPhase(telemetry.PhaseReproduction)
	s.resolveReproduction()

	s.perf.StartPhase(telemetry.PhaseCleanup)
	s.checkInvariants()
	s.removeDead()
	s.insertBirths()
	s.respawn()

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.report.Herbivores = s.numHerb
	s.report.Predators = s.numPred
	s.report.Plants = s.numPlants
	s.report.Violations = s.violations
	s.collector.RecordLedger(s.report.Ledger)
	s.publish()
	s.flushTelemetry()

	s.perf.EndTick()
	return s.report
}

// rebuildIndex refills the spatial index from committed positions.
func (s *Simulation) rebuildIndex() {
	s.index.Clear()

	query := s.animalFilter.Query()
	for query.Next() {
		pos, _, org, _, _, _, _ := query.Get()
		s.index.Insert(org.ID, pos.Vec())
	}

	plants := s.plantFilter.Query()
	for plants.Next() {
		pos, org, _ := plants.Get()
		s.index.Insert(org.ID, pos.Vec())
	}
}

// buildView freezes the world into the read-only view decisions run
// against. Agents and plants are sorted by id; parallel.entities stays
// aligned with view.Agents.
func (s *Simulation) buildView() {
	rows := s.rows[:0]
	query := s.animalFilter.Query()
	for query.Next() {
		pos, _, org, g, energy, _, m := query.Get()
		rows = append(rows, agentRow{
			entity: query.Entity(),
			view: systems.AgentView{
				ID:         org.ID,
				Kind:       org.Kind,
				Class:      org.Class,
				State:      org.State,
				Pos:        pos.Vec(),
				Heading:    org.Heading,
				Genome:     *g,
				Energy:     energy.Value,
				MaxEnergy:  energy.Max,
				Age:        org.Age,
				Signal:     m.Signal,
				Partner:    m.Partner,
				TargetNest: m.TargetNest,
				InMating:   m.InMating(),
				Cooldown:   m.Cooldown,
				Nest:       org.Nest,
			},
		})
	}
	slices.SortFunc(rows, func(a, b agentRow) int {
		return cmpUint32(a.view.ID, b.view.ID)
	})
	rows = s.dropDuplicateIDs(rows)
	s.rows = rows

	agents := s.view.Agents[:0]
	entities := s.parallel.entities[:0]
	for i := range rows {
		agents = append(agents, rows[i].view)
		entities = append(entities, rows[i].entity)
	}
	s.view.Agents = agents
	s.parallel.entities = entities

	plantViews := s.view.Plants[:0]
	plants := s.plantFilter.Query()
	for plants.Next() {
		pos, org, pm := plants.Get()
		plantViews = append(plantViews, systems.PlantView{ID: org.ID, Pos: pos.Vec(), Biomass: pm.Biomass})
	}
	slices.SortFunc(plantViews, func(a, b systems.PlantView) int {
		return cmpUint32(a.ID, b.ID)
	})
	s.view.Plants = plantViews
}

// dropDuplicateIDs removes entities that share an id with another. The
// entity registered under the id survives.
func (s *Simulation) dropDuplicateIDs(rows []agentRow) []agentRow {
	var dups []ecs.Entity
	out := rows[:0]
	for i := range rows {
		if len(out) > 0 && out[len(out)-1].view.ID == rows[i].view.ID {
			prev := &out[len(out)-1]
			drop := rows[i]
			if s.byID[drop.view.ID] == drop.entity {
				drop, *prev = *prev, rows[i]
			}
			dups = append(dups, drop.entity)
			s.violation(fmt.Errorf("%w: duplicate id %d", ErrInvariantViolation, drop.view.ID))
			continue
		}
		out = append(out, rows[i])
	}
	for _, e := range dups {
		s.uncount(s.orgMap.Get(e).Kind)
		s.world.RemoveEntity(e)
	}
	return out
}

// violation records a broken invariant. The tick continues.
func (s *Simulation) violation(err error) {
	s.violations = append(s.violations, err)
	s.collector.RecordInvariantViolation()
	s.logger.Warn("invariant_violation", "tick", s.tick, "error", err)
}

// uncount drops a removed animal from the population counters.
func (s *Simulation) uncount(kind components.Kind) {
	switch kind {
	case components.KindPredator:
		s.numPred--
	case components.KindHerbivore:
		s.numHerb--
	}
}

func cmpUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// forEachAnimal visits living animals from the current view in ascending id.
func (s *Simulation) forEachAnimal(fn func(e ecs.Entity, org *components.Organism)) {
	for _, e := range s.parallel.entities {
		if !s.world.Alive(e) {
			continue
		}
		org := s.orgMap.Get(e)
		if !org.Alive() {
			continue
		}
		fn(e, org)
	}
}
