package sim

import (
	"errors"
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/systems"
)

// pendingBirth is an offspring waiting to be inserted at the end of the tick.
type pendingBirth struct {
	child   systems.Offspring
	pos     r2.Vec
	heading float64
	parents [2]uint32
}

// resolveReproduction advances the mating state machine after the commit:
// timeouts, pairing, nest occupancy, mating start and completion.
func (s *Simulation) resolveReproduction() {
	s.expireMating()
	s.formPairs()
	s.updateNests()
	s.startMating()
	s.completeMating()
}

// nestSeeking reports whether state keeps or requests a nest slot.
func nestSeeking(state components.State) bool {
	return state == components.StateSeekingMate ||
		state == components.StateReturningToNest ||
		state == components.StateMating
}

// resetMating drops the pair state of one animal, frees its nest slot and
// starts the cooldown.
func (s *Simulation) resetMating(e ecs.Entity, org *components.Organism) {
	s.nests.ReleaseAll(org.ID)
	org.Nest = components.NoNest
	s.matingMap.Get(e).Reset(s.breeding.Cooldown())
	if nestSeeking(org.State) {
		org.State = components.StateIdle
	}
}

// expireMating resets calls and pairs that ran out of time, lost a partner
// or were interrupted.
func (s *Simulation) expireMating() {
	s.forEachAnimal(func(e ecs.Entity, org *components.Organism) {
		m := s.matingMap.Get(e)

		if !m.Paired() {
			if s.breeding.SignalExpired(m, s.tick) {
				s.collector.RecordSignalTimeout()
				s.logger.Debug("signal_timeout", "tick", s.tick, "id", org.ID)
				s.resetMating(e, org)
			}
			return
		}

		pe, ok := s.entity(m.Partner)
		if !ok || !s.orgMap.Get(pe).Alive() || s.matingMap.Get(pe).Partner != org.ID {
			s.logger.Debug("partner_lost", "tick", s.tick, "id", org.ID, "partner", m.Partner)
			s.resetMating(e, org)
			return
		}
		partner := s.orgMap.Get(pe)

		if m.InMating() && (org.State != components.StateMating || partner.State != components.StateMating) {
			s.logger.Debug("mating_interrupted", "tick", s.tick, "id", org.ID, "partner", partner.ID)
			s.resetMating(e, org)
			s.resetMating(pe, partner)
			return
		}

		if s.breeding.PairExpired(m, s.tick) {
			s.collector.RecordPairTimeout()
			s.logger.Debug("pair_timeout", "tick", s.tick, "a", org.ID, "b", partner.ID)
			s.resetMating(e, org)
			s.resetMating(pe, partner)
		}
	})
}

// formPairs matches signalling animals and assigns each pair the own-class
// nest nearest to their midpoint.
func (s *Simulation) formPairs() {
	cands := s.mates[:0]
	s.forEachAnimal(func(e ecs.Entity, org *components.Organism) {
		m := s.matingMap.Get(e)
		if org.State != components.StateSeekingMate || !m.Signal || m.Paired() {
			return
		}
		cands = append(cands, systems.MateCandidate{
			ID:     org.ID,
			Class:  org.Class,
			Pos:    s.posMap.Get(e).Vec(),
			Vision: s.genomeMap.Get(e).Vision,
		})
	})
	s.mates = cands

	for _, p := range s.breeding.Pair(cands) {
		ea, _ := s.entity(p.A)
		eb, _ := s.entity(p.B)
		orgA, orgB := s.orgMap.Get(ea), s.orgMap.Get(eb)
		mid := r2.Scale(0.5, r2.Add(s.posMap.Get(ea).Vec(), s.posMap.Get(eb).Vec()))
		nest, ok := s.nests.Nearest(mid, orgA.Class)
		if !ok {
			continue
		}

		for _, side := range [2]struct {
			e       ecs.Entity
			org     *components.Organism
			partner uint32
		}{{ea, orgA, p.B}, {eb, orgB, p.A}} {
			m := s.matingMap.Get(side.e)
			m.Partner = side.partner
			m.PairedAt = s.tick
			m.TargetNest = nest
			m.Signal = false
			side.org.State = components.StateReturningToNest
		}

		s.collector.RecordPairing()
		s.logger.Debug("paired", "tick", s.tick, "a", p.A, "b", p.B, "nest", nest)
	}
}

// updateNests releases occupants that no longer belong in their nest and
// admits new ones in ascending id. A full nest turns the rest away.
func (s *Simulation) updateNests() {
	s.forEachAnimal(func(e ecs.Entity, org *components.Organism) {
		m := s.matingMap.Get(e)
		pos := s.posMap.Get(e).Vec()

		if org.Nest.Valid() {
			zone, ok := s.nests.Resolve(org.Nest)
			keep := ok && zone.Has(org.ID) && zone.Contains(pos) && nestSeeking(org.State)
			if keep && m.Paired() && zone.ID != m.TargetNest {
				keep = false
			}
			if !keep {
				if ok {
					s.nests.Release(zone.ID, org.ID)
				}
				org.Nest = components.NoNest
			}
		}
		if org.Nest.Valid() {
			return
		}
		if org.State != components.StateSeekingMate && org.State != components.StateReturningToNest {
			return
		}

		var idx int
		var inside bool
		if m.Paired() {
			idx = m.TargetNest
			zone := s.nests.Zone(idx)
			inside = zone != nil && zone.Contains(pos)
		} else {
			idx, inside = s.nests.NestAt(pos, org.Class)
		}
		if !inside {
			return
		}

		err := s.nests.Admit(idx, org.ID, org.Class)
		switch {
		case err == nil:
			org.Nest = s.nests.Ref(idx)
			s.logger.Debug("nest_admitted", "tick", s.tick, "id", org.ID, "nest", idx)
		case errors.Is(err, systems.ErrNestFull):
			s.collector.RecordAdmissionDenied()
		default:
			s.violation(err)
		}
	})
}

// startMating begins mating for pairs whose partners both hold a slot in
// their target nest.
func (s *Simulation) startMating() {
	s.forEachAnimal(func(e ecs.Entity, org *components.Organism) {
		m := s.matingMap.Get(e)
		if !m.Paired() || m.InMating() || org.ID > m.Partner || !org.Nest.Valid() {
			return
		}
		pe, ok := s.entity(m.Partner)
		if !ok {
			return
		}
		partner := s.orgMap.Get(pe)
		if !partner.Nest.Valid() || partner.Nest.Nest != m.TargetNest || org.Nest.Nest != m.TargetNest {
			return
		}

		pm := s.matingMap.Get(pe)
		m.MatingSince, pm.MatingSince = s.tick, s.tick
		m.PreEnergy = s.energyMap.Get(e).Value
		pm.PreEnergy = s.energyMap.Get(pe).Value
		org.State, partner.State = components.StateMating, components.StateMating
		s.logger.Debug("mating_started", "tick", s.tick, "a", org.ID, "b", partner.ID, "nest", m.TargetNest)
	})
}

// completeMating creates offspring for pairs that finished mating. Parents
// pay their share of the child's energy, capped at what they hold; the
// child is inserted at the end of the tick.
func (s *Simulation) completeMating() {
	s.forEachAnimal(func(e ecs.Entity, org *components.Organism) {
		m := s.matingMap.Get(e)
		if !m.Paired() || org.ID > m.Partner || !s.breeding.MatingDone(m, s.tick) {
			return
		}
		pe, ok := s.entity(m.Partner)
		if !ok {
			return
		}
		partner := s.orgMap.Get(pe)
		pm := s.matingMap.Get(pe)

		child := s.breeding.Offspring(
			systems.Parent{Genome: *s.genomeMap.Get(e), PreEnergy: m.PreEnergy, Generation: org.Generation},
			systems.Parent{Genome: *s.genomeMap.Get(pe), PreEnergy: pm.PreEnergy, Generation: partner.Generation},
			s.rng,
		)
		// The child gets what the parents could actually pay.
		child.Energy = systems.Spend(s.energyMap.Get(e), child.CostA) +
			systems.Spend(s.energyMap.Get(pe), child.CostB)

		center := s.posMap.Get(e).Vec()
		if zone := s.nests.Zone(m.TargetNest); zone != nil {
			center = zone.Center
		}
		s.births = append(s.births, pendingBirth{
			child:   child,
			pos:     s.breeding.BirthPosition(center, s.rng),
			heading: s.rng.Float64() * 2 * math.Pi,
			parents: [2]uint32{org.ID, partner.ID},
		})

		s.lifetime.RecordChild(org.ID)
		s.lifetime.RecordChild(partner.ID)
		s.collector.RecordMating()
		s.logger.Debug("mating_complete",
			"tick", s.tick,
			"a", org.ID,
			"b", partner.ID,
			"class", child.Class,
			"energy", child.Energy,
		)

		s.resetMating(e, org)
		s.resetMating(pe, partner)
	})
}
