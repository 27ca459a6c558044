package sim

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/systems"
	"github.com/pthm-cable/desert/telemetry"
)

// commit applies every intent in three passes over ascending id. Attacks
// resolve first, then grazing, both against tick-start positions, so whether
// a prey escapes never depends on which of the two has the lower id. Id
// order only settles real conflicts: two predators on one prey, two grazers
// on one plant. Movement and upkeep follow for every survivor.
func (s *Simulation) commit() {
	s.eachIntent(func(e ecs.Entity, org *components.Organism, act *systems.Action) {
		org.State = act.State
		s.applySignal(e, act)
	})
	s.eachIntent(func(e ecs.Entity, org *components.Organism, act *systems.Action) {
		if act.Interact == systems.InteractAttack {
			s.applyAttack(e, org, act.Target)
		}
	})
	s.eachIntent(func(e ecs.Entity, org *components.Organism, act *systems.Action) {
		if act.Interact == systems.InteractGraze {
			s.applyGraze(e, org, act.Target)
		}
	})
	s.eachIntent(func(e ecs.Entity, org *components.Organism, act *systems.Action) {
		s.applyMovement(e, org, act)
		s.metabolise(e, org)
	})

	plants := s.plantFilter.Query()
	for plants.Next() {
		_, _, pm := plants.Get()
		systems.Regrow(pm, s.cfg.Plants)
	}
}

// eachIntent visits the living animals of this tick with their intents.
func (s *Simulation) eachIntent(fn func(ecs.Entity, *components.Organism, *systems.Action)) {
	for i, e := range s.parallel.entities {
		if !s.world.Alive(e) {
			continue
		}
		org := s.orgMap.Get(e)
		if !org.Alive() {
			continue
		}
		fn(e, org, &s.parallel.intents[i])
	}
}

// applySignal starts or stops the mating call. A paired animal stops calling.
func (s *Simulation) applySignal(e ecs.Entity, act *systems.Action) {
	m := s.matingMap.Get(e)
	if !act.Signal || m.Paired() {
		m.Signal = false
		return
	}
	if !m.Signal {
		m.Signal = true
		m.SignalSince = s.tick
	}
}

func (s *Simulation) applyMovement(e ecs.Entity, org *components.Organism, act *systems.Action) {
	cfg := s.cfg
	pos := s.posMap.Get(e)
	vel := s.velMap.Get(e)
	g := s.genomeMap.Get(e)
	energy := s.energyMap.Get(e)

	org.Heading = act.Heading

	throttle := math.Max(0, math.Min(1, act.Throttle))
	step := systems.MoveSpeed(*g, energy.Value, cfg.Movement, cfg.Thresholds) * cfg.World.TickSeconds * throttle

	from := pos.Vec()
	dir := r2.Vec{X: math.Cos(act.Heading), Y: math.Sin(act.Heading)}
	to := systems.ClampToWorld(r2.Add(from, r2.Scale(step, dir)), cfg.World.Width, cfg.World.Height)
	delta := r2.Sub(to, from)
	moved := r2.Norm(delta)

	*pos = components.PositionOf(to)
	*vel = components.Velocity{X: delta.X, Y: delta.Y}
	systems.Spend(energy, systems.MovementCost(*g, cfg.Energy, moved))

	if moved > 0 {
		class := systems.ScentPrey
		if org.Class == components.ClassPredator {
			class = systems.ScentPredator
		}
		s.scent.Deposit(to, class, cfg.Scent.TrailStrength)
	}
}

func (s *Simulation) applyGraze(e ecs.Entity, org *components.Organism, target uint32) {
	cfg := s.cfg
	pe, ok := s.entity(target)
	if !ok || !s.plantMap.HasAll(pe) {
		s.logger.Debug("stale_target", "tick", s.tick, "id", org.ID, "target", target, "action", "graze")
		org.State = components.StateIdle
		return
	}

	pos := s.posMap.Get(e).Vec()
	plantPos := s.posMap.Get(pe).Vec()
	if r2.Norm(r2.Sub(pos, plantPos)) > cfg.Plants.ContactRange {
		org.State = components.StateIdle
		return
	}

	g := s.genomeMap.Get(e)
	taken := systems.Graze(s.plantMap.Get(pe), systems.BiteSize(*g, cfg.Plants), cfg.Plants)
	if taken <= 0 {
		org.State = components.StateIdle
		return
	}

	meal := systems.PlantMeal(taken, cfg.Digestion)
	systems.Ingest(s.digestMap.Get(e), components.FoodPlant, meal.Gained, cfg.Digestion.PlantTicks)
	s.account(meal)

	s.scent.Deposit(plantPos, systems.ScentForage, cfg.Scent.ForageStrength)
	s.collector.RecordGraze(taken)
	s.lifetime.RecordForage(org.ID, meal.Gained)
}

func (s *Simulation) applyAttack(e ecs.Entity, org *components.Organism, target uint32) {
	cfg := s.cfg
	s.collector.RecordAttack()
	s.lifetime.RecordAttack(org.ID)

	te, ok := s.entity(target)
	if !ok || !s.isAnimal(te) {
		s.logger.Debug("stale_target", "tick", s.tick, "id", org.ID, "target", target, "action", "attack")
		s.attackFailed(org)
		return
	}
	prey := s.orgMap.Get(te)
	if !prey.Alive() || prey.Class != components.ClassPrey {
		s.attackFailed(org)
		return
	}

	preyPos := s.posMap.Get(te).Vec()
	if s.nests.InsidePreyNest(preyPos) {
		s.collector.RecordAttackBlocked()
		s.logger.Debug("attack_blocked", "tick", s.tick, "predator", org.ID, "prey", target)
		org.State = components.StateIdle
		return
	}

	pos := s.posMap.Get(e).Vec()
	g := s.genomeMap.Get(e)
	preyGenome := s.genomeMap.Get(te)
	if r2.Norm(r2.Sub(pos, preyPos)) > cfg.Predation.ContactRange ||
		!systems.CanPrey(g.Size, preyGenome.Size, cfg.Predation.SizeRatio) {
		s.attackFailed(org)
		return
	}

	preyEnergy := s.energyMap.Get(te)
	meal := systems.MeatMeal(preyEnergy.Value, cfg.Digestion)
	systems.Ingest(s.digestMap.Get(e), components.FoodMeat, meal.Gained, cfg.Digestion.MeatTicks)
	s.account(meal)

	preyEnergy.Value = 0
	prey.State = components.StateDead
	s.deaths[target] = telemetry.CausePredation

	s.collector.RecordKill()
	s.lifetime.RecordKill(org.ID)
	s.lifetime.RecordForage(org.ID, meal.Gained)
	s.logger.Debug("predation",
		"tick", s.tick,
		"predator", org.ID,
		"prey", target,
		"gain", meal.Gained,
	)
}

func (s *Simulation) attackFailed(org *components.Organism) {
	s.collector.RecordAttackFailed()
	org.State = components.StateIdle
}

// account books a meal into the tick ledger.
func (s *Simulation) account(meal systems.Meal) {
	l := &s.report.Ledger
	l.Removed += meal.Removed
	l.Ingested += meal.Gained
	l.Loss += meal.Loss
}

// metabolise charges upkeep, releases digestion and ages the animal.
// Starvation is judged after the whole tick is applied, so a digestion
// release can still save an animal whose upkeep drained it.
func (s *Simulation) metabolise(e ecs.Entity, org *components.Organism) {
	cfg := s.cfg
	energy := s.energyMap.Get(e)
	g := s.genomeMap.Get(e)
	m := s.matingMap.Get(e)

	systems.Spend(energy, systems.MetabolicCost(*g, cfg.Energy, cfg.World.TickSeconds))

	released, overflow := systems.ReleaseDigestion(energy, s.digestMap.Get(e))
	l := &s.report.Ledger
	l.Released += released
	l.Credited += released - overflow
	l.Overflow += overflow

	org.Age++
	if m.Cooldown > 0 {
		m.Cooldown--
	}
	s.lifetime.UpdateEnergy(org.ID, energy.Value)
}
