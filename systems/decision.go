package systems

import (
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
)

// AgentView is the frozen per-tick view of one animal.
type AgentView struct {
	ID         uint32
	Kind       components.Kind
	Class      components.Class
	State      components.State
	Pos        r2.Vec
	Heading    float64
	Genome     components.Genome
	Energy     float64
	MaxEnergy  float64
	Age        int
	Signal     bool
	Partner    uint32
	TargetNest int
	InMating   bool
	Cooldown   int
	Nest       components.NestRef
}

// PlantView is the frozen per-tick view of one plant.
type PlantView struct {
	ID      uint32
	Pos     r2.Vec
	Biomass float64
}

// WorldView is the read-only world state every decision reads from.
// Agents and Plants are sorted by id.
type WorldView struct {
	Cfg    *config.Config
	Agents []AgentView
	Plants []PlantView
	Index  *SpatialIndex
	Scent  *ScentField
	Nests  *NestZones
}

// Agent looks up an animal by id.
func (v *WorldView) Agent(id uint32) (*AgentView, bool) {
	i, ok := slices.BinarySearchFunc(v.Agents, id, func(a AgentView, id uint32) int {
		return cmpID(a.ID, id)
	})
	if !ok {
		return nil, false
	}
	return &v.Agents[i], true
}

// Plant looks up a plant by id.
func (v *WorldView) Plant(id uint32) (*PlantView, bool) {
	i, ok := slices.BinarySearchFunc(v.Plants, id, func(p PlantView, id uint32) int {
		return cmpID(p.ID, id)
	})
	if !ok {
		return nil, false
	}
	return &v.Plants[i], true
}

func cmpID(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Interaction is the kind of contact an action requests.
type Interaction uint8

const (
	InteractNone Interaction = iota
	InteractGraze
	InteractAttack
)

func (i Interaction) String() string {
	switch i {
	case InteractGraze:
		return "graze"
	case InteractAttack:
		return "attack"
	}
	return "none"
}

// Action is the intent produced by Decide and applied in the commit phase.
type Action struct {
	State    components.State
	Heading  float64 // new heading in radians
	Throttle float64 // fraction of full speed, [0,1]
	Interact Interaction
	Target   uint32
	Signal   bool
}

// Decide picks the next action for self. It reads only view and draws only
// from rng, so it is safe to call concurrently for different agents.
func Decide(self *AgentView, view *WorldView, rng *rand.Rand) Action {
	cfg := view.Cfg
	neighbors := view.Index.QueryRadius(self.Pos, self.Genome.Vision)

	if self.Energy < cfg.Thresholds.CriticalEnergy {
		return seekFood(self, view, neighbors, rng, true)
	}

	if self.Class == components.ClassPrey && !view.Nests.InsidePreyNest(self.Pos) {
		if act, ok := flee(self, view, neighbors); ok {
			return act
		}
	}

	if self.InMating {
		return Action{State: components.StateMating, Heading: self.Heading}
	}
	if self.Partner != 0 {
		return returnToNest(self, view)
	}
	if WantsMate(self, cfg.Thresholds) {
		return seekMate(self, view)
	}

	if self.Energy < cfg.Thresholds.ForageFraction*self.MaxEnergy {
		if act := seekFood(self, view, neighbors, rng, false); act.State == components.StateSeekingFood {
			return act
		}
	}
	return wander(self, view, rng, components.StateIdle)
}

// WantsMate reports whether an animal is ready to look for a partner.
func WantsMate(a *AgentView, th config.ThresholdConfig) bool {
	return a.Energy >= th.MatingEnergy && a.Age >= th.MaturityAge && a.Cooldown <= 0
}

// CanPrey reports whether a predator of size predSize may take prey of size
// preySize under the size rule.
func CanPrey(predSize, preySize, ratio float64) bool {
	return ratio <= 0 || preySize*ratio < predSize
}

func stepLength(self *AgentView, cfg *config.Config) float64 {
	return MoveSpeed(self.Genome, self.Energy, cfg.Movement, cfg.Thresholds) * cfg.World.TickSeconds
}

// approach steers toward target, throttling down so the step does not
// overshoot.
func approach(self *AgentView, cfg *config.Config, target r2.Vec, state components.State) Action {
	d := distance(self.Pos, target)
	step := stepLength(self, cfg)
	throttle := 1.0
	if step > 0 {
		throttle = clamp01(d / step)
	}
	return Action{
		State:    state,
		Heading:  vecHeading(r2.Sub(target, self.Pos), self.Heading),
		Throttle: throttle,
	}
}

func seekFood(self *AgentView, view *WorldView, neighbors []uint32, rng *rand.Rand, critical bool) Action {
	cfg := view.Cfg
	if self.Class == components.ClassPredator {
		best, bestD := uint32(0), math.Inf(1)
		var bestPos r2.Vec
		for _, id := range neighbors {
			prey, ok := view.Agent(id)
			if !ok || prey.Class != components.ClassPrey {
				continue
			}
			if view.Nests.InsidePreyNest(prey.Pos) || !CanPrey(self.Genome.Size, prey.Genome.Size, cfg.Predation.SizeRatio) {
				continue
			}
			if d := distance(self.Pos, prey.Pos); d < bestD {
				best, bestD, bestPos = id, d, prey.Pos
			}
		}
		if best != 0 {
			if bestD <= cfg.Predation.ContactRange {
				return Action{
					State:    components.StateSeekingFood,
					Heading:  vecHeading(r2.Sub(bestPos, self.Pos), self.Heading),
					Interact: InteractAttack,
					Target:   best,
				}
			}
			return approach(self, cfg, bestPos, components.StateSeekingFood)
		}
		if critical {
			// Live prey trails first, then carrion, which marks where kills happen.
			for _, class := range []ScentClass{ScentPrey, ScentCarrion} {
				if g, ok := view.Scent.Gradient(self.Pos, class); ok {
					return Action{State: components.StateSeekingFood, Heading: vecHeading(g, self.Heading), Throttle: 1}
				}
			}
			return wander(self, view, rng, components.StateSeekingFood)
		}
		return Action{State: components.StateIdle}
	}

	best, bestD := uint32(0), math.Inf(1)
	var bestPos r2.Vec
	for _, id := range neighbors {
		p, ok := view.Plant(id)
		if !ok || p.Biomass <= 0 {
			continue
		}
		if d := distance(self.Pos, p.Pos); d < bestD {
			best, bestD, bestPos = id, d, p.Pos
		}
	}
	if best != 0 {
		if bestD <= cfg.Plants.ContactRange {
			return Action{
				State:    components.StateSeekingFood,
				Heading:  self.Heading,
				Interact: InteractGraze,
				Target:   best,
			}
		}
		return approach(self, cfg, bestPos, components.StateSeekingFood)
	}
	if critical {
		if g, ok := view.Scent.Gradient(self.Pos, ScentForage); ok {
			return Action{State: components.StateSeekingFood, Heading: vecHeading(g, self.Heading), Throttle: 1}
		}
		return wander(self, view, rng, components.StateSeekingFood)
	}
	return Action{State: components.StateIdle}
}

func flee(self *AgentView, view *WorldView, neighbors []uint32) (Action, bool) {
	var away r2.Vec
	seen := false
	for _, id := range neighbors {
		other, ok := view.Agent(id)
		if !ok || other.Class != components.ClassPredator {
			continue
		}
		seen = true
		away = r2.Add(away, unit(r2.Sub(self.Pos, other.Pos)))
	}
	if !seen {
		return fleeScent(self, view)
	}
	return Action{
		State:    components.StateFleeing,
		Heading:  vecHeading(away, self.Heading+math.Pi),
		Throttle: 1,
	}, true
}

// fleeScent moves a prey that sees no predator down a strong predator trail.
func fleeScent(self *AgentView, view *WorldView) (Action, bool) {
	threshold := view.Cfg.Scent.FleeThreshold
	if threshold <= 0 || view.Scent.Read(self.Pos, self.Genome.Vision, ScentPredator) < threshold {
		return Action{}, false
	}
	g, ok := view.Scent.Gradient(self.Pos, ScentPredator)
	if !ok {
		return Action{}, false
	}
	return Action{
		State:    components.StateFleeing,
		Heading:  vecHeading(r2.Scale(-1, g), self.Heading+math.Pi),
		Throttle: 1,
	}, true
}

func seekMate(self *AgentView, view *WorldView) Action {
	cfg := view.Cfg
	callRange := self.Genome.Vision * cfg.Reproduction.CallRangeFactor

	// Inside an own-class nest: wait there for a partner.
	if n, ok := view.Nests.NestAt(self.Pos, self.Class); ok {
		act := approach(self, cfg, view.Nests.Zone(n).Center, components.StateSeekingMate)
		act.Throttle *= 0.5
		act.Signal = true
		return act
	}

	best, bestD := uint32(0), math.Inf(1)
	var bestPos r2.Vec
	for _, id := range view.Index.QueryRadius(self.Pos, callRange) {
		if id == self.ID {
			continue
		}
		other, ok := view.Agent(id)
		if !ok || other.Class != self.Class || !other.Signal || other.Partner != 0 {
			continue
		}
		if d := distance(self.Pos, other.Pos); d < bestD {
			best, bestD, bestPos = id, d, other.Pos
		}
	}
	if best != 0 {
		act := approach(self, cfg, bestPos, components.StateSeekingMate)
		act.Signal = true
		return act
	}
	if n, ok := view.Nests.Nearest(self.Pos, self.Class); ok {
		act := approach(self, cfg, view.Nests.Zone(n).Center, components.StateSeekingMate)
		act.Signal = true
		return act
	}
	return Action{State: components.StateSeekingMate, Heading: self.Heading, Throttle: 0.5, Signal: true}
}

func returnToNest(self *AgentView, view *WorldView) Action {
	cfg := view.Cfg
	nest := view.Nests.Zone(self.TargetNest)
	if nest == nil {
		return Action{State: components.StateReturningToNest, Heading: self.Heading}
	}
	if nest.Contains(self.Pos) {
		if partner, ok := view.Agent(self.Partner); ok && nest.Contains(partner.Pos) {
			act := approach(self, cfg, partner.Pos, components.StateReturningToNest)
			act.Throttle *= 0.5
			return act
		}
		act := approach(self, cfg, nest.Center, components.StateReturningToNest)
		act.Throttle *= 0.5
		return act
	}
	return approach(self, cfg, nest.Center, components.StateReturningToNest)
}

func wander(self *AgentView, view *WorldView, rng *rand.Rand, state components.State) Action {
	cfg := view.Cfg
	turn := (rng.Float64()*2 - 1) * cfg.Movement.WanderTurn
	heading := normalizeAngle(self.Heading + turn)

	// Turn back toward the interior near the world edge.
	margin := self.Genome.Vision * 0.25
	w, h := cfg.World.Width, cfg.World.Height
	if self.Pos.X < margin || self.Pos.X > w-margin || self.Pos.Y < margin || self.Pos.Y > h-margin {
		centre := r2.Vec{X: w / 2, Y: h / 2}
		heading = vecHeading(r2.Sub(centre, self.Pos), heading)
	}
	return Action{State: state, Heading: heading, Throttle: 0.6}
}
