// Package components defines ECS components for the simulation.
package components

import "gonum.org/v1/gonum/spatial/r2"

// Kind is the closed set of entity kinds.
type Kind uint8

const (
	KindPlant Kind = iota
	KindHerbivore
	KindPredator
)

func (k Kind) String() string {
	switch k {
	case KindPlant:
		return "plant"
	case KindHerbivore:
		return "herbivore"
	case KindPredator:
		return "predator"
	}
	return "unknown"
}

// Class is the behavioral class derived from the genome at birth.
// Plants have ClassNone.
type Class uint8

const (
	ClassNone Class = iota
	ClassPrey
	ClassPredator
)

func (c Class) String() string {
	switch c {
	case ClassPrey:
		return "prey"
	case ClassPredator:
		return "predator"
	}
	return "none"
}

// KindForClass maps an animal class to its entity kind.
func KindForClass(c Class) Kind {
	if c == ClassPredator {
		return KindPredator
	}
	return KindHerbivore
}

// State is the behavioral state of an animal.
type State uint8

const (
	StateIdle State = iota
	StateSeekingFood
	StateFleeing
	StateSeekingMate
	StateReturningToNest
	StateMating
	StateDead
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StateSeekingFood:     "seeking_food",
	StateFleeing:         "fleeing",
	StateSeekingMate:     "seeking_mate",
	StateReturningToNest: "returning_to_nest",
	StateMating:          "mating",
	StateDead:            "dead",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Position represents an entity's world position.
type Position struct {
	X, Y float64
}

// Vec returns the position as a gonum vector.
func (p Position) Vec() r2.Vec {
	return r2.Vec{X: p.X, Y: p.Y}
}

// PositionOf converts a vector back into a Position.
func PositionOf(v r2.Vec) Position {
	return Position{X: v.X, Y: v.Y}
}

// Velocity represents the displacement applied during the last tick.
type Velocity struct {
	X, Y float64
}

// NestRef is a weak reference to a nest zone. It resolves only while the
// layout it was taken from is current.
type NestRef struct {
	Nest   int    // index into the nest table, -1 = none
	Layout uint64 // layout version the index belongs to
}

// NoNest is the empty nest reference.
var NoNest = NestRef{Nest: -1}

// Valid reports whether the reference points at a nest.
func (r NestRef) Valid() bool {
	return r.Nest >= 0
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MarshalText encodes the class by name.
func (c Class) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }
