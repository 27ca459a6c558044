package components

// Organism holds identity and lifecycle data shared by every entity.
type Organism struct {
	ID         uint32 // stable id, never reused within a run
	Kind       Kind
	Class      Class // fixed at birth
	State      State
	Age        int // ticks
	Generation int
	Heading    float64 // radians
	Nest       NestRef // occupied nest, if any
}

// Alive reports whether the organism has not been marked dead.
func (o *Organism) Alive() bool {
	return o.State != StateDead
}

// Mating holds the pair state machine for an animal.
type Mating struct {
	Signal      bool   // broadcasting a mating call
	SignalSince int    // tick the current call started
	Partner     uint32 // 0 = unpaired
	PairedAt    int    // tick the pair formed
	TargetNest  int    // nest the pair is heading for, -1 = none
	MatingSince int    // tick both partners entered the nest, -1 = not mating
	PreEnergy   float64
	Cooldown    int // ticks until the animal may seek a mate again
}

// NewMating returns an idle mating state.
func NewMating() Mating {
	return Mating{TargetNest: -1, MatingSince: -1}
}

// Paired reports whether the animal has a partner.
func (m *Mating) Paired() bool {
	return m.Partner != 0
}

// InMating reports whether the pair is in its mating phase.
func (m *Mating) InMating() bool {
	return m.MatingSince >= 0
}

// Reset clears the pair state and starts the cooldown.
func (m *Mating) Reset(cooldown int) {
	*m = NewMating()
	m.Cooldown = cooldown
}
