package components

// Energy holds an animal's energy reserve.
type Energy struct {
	Value float64
	Max   float64
}

// FoodKind distinguishes digestion portions.
type FoodKind uint8

const (
	FoodPlant FoodKind = iota
	FoodMeat
)

func (f FoodKind) String() string {
	if f == FoodMeat {
		return "meat"
	}
	return "plant"
}

// Portion is a pending energy release.
type Portion struct {
	Food      FoodKind
	PerTick   float64
	Remaining int // ticks left
}

// Digestion is the queue of energy still to be released.
type Digestion struct {
	Queue []Portion
}

// Pending returns the total energy still queued.
func (d *Digestion) Pending() float64 {
	var sum float64
	for _, p := range d.Queue {
		sum += p.PerTick * float64(p.Remaining)
	}
	return sum
}

// Digesting reports whether any portion of the given food is queued.
func (d *Digestion) Digesting(f FoodKind) bool {
	for _, p := range d.Queue {
		if p.Food == f && p.Remaining > 0 {
			return true
		}
	}
	return false
}

// PlantMatter holds a plant's edible biomass.
type PlantMatter struct {
	Biomass     float64
	Max         float64
	RegrowTimer int // ticks until a depleted plant refills
}

// Depleted reports whether the plant has nothing left to eat.
func (p *PlantMatter) Depleted() bool {
	return p.Biomass <= 0
}
