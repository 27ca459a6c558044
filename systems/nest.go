package systems

import (
	"errors"
	"math"
	"slices"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
)

var (
	ErrNestFull      = errors.New("nest full")
	ErrNestWrongKind = errors.New("nest belongs to another class")
	ErrNestUnknown   = errors.New("unknown nest")
)

// NestZone is a fixed circular shelter owned by one class.
type NestZone struct {
	ID        int
	Center    r2.Vec
	Radius    float64
	Class     components.Class
	Capacity  int
	Occupants []uint32 // ascending
}

// Contains reports whether p lies inside the zone.
func (n *NestZone) Contains(p r2.Vec) bool {
	return distance(n.Center, p) <= n.Radius
}

// Full reports whether the zone has no free slot.
func (n *NestZone) Full() bool {
	return len(n.Occupants) >= n.Capacity
}

// Has reports whether id occupies the zone.
func (n *NestZone) Has(id uint32) bool {
	_, ok := slices.BinarySearch(n.Occupants, id)
	return ok
}

// NestZones is the nest table for one world layout.
type NestZones struct {
	zones  []NestZone
	layout uint64
}

// NewNestZones builds the nest table from configuration.
func NewNestZones(cfgs []config.NestConfig, layout uint64) *NestZones {
	zones := make([]NestZone, len(cfgs))
	for i, c := range cfgs {
		class := components.ClassPrey
		if c.Class == config.NestClassPredator {
			class = components.ClassPredator
		}
		zones[i] = NestZone{
			ID:       i,
			Center:   r2.Vec{X: c.X, Y: c.Y},
			Radius:   c.Radius,
			Class:    class,
			Capacity: c.Capacity,
		}
	}
	return &NestZones{zones: zones, layout: layout}
}

// Len returns the number of nests.
func (z *NestZones) Len() int {
	return len(z.zones)
}

// Layout returns the layout version.
func (z *NestZones) Layout() uint64 {
	return z.layout
}

// Zone returns nest i, or nil.
func (z *NestZones) Zone(i int) *NestZone {
	if i < 0 || i >= len(z.zones) {
		return nil
	}
	return &z.zones[i]
}

// Ref returns a weak reference to nest i.
func (z *NestZones) Ref(i int) components.NestRef {
	return components.NestRef{Nest: i, Layout: z.layout}
}

// Resolve returns the nest a reference points to. References taken from
// another layout never resolve.
func (z *NestZones) Resolve(ref components.NestRef) (*NestZone, bool) {
	if !ref.Valid() || ref.Layout != z.layout {
		return nil, false
	}
	n := z.Zone(ref.Nest)
	return n, n != nil
}

// InsidePreyNest reports whether p lies in any prey nest.
func (z *NestZones) InsidePreyNest(p r2.Vec) bool {
	for i := range z.zones {
		if z.zones[i].Class == components.ClassPrey && z.zones[i].Contains(p) {
			return true
		}
	}
	return false
}

// NestAt returns the lowest-numbered nest of class that contains p.
func (z *NestZones) NestAt(p r2.Vec, class components.Class) (int, bool) {
	for i := range z.zones {
		if z.zones[i].Class == class && z.zones[i].Contains(p) {
			return i, true
		}
	}
	return -1, false
}

// Nearest returns the closest nest of class to p. Ties go to the lower index.
func (z *NestZones) Nearest(p r2.Vec, class components.Class) (int, bool) {
	best, bestD := -1, math.Inf(1)
	for i := range z.zones {
		if z.zones[i].Class != class {
			continue
		}
		if d := distance(z.zones[i].Center, p); d < bestD {
			best, bestD = i, d
		}
	}
	return best, best >= 0
}

// Admit adds id to nest i.
func (z *NestZones) Admit(i int, id uint32, class components.Class) error {
	n := z.Zone(i)
	if n == nil {
		return ErrNestUnknown
	}
	if n.Class != class {
		return ErrNestWrongKind
	}
	pos, found := slices.BinarySearch(n.Occupants, id)
	if found {
		return nil
	}
	if n.Full() {
		return ErrNestFull
	}
	n.Occupants = slices.Insert(n.Occupants, pos, id)
	return nil
}

// Release removes id from nest i. It reports whether id was an occupant.
func (z *NestZones) Release(i int, id uint32) bool {
	n := z.Zone(i)
	if n == nil {
		return false
	}
	pos, found := slices.BinarySearch(n.Occupants, id)
	if !found {
		return false
	}
	n.Occupants = slices.Delete(n.Occupants, pos, pos+1)
	return true
}

// ReleaseAll removes id from every nest.
func (z *NestZones) ReleaseAll(id uint32) {
	for i := range z.zones {
		z.Release(i, id)
	}
}

// Occupancy returns the total number of occupants across all nests.
func (z *NestZones) Occupancy() int {
	n := 0
	for i := range z.zones {
		n += len(z.zones[i].Occupants)
	}
	return n
}

// Clone returns a deep copy.
func (z *NestZones) Clone() *NestZones {
	out := &NestZones{zones: make([]NestZone, len(z.zones)), layout: z.layout}
	for i, n := range z.zones {
		n.Occupants = slices.Clone(n.Occupants)
		out.zones[i] = n
	}
	return out
}
