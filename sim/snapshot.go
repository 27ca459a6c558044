package sim

import (
	"math"
	"slices"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/systems"
)

// EntityRecord is the read-only view of one entity in a snapshot.
// Animal fields are zero for plants and plant fields are zero for animals.
type EntityRecord struct {
	ID         uint32              `json:"id"`
	Kind       components.Kind     `json:"kind"`
	Class      components.Class    `json:"class"`
	Position   components.Position `json:"position"`
	Heading    float64             `json:"heading"`
	Genome     components.Genome   `json:"genome"`
	Energy     float64             `json:"energy"`
	MaxEnergy  float64             `json:"max_energy"`
	Biomass    float64             `json:"biomass"`
	MaxBiomass float64             `json:"max_biomass"`
	State      components.State    `json:"state"`
	Age        int                 `json:"age"`
	Generation int                 `json:"generation"`
	Nest       int                 `json:"nest"` // occupied nest index, -1 = none
	Partner    uint32              `json:"partner"`
	Signal     bool                `json:"signal"`
	Digesting  float64             `json:"digesting"` // energy still queued
}

// NestRecord is the read-only view of one nest zone.
type NestRecord struct {
	ID        int                 `json:"id"`
	Center    components.Position `json:"center"`
	Radius    float64             `json:"radius"`
	Class     components.Class    `json:"class"`
	Capacity  int                 `json:"capacity"`
	Occupants []uint32            `json:"occupants"`
}

// ScentGrid is a copy of the scent field. Layers are indexed by
// systems.ScentClass and laid out row-major.
type ScentGrid struct {
	Cols     int          `json:"cols"`
	Rows     int          `json:"rows"`
	CellSize float64      `json:"cell_size"`
	Layers   [4][]float64 `json:"layers"`
}

// At returns the intensity of class in the cell containing pos.
func (g *ScentGrid) At(pos components.Position, class systems.ScentClass) float64 {
	if g.CellSize <= 0 || int(class) >= len(g.Layers) {
		return 0
	}
	col := min(max(int(pos.X/g.CellSize), 0), g.Cols-1)
	row := min(max(int(pos.Y/g.CellSize), 0), g.Rows-1)
	layer := g.Layers[class]
	if i := row*g.Cols + col; i >= 0 && i < len(layer) {
		return layer[i]
	}
	return 0
}

// Snapshot is the world as of the last completed tick. It is immutable
// once published and safe to share between goroutines.
type Snapshot struct {
	Tick     int            `json:"tick"`
	Seed     uint64         `json:"seed"`
	Entities []EntityRecord `json:"entities"` // sorted by id
	Nests    []NestRecord   `json:"nests"`
	Scent    ScentGrid      `json:"scent"`
	Report   TickReport     `json:"-"`
}

// Find returns the record with the given id.
func (s *Snapshot) Find(id uint32) (EntityRecord, bool) {
	i, ok := slices.BinarySearchFunc(s.Entities, id, func(r EntityRecord, id uint32) int {
		return cmpUint32(r.ID, id)
	})
	if !ok {
		return EntityRecord{}, false
	}
	return s.Entities[i], true
}

// Nearest returns the entity closest to pos within radius. Ties go to the
// lower id.
func (s *Snapshot) Nearest(pos components.Position, radius float64) (EntityRecord, bool) {
	best, bestD := -1, math.Inf(1)
	for i := range s.Entities {
		dx := s.Entities[i].Position.X - pos.X
		dy := s.Entities[i].Position.Y - pos.Y
		d := math.Hypot(dx, dy)
		if d <= radius && d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return EntityRecord{}, false
	}
	return s.Entities[best], true
}

// Count returns the number of entities of kind.
func (s *Snapshot) Count(kind components.Kind) int {
	n := 0
	for i := range s.Entities {
		if s.Entities[i].Kind == kind {
			n++
		}
	}
	return n
}

// Snapshot returns the latest published snapshot. It never blocks on a
// running tick.
func (s *Simulation) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// Inspect returns the latest record of entity id.
func (s *Simulation) Inspect(id uint32) (EntityRecord, bool) {
	return s.Snapshot().Find(id)
}

// InspectAt returns the entity nearest to pos within radius in the latest
// snapshot.
func (s *Simulation) InspectAt(pos components.Position, radius float64) (EntityRecord, bool) {
	return s.Snapshot().Nearest(pos, radius)
}

// publish builds and stores the snapshot of the current world.
func (s *Simulation) publish() {
	snap := &Snapshot{
		Tick:     s.tick,
		Seed:     s.seed,
		Entities: make([]EntityRecord, 0, len(s.byID)),
		Nests:    make([]NestRecord, 0, s.nests.Len()),
		Report:   s.report,
	}

	query := s.animalFilter.Query()
	for query.Next() {
		pos, _, org, g, energy, dig, m := query.Get()
		nest := -1
		if _, ok := s.nests.Resolve(org.Nest); ok {
			nest = org.Nest.Nest
		}
		snap.Entities = append(snap.Entities, EntityRecord{
			ID:         org.ID,
			Kind:       org.Kind,
			Class:      org.Class,
			Position:   *pos,
			Heading:    org.Heading,
			Genome:     *g,
			Energy:     energy.Value,
			MaxEnergy:  energy.Max,
			State:      org.State,
			Age:        org.Age,
			Generation: org.Generation,
			Nest:       nest,
			Partner:    m.Partner,
			Signal:     m.Signal,
			Digesting:  dig.Pending(),
		})
	}

	plants := s.plantFilter.Query()
	for plants.Next() {
		pos, org, pm := plants.Get()
		snap.Entities = append(snap.Entities, EntityRecord{
			ID:         org.ID,
			Kind:       org.Kind,
			Class:      org.Class,
			Position:   *pos,
			Biomass:    pm.Biomass,
			MaxBiomass: pm.Max,
			State:      org.State,
			Nest:       -1,
		})
	}
	slices.SortFunc(snap.Entities, func(a, b EntityRecord) int {
		return cmpUint32(a.ID, b.ID)
	})

	for i := 0; i < s.nests.Len(); i++ {
		zone := s.nests.Zone(i)
		snap.Nests = append(snap.Nests, NestRecord{
			ID:        zone.ID,
			Center:    components.PositionOf(zone.Center),
			Radius:    zone.Radius,
			Class:     zone.Class,
			Capacity:  zone.Capacity,
			Occupants: slices.Clone(zone.Occupants),
		})
	}

	cols, rows := s.scent.Dims()
	snap.Scent = ScentGrid{Cols: cols, Rows: rows, CellSize: s.scent.CellSize()}
	for c := range snap.Scent.Layers {
		snap.Scent.Layers[c] = s.scent.Layer(systems.ScentClass(c))
	}

	s.snapshot.Store(snap)
}
