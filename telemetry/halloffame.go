package telemetry

import (
	"encoding/json"
	"math/rand/v2"
	"sort"

	"github.com/pthm-cable/desert/components"
)

// Hall of fame entry criteria and fitness weights.
const (
	hallMinChildren     = 1
	hallMinSurvivalTick = 2000
	hallChildrenWeight  = 10.0
	hallSurvivalWeight  = 0.001
	hallKillsWeight     = 3.0
	hallForageWeight    = 0.05
)

// HallEntry is a successful animal's genome and fitness.
type HallEntry struct {
	EntityID   uint32            `json:"entity_id"`
	Fitness    float64           `json:"fitness"`
	Genome     components.Genome `json:"genome"`
	Generation int               `json:"generation"`
	Children   int               `json:"children"`
	Kills      int               `json:"kills"`
	Ticks      int               `json:"ticks"`
	Foraged    float64           `json:"foraged"`
}

// HallOfFame stores proven genomes for reseeding when populations crash.
// There is one hall per animal kind.
type HallOfFame struct {
	halls   map[components.Kind][]HallEntry
	maxSize int
}

// NewHallOfFame creates a new hall of fame with the given capacity per kind.
func NewHallOfFame(maxSize int) *HallOfFame {
	return &HallOfFame{
		halls:   make(map[components.Kind][]HallEntry),
		maxSize: maxSize,
	}
}

// Clone returns an independent copy. A nil hall clones to nil.
func (hof *HallOfFame) Clone() *HallOfFame {
	if hof == nil {
		return nil
	}
	c := NewHallOfFame(hof.maxSize)
	for kind, hall := range hof.halls {
		c.halls[kind] = append([]HallEntry(nil), hall...)
	}
	return c
}

// Consider evaluates a dead animal for entry. Returns true if it was added.
func (hof *HallOfFame) Consider(entityID uint32, stats *LifetimeStats) bool {
	if hof == nil || hof.maxSize <= 0 || stats == nil {
		return false
	}
	ticks := stats.Ticks(stats.DeathTick)
	if stats.Children < hallMinChildren && ticks < hallMinSurvivalTick {
		return false
	}

	fitness := float64(stats.Children)*hallChildrenWeight + float64(ticks)*hallSurvivalWeight
	if stats.Kind == components.KindPredator {
		fitness += float64(stats.Kills) * hallKillsWeight
	} else {
		fitness += stats.TotalForaged * hallForageWeight
	}

	entry := HallEntry{
		EntityID:   entityID,
		Fitness:    fitness,
		Genome:     stats.Genome,
		Generation: stats.Generation,
		Children:   stats.Children,
		Kills:      stats.Kills,
		Ticks:      ticks,
		Foraged:    stats.TotalForaged,
	}
	hall := hof.halls[stats.Kind]
	before := len(hall)
	hall = hof.insertEntry(hall, entry)
	hof.halls[stats.Kind] = hall
	return len(hall) > before || containsEntity(hall, entityID)
}

func containsEntity(hall []HallEntry, id uint32) bool {
	for _, e := range hall {
		if e.EntityID == id {
			return true
		}
	}
	return false
}

// insertEntry adds an entry keeping the hall sorted by descending fitness.
// Equal fitness keeps the earlier entry first.
func (hof *HallOfFame) insertEntry(hall []HallEntry, entry HallEntry) []HallEntry {
	idx := sort.Search(len(hall), func(i int) bool {
		return hall[i].Fitness < entry.Fitness
	})
	if len(hall) >= hof.maxSize && idx >= hof.maxSize {
		return hall
	}

	hall = append(hall, HallEntry{})
	copy(hall[idx+1:], hall[idx:])
	hall[idx] = entry

	if len(hall) > hof.maxSize {
		hall = hall[:hof.maxSize]
	}
	return hall
}

// Sample picks a genome by tournament selection (k=3).
// Returns false if the hall for kind is empty.
func (hof *HallOfFame) Sample(kind components.Kind, rng *rand.Rand) (components.Genome, bool) {
	if hof == nil {
		return components.Genome{}, false
	}
	hall := hof.halls[kind]
	if len(hall) == 0 {
		return components.Genome{}, false
	}

	const tournamentSize = 3
	best := -1
	for i := 0; i < tournamentSize; i++ {
		idx := rng.IntN(len(hall))
		if best < 0 || hall[idx].Fitness > hall[best].Fitness {
			best = idx
		}
	}
	return hall[best].Genome, true
}

// Size returns the number of entries for a kind.
func (hof *HallOfFame) Size(kind components.Kind) int {
	if hof == nil {
		return 0
	}
	return len(hof.halls[kind])
}

// TopFitness returns the highest fitness for a kind, or 0 if empty.
func (hof *HallOfFame) TopFitness(kind components.Kind) float64 {
	if hof == nil || len(hof.halls[kind]) == 0 {
		return 0
	}
	return hof.halls[kind][0].Fitness
}

// MarshalJSON serializes the halls keyed by kind name.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	export := make(map[string][]HallEntry, len(hof.halls))
	for kind, hall := range hof.halls {
		export[kind.String()] = hall
	}
	return json.MarshalIndent(export, "", "  ")
}
