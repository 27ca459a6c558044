package telemetry

import "github.com/pthm-cable/desert/components"

// LifetimeStats tracks per-entity statistics over its lifetime.
type LifetimeStats struct {
	BirthTick  int
	DeathTick  int
	Kind       components.Kind
	Generation int
	Genome     components.Genome

	// Hunting (predators)
	Attacks int
	Kills   int

	// Reproduction
	Children int

	// Energy
	PeakEnergy   float64
	TotalForaged float64 // biomass grazed (herbivores) or meat gained (predators)
}

// Ticks returns how long the entity lived, up to now if it is still alive.
func (s *LifetimeStats) Ticks(now int) int {
	if s.DeathTick > 0 {
		return s.DeathTick - s.BirthTick
	}
	return now - s.BirthTick
}

// LifetimeTracker manages per-entity lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new animal.
func (lt *LifetimeTracker) Register(entityID uint32, birthTick int, kind components.Kind, generation int, g components.Genome) {
	lt.stats[entityID] = &LifetimeStats{
		BirthTick:  birthTick,
		Kind:       kind,
		Generation: generation,
		Genome:     g,
	}
}

// Get returns the lifetime stats for an entity, or nil if not found.
func (lt *LifetimeTracker) Get(entityID uint32) *LifetimeStats {
	return lt.stats[entityID]
}

// Remove removes an entity's stats and returns them, stamped with the death tick.
func (lt *LifetimeTracker) Remove(entityID uint32, tick int) *LifetimeStats {
	stats := lt.stats[entityID]
	delete(lt.stats, entityID)
	if stats != nil {
		stats.DeathTick = tick
	}
	return stats
}

// RecordAttack increments the strike count.
func (lt *LifetimeTracker) RecordAttack(entityID uint32) {
	if s := lt.stats[entityID]; s != nil {
		s.Attacks++
	}
}

// RecordKill increments kill count.
func (lt *LifetimeTracker) RecordKill(entityID uint32) {
	if s := lt.stats[entityID]; s != nil {
		s.Kills++
	}
}

// RecordChild increments children count.
func (lt *LifetimeTracker) RecordChild(parentID uint32) {
	if s := lt.stats[parentID]; s != nil {
		s.Children++
	}
}

// RecordForage adds food gained to the cumulative total.
func (lt *LifetimeTracker) RecordForage(entityID uint32, amount float64) {
	if s := lt.stats[entityID]; s != nil {
		s.TotalForaged += amount
	}
}

// UpdateEnergy tracks peak energy.
func (lt *LifetimeTracker) UpdateEnergy(entityID uint32, energy float64) {
	if s := lt.stats[entityID]; s != nil && energy > s.PeakEnergy {
		s.PeakEnergy = energy
	}
}

// Count returns the number of tracked entities.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}
