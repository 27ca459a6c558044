// Package sim owns the world and advances it one tick at a time: scent
// decay, index rebuild, parallel decisions, a single ordered commit, then
// reproduction, deaths and a published read-only snapshot.
package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/config"
	"github.com/pthm-cable/desert/systems"
	"github.com/pthm-cable/desert/telemetry"
)

// ErrInvariantViolation marks a broken world invariant found during commit.
// The offending entity is killed or evicted and the tick completes.
var ErrInvariantViolation = errors.New("invariant violation")

// Options configures a Simulation beyond the YAML config.
type Options struct {
	Seed   uint64
	Logger *slog.Logger   // nil uses slog.Default()
	Sink   telemetry.Sink // optional telemetry output
	// Workers overrides world.workers when > 0.
	Workers int
	// Empty skips seeding the initial population.
	Empty bool
	// LogStats emits a slog line per telemetry window.
	LogStats bool
	// OnWindow is called with every flushed stats window.
	OnWindow func(telemetry.WindowStats)
}

// AnimalSpec describes an animal to place in the world.
type AnimalSpec struct {
	Genome     components.Genome
	Position   components.Position
	Heading    float64
	Energy     float64 // 0 uses the configured initial range
	Age        int
	Generation int
}

// Simulation holds the complete world state. It is owned by one clock;
// Snapshot, Inspect and the pause controls are safe from other goroutines.
type Simulation struct {
	cfg    *config.Config
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex // serialises Step and Restart
	seed   uint64
	rng    *rand.Rand
	layout uint64

	world *ecs.World

	// Animal mappers
	animalMapper *ecs.Map7[
		components.Position,
		components.Velocity,
		components.Organism,
		components.Genome,
		components.Energy,
		components.Digestion,
		components.Mating,
	]
	animalFilter *ecs.Filter7[
		components.Position,
		components.Velocity,
		components.Organism,
		components.Genome,
		components.Energy,
		components.Digestion,
		components.Mating,
	]

	// Plant mappers
	plantMapper *ecs.Map3[components.Position, components.Organism, components.PlantMatter]
	plantFilter *ecs.Filter3[components.Position, components.Organism, components.PlantMatter]

	// Individual component mappers for lookups
	posMap    *ecs.Map1[components.Position]
	velMap    *ecs.Map1[components.Velocity]
	orgMap    *ecs.Map1[components.Organism]
	genomeMap *ecs.Map1[components.Genome]
	energyMap *ecs.Map1[components.Energy]
	digestMap *ecs.Map1[components.Digestion]
	matingMap *ecs.Map1[components.Mating]
	plantMap  *ecs.Map1[components.PlantMatter]

	// byID resolves stable ids to entity handles.
	byID map[uint32]ecs.Entity

	index    *systems.SpatialIndex
	scent    *systems.ScentField
	nests    *systems.NestZones
	breeding *systems.Breeding

	parallel *parallelState
	view     systems.WorldView

	// Per-tick bookkeeping
	tick       int
	nextID     uint32
	numHerb    int
	numPred    int
	numPlants  int
	deaths     map[uint32]telemetry.DeathCause
	births     []pendingBirth
	report     TickReport
	violations []error
	rows       []agentRow
	dead       []ecs.Entity
	mates      []systems.MateCandidate

	// Telemetry
	collector  *telemetry.Collector
	lifetime   *telemetry.LifetimeTracker
	hallOfFame *telemetry.HallOfFame
	bookmarks  *telemetry.BookmarkDetector
	perf       *telemetry.PerfCollector

	snapshot atomic.Pointer[Snapshot]
	paused   atomic.Bool
}

// New builds a world from cfg. It refuses an invalid configuration, so no
// tick ever runs on one.
func New(cfg *config.Config, opts Options) (*Simulation, error) {
	if cfg == nil {
		return nil, fmt.Errorf("sim: nil config: %w", config.ErrInvalid)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.Clone()
	cfg.ComputeDerived()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := cfg.World.Workers
	if opts.Workers > 0 {
		workers = opts.Workers
	}

	s := &Simulation{
		cfg:      cfg,
		opts:     opts,
		logger:   logger,
		parallel: newParallelState(workers),
		breeding: systems.NewBreeding(cfg),
	}
	s.reset(opts.Seed)
	return s, nil
}

// reset builds a fresh world for seed. The nest layout version advances so
// references taken from the previous world no longer resolve.
func (s *Simulation) reset(seed uint64) {
	cfg := s.cfg
	world := ecs.NewWorld()

	s.seed = seed
	s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	s.layout++
	s.world = world
	s.animalMapper = ecs.NewMap7[
		components.Position,
		components.Velocity,
		components.Organism,
		components.Genome,
		components.Energy,
		components.Digestion,
		components.Mating,
	](world)
	s.animalFilter = ecs.NewFilter7[
		components.Position,
		components.Velocity,
		components.Organism,
		components.Genome,
		components.Energy,
		components.Digestion,
		components.Mating,
	](world)
	s.plantMapper = ecs.NewMap3[components.Position, components.Organism, components.PlantMatter](world)
	s.plantFilter = ecs.NewFilter3[components.Position, components.Organism, components.PlantMatter](world)
	s.posMap = ecs.NewMap1[components.Position](world)
	s.velMap = ecs.NewMap1[components.Velocity](world)
	s.orgMap = ecs.NewMap1[components.Organism](world)
	s.genomeMap = ecs.NewMap1[components.Genome](world)
	s.energyMap = ecs.NewMap1[components.Energy](world)
	s.digestMap = ecs.NewMap1[components.Digestion](world)
	s.matingMap = ecs.NewMap1[components.Mating](world)
	s.plantMap = ecs.NewMap1[components.PlantMatter](world)

	s.byID = make(map[uint32]ecs.Entity)
	s.index = systems.NewSpatialIndex(cfg.World.Width, cfg.World.Height, cfg.Derived.GridCellSize)
	s.scent = systems.NewScentField(cfg.World.Width, cfg.World.Height, cfg.Scent)
	s.nests = systems.NewNestZones(cfg.Nests, s.layout)
	s.view = systems.WorldView{Cfg: cfg, Index: s.index, Scent: s.scent, Nests: s.nests}

	s.tick = 0
	s.nextID = 1
	s.numHerb, s.numPred, s.numPlants = 0, 0, 0
	s.deaths = make(map[uint32]telemetry.DeathCause)
	s.births = s.births[:0]
	s.report = TickReport{}
	s.violations = nil

	s.collector = telemetry.NewCollector(cfg.Telemetry.StatsWindowTicks, cfg.World.TickSeconds)
	s.lifetime = telemetry.NewLifetimeTracker()
	s.hallOfFame = telemetry.NewHallOfFame(cfg.Population.HallOfFameSize)
	s.bookmarks = telemetry.NewBookmarkDetector(10)
	s.perf = telemetry.NewPerfCollector(cfg.Telemetry.StatsWindowTicks)

	if !s.opts.Empty {
		s.spawnInitialPopulation()
	}
	s.publish()
}

// spawnInitialPopulation creates the seed plants and animals.
func (s *Simulation) spawnInitialPopulation() {
	cfg := s.cfg
	for i := 0; i < cfg.Population.Plants; i++ {
		s.spawnPlant(s.randomPosition(), cfg.Plants.MaxBiomass)
	}
	for i := 0; i < cfg.Population.Herbivores; i++ {
		s.spawnRandomAnimal(components.ClassPrey)
	}
	for i := 0; i < cfg.Population.Predators; i++ {
		s.spawnRandomAnimal(components.ClassPredator)
	}
	s.logger.Info("population_seeded",
		"seed", s.seed,
		"plants", cfg.Population.Plants,
		"herbivores", s.numHerb,
		"predators", s.numPred,
		"nests", s.nests.Len(),
	)
}

func (s *Simulation) randomPosition() components.Position {
	cfg := s.cfg
	m := cfg.Population.SpawnMargin
	return components.Position{
		X: m + s.rng.Float64()*(cfg.World.Width-2*m),
		Y: m + s.rng.Float64()*(cfg.World.Height-2*m),
	}
}

// spawnRandomAnimal places an animal of class at a random position. A hall
// of fame genome is preferred when one exists.
func (s *Simulation) spawnRandomAnimal(class components.Class) uint32 {
	cfg := s.cfg
	kind := components.KindForClass(class)
	g, ok := s.hallOfFame.Sample(kind, s.rng)
	if ok {
		g = systems.Mutate(g, g, cfg.Genome, cfg.Mutation.Rate, cfg.Mutation.Sigma, s.rng)
		if systems.ClassOf(g, cfg.Genome.PredatorThreshold) != class {
			ok = false
		}
	}
	if !ok {
		g = systems.RandomGenome(class, cfg.Genome, s.rng)
	}
	return s.spawnAnimal(AnimalSpec{
		Genome:   g,
		Position: s.randomPosition(),
		Heading:  s.rng.Float64() * 2 * math.Pi,
	})
}

// spawnAnimal creates a new animal entity and returns its id.
func (s *Simulation) spawnAnimal(spec AnimalSpec) uint32 {
	cfg := s.cfg

	id := s.nextID
	s.nextID++

	g := systems.ClampGenome(spec.Genome, cfg.Genome)
	class := systems.ClassOf(g, cfg.Genome.PredatorThreshold)
	kind := components.KindForClass(class)

	maxE := systems.MaxEnergy(g, cfg.Energy)
	value := spec.Energy
	if value <= 0 {
		frac := cfg.Energy.InitialMin + s.rng.Float64()*(cfg.Energy.InitialMax-cfg.Energy.InitialMin)
		value = frac * maxE
	}

	p := r2.Vec{X: spec.Position.X, Y: spec.Position.Y}
	pos := components.PositionOf(systems.ClampToWorld(p, cfg.World.Width, cfg.World.Height))
	vel := components.Velocity{}
	org := components.Organism{
		ID:         id,
		Kind:       kind,
		Class:      class,
		State:      components.StateIdle,
		Age:        spec.Age,
		Generation: spec.Generation,
		Heading:    spec.Heading,
		Nest:       components.NoNest,
	}
	energy := components.Energy{Value: math.Min(value, maxE), Max: maxE}
	digestion := components.Digestion{}
	mating := components.NewMating()

	entity := s.animalMapper.NewEntity(&pos, &vel, &org, &g, &energy, &digestion, &mating)
	s.byID[id] = entity

	s.lifetime.Register(id, s.tick, kind, spec.Generation, g)
	s.lifetime.UpdateEnergy(id, energy.Value)

	if kind == components.KindPredator {
		s.numPred++
	} else {
		s.numHerb++
	}
	return id
}

// spawnPlant creates a plant entity and returns its id.
func (s *Simulation) spawnPlant(at components.Position, biomass float64) uint32 {
	cfg := s.cfg

	id := s.nextID
	s.nextID++

	p := systems.ClampToWorld(at.Vec(), cfg.World.Width, cfg.World.Height)
	pos := components.PositionOf(p)
	org := components.Organism{
		ID:    id,
		Kind:  components.KindPlant,
		Class: components.ClassNone,
		State: components.StateIdle,
		Nest:  components.NoNest,
	}
	plant := components.PlantMatter{
		Biomass: math.Max(0, math.Min(biomass, cfg.Plants.MaxBiomass)),
		Max:     cfg.Plants.MaxBiomass,
	}
	if plant.Biomass == 0 {
		plant.RegrowTimer = cfg.Plants.RegrowTicks
	}

	entity := s.plantMapper.NewEntity(&pos, &org, &plant)
	s.byID[id] = entity
	s.numPlants++
	return id
}

// AddAnimal places an animal built from spec and republishes the snapshot.
// Class follows the genome.
func (s *Simulation) AddAnimal(spec AnimalSpec) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.spawnAnimal(spec)
	s.publish()
	return id
}

// AddPlant places a plant and republishes the snapshot.
func (s *Simulation) AddPlant(at components.Position, biomass float64) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.spawnPlant(at, biomass)
	s.publish()
	return id
}

// Config returns the effective configuration. It must not be modified.
func (s *Simulation) Config() *config.Config {
	return s.cfg
}

// Seed returns the seed of the current world.
func (s *Simulation) Seed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seed
}

// Lifetime returns a copy of the lifetime stats of a living animal.
func (s *Simulation) Lifetime(id uint32) (telemetry.LifetimeStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.lifetime.Get(id); st != nil {
		return *st, true
	}
	return telemetry.LifetimeStats{}, false
}

// HallOfFame returns a copy of the genome hall of fame of the current world.
func (s *Simulation) HallOfFame() *telemetry.HallOfFame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hallOfFame.Clone()
}

// Close stops the decision workers. The simulation must not be stepped after.
func (s *Simulation) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parallel.stopWorkers()
}

// entity resolves a stable id to a live entity handle.
func (s *Simulation) entity(id uint32) (ecs.Entity, bool) {
	e, ok := s.byID[id]
	if !ok || !s.world.Alive(e) {
		return ecs.Entity{}, false
	}
	return e, true
}

// isAnimal reports whether e carries animal components.
func (s *Simulation) isAnimal(e ecs.Entity) bool {
	return s.matingMap.HasAll(e)
}
