// Package config provides configuration loading and validation for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	World        WorldConfig        `yaml:"world"`
	Population   PopulationConfig   `yaml:"population"`
	Genome       GenomeConfig       `yaml:"genome"`
	Mutation     MutationConfig     `yaml:"mutation"`
	Energy       EnergyConfig       `yaml:"energy"`
	Digestion    DigestionConfig    `yaml:"digestion"`
	Plants       PlantConfig        `yaml:"plants"`
	Thresholds   ThresholdConfig    `yaml:"thresholds"`
	Movement     MovementConfig     `yaml:"movement"`
	Predation    PredationConfig    `yaml:"predation"`
	Scent        ScentConfig        `yaml:"scent"`
	Reproduction ReproductionConfig `yaml:"reproduction"`
	Nests        []NestConfig       `yaml:"nests"`
	NestsFile    string             `yaml:"nests_file,omitempty"`
	Telemetry    TelemetryConfig    `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// WorldConfig holds world extent and clock parameters.
type WorldConfig struct {
	Width        float64 `yaml:"width"`
	Height       float64 `yaml:"height"`
	TickSeconds  float64 `yaml:"tick_seconds"`   // dt per tick; also real-time pacing interval
	GridCellSize float64 `yaml:"grid_cell_size"` // spatial index bucket size (0 = largest vision)
	MaxAgeTicks  int     `yaml:"max_age_ticks"`  // hard age cap
	Workers      int     `yaml:"workers"`        // decision workers (0 = GOMAXPROCS)
}

// PopulationConfig holds seed population counts.
type PopulationConfig struct {
	Plants           int     `yaml:"plants"`
	Herbivores       int     `yaml:"herbivores"`
	Predators        int     `yaml:"predators"`
	SpawnMargin      float64 `yaml:"spawn_margin"`      // keep seeds this far from the world edge
	RespawnThreshold int     `yaml:"respawn_threshold"` // respawn when animals drop below this (0 = off)
	RespawnCount     int     `yaml:"respawn_count"`
	HallOfFameSize   int     `yaml:"hall_of_fame_size"` // successful genomes kept per class for respawns
}

// TraitBounds is the closed interval a genome trait is clamped to.
type TraitBounds struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Clamp returns v limited to [Min, Max].
func (b TraitBounds) Clamp(v float64) float64 {
	return math.Max(b.Min, math.Min(b.Max, v))
}

// Span returns Max - Min.
func (b TraitBounds) Span() float64 {
	return b.Max - b.Min
}

// GenomeConfig holds per-trait bounds and the predator classification threshold.
type GenomeConfig struct {
	Size              TraitBounds `yaml:"size"`
	Speed             TraitBounds `yaml:"speed"`
	Vision            TraitBounds `yaml:"vision"`
	Aggression        TraitBounds `yaml:"aggression"`
	Metabolism        TraitBounds `yaml:"metabolism"`
	PredatorThreshold float64     `yaml:"predator_threshold"` // aggression above this = predator at birth
}

// MutationConfig holds offspring mutation parameters.
type MutationConfig struct {
	Rate  float64 `yaml:"rate"`  // per-trait perturbation probability [0,1]
	Sigma float64 `yaml:"sigma"` // perturbation std-dev as a fraction of the trait span
}

// EnergyConfig holds the energy economy parameters.
type EnergyConfig struct {
	MaxPerSize   float64 `yaml:"max_per_size"`  // max energy = this * genome size
	InitialMin   float64 `yaml:"initial_min"`   // seed energy fraction of max, lower bound
	InitialMax   float64 `yaml:"initial_max"`   // seed energy fraction of max, upper bound
	Upkeep       float64 `yaml:"upkeep"`        // per second, scaled by size * metabolism
	MoveCost     float64 `yaml:"move_cost"`     // per unit distance, scaled by speed^move_exponent
	MoveExponent float64 `yaml:"move_exponent"` // exponent applied to genome speed
}

// DigestionConfig holds per-food-type gain and release windows.
type DigestionConfig struct {
	PlantEfficiency float64 `yaml:"plant_efficiency"` // fraction of grazed biomass converted to energy
	PlantTicks      int     `yaml:"plant_ticks"`      // plant digestion window
	MeatGain        float64 `yaml:"meat_gain"`        // energy released per kill (upper bound)
	MeatEfficiency  float64 `yaml:"meat_efficiency"`  // fraction of prey energy available as meat
	MeatTicks       int     `yaml:"meat_ticks"`       // meat digestion window
}

// PlantConfig holds plant matter parameters.
type PlantConfig struct {
	MaxBiomass   float64 `yaml:"max_biomass"`
	BiteSize     float64 `yaml:"bite_size"`     // biomass per bite, scaled by herbivore size
	RegrowRate   float64 `yaml:"regrow_rate"`   // biomass per tick while partially grazed
	RegrowTicks  int     `yaml:"regrow_ticks"`  // ticks a depleted plant stays bare
	ContactRange float64 `yaml:"contact_range"` // grazing reach
}

// ThresholdConfig holds behavioral energy thresholds.
type ThresholdConfig struct {
	CriticalEnergy float64 `yaml:"critical_energy"` // below this hunger overrides everything
	MatingEnergy   float64 `yaml:"mating_energy"`   // at or above this an adult seeks a mate
	LowEnergy      float64 `yaml:"low_energy"`      // below this movement slows down
	ForageFraction float64 `yaml:"forage_fraction"` // below this share of max an idle animal forages
	MaturityAge    int     `yaml:"maturity_age"`    // ticks
}

// MovementConfig holds locomotion parameters.
type MovementConfig struct {
	BaseSpeed  float64 `yaml:"base_speed"`  // world units per second at genome speed 1
	WanderTurn float64 `yaml:"wander_turn"` // max heading change per tick while wandering (radians)
}

// PredationConfig holds hunting parameters.
type PredationConfig struct {
	SizeRatio    float64 `yaml:"size_ratio"`    // prey.size*ratio must be below predator.size (0 = off)
	ContactRange float64 `yaml:"contact_range"` // strike reach
}

// ScentConfig holds scent grid parameters.
type ScentConfig struct {
	CellSize           float64 `yaml:"cell_size"`
	DecayFactor        float64 `yaml:"decay_factor"`         // per-tick multiplier in (0,1)
	CarrionDecayFactor float64 `yaml:"carrion_decay_factor"` // per-tick multiplier for the carrion layer
	Diffusion          float64 `yaml:"diffusion"`            // 4-neighbour diffusion weight
	Epsilon            float64 `yaml:"epsilon"`              // cells below this snap to zero
	MaxIntensity       float64 `yaml:"max_intensity"`        // per-cell ceiling
	TrailStrength      float64 `yaml:"trail_strength"`       // movement deposit
	ForageStrength     float64 `yaml:"forage_strength"`      // grazing deposit
	CarrionStrength    float64 `yaml:"carrion_strength"`     // death deposit
	FleeThreshold      float64 `yaml:"flee_threshold"`       // predator scent read that makes unseeing prey flee; 0 disables
}

// ReproductionConfig holds mating and nesting parameters.
type ReproductionConfig struct {
	MatingTicks        int     `yaml:"mating_ticks"`         // time in the nest before the child is born
	PairTimeoutTicks   int     `yaml:"pair_timeout_ticks"`   // paired but not mating for this long = reset
	SignalTimeoutTicks int     `yaml:"signal_timeout_ticks"` // unpaired signalling for this long = reset
	CooldownTicks      int     `yaml:"cooldown_ticks"`       // rest after mating or a reset
	OffspringFraction  float64 `yaml:"offspring_fraction"`   // share of each parent's pre-mating energy given to the child
	SpawnOffset        float64 `yaml:"spawn_offset"`         // child placement jitter around the nest centre
	CallRangeFactor    float64 `yaml:"call_range_factor"`    // mating call range = vision * this
}

// NestConfig describes one nest zone.
type NestConfig struct {
	X        float64 `yaml:"x" csv:"x"`
	Y        float64 `yaml:"y" csv:"y"`
	Radius   float64 `yaml:"radius" csv:"radius"`
	Class    string  `yaml:"class" csv:"class"` // "prey" or "predator"
	Capacity int     `yaml:"capacity" csv:"capacity"`
}

// TelemetryConfig holds stats window parameters.
type TelemetryConfig struct {
	StatsWindowTicks int `yaml:"stats_window_ticks"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	MaxVision    float64 // Genome.Vision.Max
	GridCellSize float64 // effective spatial bucket size
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if cfg.NestsFile != "" {
		nests, err := LoadNestLayout(cfg.NestsFile)
		if err != nil {
			return nil, err
		}
		cfg.Nests = nests
	}

	cfg.ComputeDerived()
	return cfg, nil
}

// Default returns the embedded defaults. It panics if they do not parse.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// ComputeDerived recalculates derived values. Call it after mutating a Config by hand.
func (c *Config) ComputeDerived() {
	c.Derived.MaxVision = c.Genome.Vision.Max
	c.Derived.GridCellSize = c.World.GridCellSize
	if c.Derived.GridCellSize <= 0 {
		c.Derived.GridCellSize = c.Derived.MaxVision
	}
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Nests = append([]NestConfig(nil), c.Nests...)
	return &out
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// DefaultsYAML returns the embedded default configuration document.
func DefaultsYAML() []byte {
	return defaultsYAML
}
