package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("embedded defaults invalid: %v", err)
	}
	if cfg.Derived.MaxVision != cfg.Genome.Vision.Max {
		t.Errorf("Derived.MaxVision = %v, want %v", cfg.Derived.MaxVision, cfg.Genome.Vision.Max)
	}
	if cfg.Derived.GridCellSize != cfg.Genome.Vision.Max {
		t.Errorf("grid cell size should default to max vision, got %v", cfg.Derived.GridCellSize)
	}
	if len(cfg.Nests) == 0 {
		t.Error("defaults should define nests")
	}
}

func TestLoadMergesUserFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "user.yaml")
	doc := "world:\n  width: 400\nmutation:\n  rate: 1.0\n"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.World.Width != 400 {
		t.Errorf("width = %v, want 400", cfg.World.Width)
	}
	if cfg.Mutation.Rate != 1.0 {
		t.Errorf("mutation rate = %v, want 1.0", cfg.Mutation.Rate)
	}
	def := Default()
	if cfg.World.Height != def.World.Height {
		t.Errorf("height should keep default %v, got %v", def.World.Height, cfg.World.Height)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.World.Width = 0
	cfg.Mutation.Rate = 1.5
	cfg.Scent.DecayFactor = 1.2
	cfg.Nests[0].Capacity = 0
	cfg.Nests[1].Class = "lizard"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("error should wrap ErrInvalid: %v", err)
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if len(verr.Problems) < 5 {
		t.Errorf("expected at least 5 problems, got %d: %v", len(verr.Problems), err)
	}
	for _, want := range []string{"world.width", "mutation.rate", "scent.decay_factor", "nests[0].capacity", "nests[1].class"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error message missing %q: %v", want, err)
		}
	}
}

func TestValidateTable(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"rate zero", func(c *Config) { c.Mutation.Rate = 0 }, true},
		{"rate one", func(c *Config) { c.Mutation.Rate = 1 }, true},
		{"negative rate", func(c *Config) { c.Mutation.Rate = -0.1 }, false},
		{"inverted bounds", func(c *Config) { c.Genome.Size = TraitBounds{Min: 2, Max: 1} }, false},
		{"unstable diffusion", func(c *Config) { c.Scent.Diffusion = 0.3 }, false},
		{"nest outside world", func(c *Config) { c.Nests[0].X = -5 }, false},
		{"zero mating ticks", func(c *Config) { c.Reproduction.MatingTicks = 0 }, false},
		{"offspring fraction too big", func(c *Config) { c.Reproduction.OffspringFraction = 0.75 }, false},
		{"mating below critical", func(c *Config) { c.Thresholds.MatingEnergy = 1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.ok && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.ok && err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	cfg := Default()
	c2 := cfg.Clone()
	c2.Nests[0].Capacity = 99
	c2.World.Width = 1
	if cfg.Nests[0].Capacity == 99 {
		t.Error("Clone shares the nest slice")
	}
	if cfg.World.Width == 1 {
		t.Error("Clone shares world config")
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "effective.yaml")
	cfg := Default()
	cfg.Population.Herbivores = 3
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if back.Population.Herbivores != 3 {
		t.Errorf("herbivores = %d, want 3", back.Population.Herbivores)
	}
	if len(back.Nests) != len(cfg.Nests) {
		t.Errorf("nests = %d, want %d", len(back.Nests), len(cfg.Nests))
	}
}

func TestNestLayoutCSV(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "nests.csv")
	nests := []NestConfig{
		{X: 100, Y: 100, Radius: 40, Class: NestClassPrey, Capacity: 2},
		{X: 300, Y: 200, Radius: 50, Class: NestClassPredator, Capacity: 1},
	}
	if err := WriteNestLayout(csvPath, nests); err != nil {
		t.Fatalf("WriteNestLayout: %v", err)
	}

	yamlPath := filepath.Join(dir, "cfg.yaml")
	doc := "nests_file: " + csvPath + "\n"
	if err := os.WriteFile(yamlPath, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(yamlPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Nests) != 2 {
		t.Fatalf("nests = %d, want 2", len(cfg.Nests))
	}
	if cfg.Nests[1].Class != NestClassPredator || cfg.Nests[1].Capacity != 1 {
		t.Errorf("nest[1] = %+v", cfg.Nests[1])
	}
}

func TestTraitBoundsClamp(t *testing.T) {
	b := TraitBounds{Min: 0.5, Max: 1.5}
	tests := []struct{ in, want float64 }{
		{0, 0.5}, {0.5, 0.5}, {1, 1}, {1.5, 1.5}, {9, 1.5},
	}
	for _, tt := range tests {
		if got := b.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
