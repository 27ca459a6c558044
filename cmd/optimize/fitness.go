package main

import (
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/desert/config"
	"github.com/pthm-cable/desert/sim"
	"github.com/pthm-cable/desert/telemetry"
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []uint64
	baseConfig *config.Config

	// Best run tracking
	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastQuality    float64 // quality from most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []uint64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// Minimum viable population: if either class stays below this for
// extinctionGraceSec of simulated time, it counts as functionally extinct.
const (
	minViablePop       = 3
	extinctionGraceSec = 30.0
	warmupSec          = 5.0
)

// runResult holds the results from a single simulation run.
type runResult struct {
	survivalTicks int                     // ticks before functional extinction (or maxTicks if survived)
	windowStats   []telemetry.WindowStats // collected via OnWindow each window
	hallOfFame    *telemetry.HallOfFame
}

// seedResult holds the result from one seed evaluation.
type seedResult struct {
	fitness    float64
	quality    float64
	hallOfFame *telemetry.HallOfFame
}

// Evaluate computes fitness for a parameter vector (lower = better).
// Fitness is negative survival ticks: longer survival = lower (better) fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	// Run all seeds in parallel
	results := make([]seedResult, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			result := fe.runSimulation(x, s)
			quality := fe.computeQuality(result.windowStats)
			results[idx] = seedResult{
				fitness:    fe.computeFitness(result),
				quality:    quality,
				hallOfFame: result.hallOfFame,
			}
		}(i, seed)
	}
	wg.Wait()

	// Aggregate results
	var totalFitness, totalQuality float64
	bestSeedFitness := math.Inf(1)
	var bestSeedHallOfFame *telemetry.HallOfFame

	for _, r := range results {
		totalFitness += r.fitness
		totalQuality += r.quality
		if r.fitness < bestSeedFitness {
			bestSeedFitness = r.fitness
			bestSeedHallOfFame = r.hallOfFame
		}
	}

	n := float64(len(fe.seeds))
	avgFitness := totalFitness / n

	fe.mu.Lock()
	if avgFitness < fe.bestFitness {
		fe.bestFitness = avgFitness
		fe.bestHallOfFame = bestSeedHallOfFame
	}
	fe.lastQuality = totalQuality / n
	fe.mu.Unlock()

	return avgFitness
}

// runSimulation executes a single headless simulation run.
// Runs until functional extinction or maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed uint64) *runResult {
	cfg := fe.baseConfig.Clone()
	fe.params.ApplyToConfig(cfg, x)

	result := &runResult{}

	// Each seed already runs on its own goroutine; keep the decision pool small.
	s, err := sim.New(cfg, sim.Options{
		Seed:    seed,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Workers: 1,
		OnWindow: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		// An invalid parameter set never survives.
		return result
	}
	defer s.Close()

	dt := cfg.World.TickSeconds
	graceTicks := int(extinctionGraceSec / dt)
	warmupTicks := int(warmupSec / dt)
	var preyBelow, predBelow int

	for {
		rep := s.Step()
		if rep.Tick >= fe.maxTicks {
			break
		}
		if rep.Tick < warmupTicks {
			continue
		}

		// Hard extinction: either class completely gone
		if rep.Herbivores == 0 || rep.Predators == 0 {
			result.survivalTicks = rep.Tick
			result.hallOfFame = s.HallOfFame()
			return result
		}

		// Functional extinction: class below minimum viable population too long
		preyBelow = belowCount(rep.Herbivores, preyBelow)
		predBelow = belowCount(rep.Predators, predBelow)
		if preyBelow >= graceTicks || predBelow >= graceTicks {
			result.survivalTicks = rep.Tick
			result.hallOfFame = s.HallOfFame()
			return result
		}
	}

	// Survived the full run
	result.survivalTicks = fe.maxTicks
	result.hallOfFame = s.HallOfFame()
	return result
}

func belowCount(pop, run int) int {
	if pop < minViablePop {
		return run + 1
	}
	return 0
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
// Survival dominates; quality adds up to 20% bonus to differentiate
// configs with similar survival.
func (fe *FitnessEvaluator) computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	quality := fe.computeQuality(r.windowStats)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightRatio     = 0.30
	qualityWeightStability = 0.25
	qualityWeightEnergy    = 0.25
	qualityWeightHunting   = 0.20

	qualityWarmupWindows = 3 // skip first N windows (warmup)
	qualityMinPop        = 3 // exclude windows where either class < this
)

// computeQuality computes ecosystem quality ∈ [0, 1] from window stats.
func (fe *FitnessEvaluator) computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}

	valid := windows[qualityWarmupWindows:]
	maxPerSize := fe.baseConfig.Energy.MaxPerSize

	var ratioSum, energySum, huntSum float64
	var ratioCount, energyCount, huntCount int

	preyCounts := make([]float64, 0, len(valid))
	predCounts := make([]float64, 0, len(valid))

	for _, w := range valid {
		if w.Herbivores < qualityMinPop || w.Predators < qualityMinPop {
			continue
		}

		preyCounts = append(preyCounts, float64(w.Herbivores))
		predCounts = append(predCounts, float64(w.Predators))

		// 1. Population ratio score (target ~5 herbivores per predator)
		ratio := float64(w.Herbivores) / float64(w.Predators)
		logErr := math.Log(ratio / 5.0)
		ratioSum += math.Exp(-logErr * logErr)
		ratioCount++

		// 3. Energy health score, median energy as a share of nominal capacity
		preyH := math.Exp(-math.Pow((w.HerbEnergyP50/maxPerSize-0.55)/0.25, 2))
		predH := math.Exp(-math.Pow((w.PredEnergyP50/maxPerSize-0.55)/0.25, 2))
		energySum += (preyH + predH) / 2.0
		energyCount++

		// 4. Hunting activity score
		if w.Attacks > 0 {
			krScore := math.Exp(-math.Pow((w.KillRate-0.5)/0.3, 2))
			attacksPerPred := float64(w.Attacks) / float64(w.Predators)
			activityScore := 1.0 - math.Exp(-attacksPerPred/2.0)
			huntSum += 0.6*krScore + 0.4*activityScore
			huntCount++
		}
	}

	if ratioCount == 0 {
		return 0
	}

	ratioScore := ratioSum / float64(ratioCount)

	// 2. Population stability (CV across all valid windows)
	stabilityScore := 0.0
	if len(preyCounts) >= 2 {
		cvPrey := cv(preyCounts)
		cvPred := cv(predCounts)
		stabilityScore = math.Exp(-(cvPrey*cvPrey + cvPred*cvPred))
	}

	energyScore := 0.0
	if energyCount > 0 {
		energyScore = energySum / float64(energyCount)
	}

	huntScore := 0.0
	if huntCount > 0 {
		huntScore = huntSum / float64(huntCount)
	}

	quality := qualityWeightRatio*ratioScore +
		qualityWeightStability*stabilityScore +
		qualityWeightEnergy*energyScore +
		qualityWeightHunting*huntScore

	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean, std := stat.PopMeanStdDev(values, nil)
	if mean == 0 {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
