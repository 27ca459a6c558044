// Package main provides CMA-ES optimization for finding simulation parameters
// that keep herbivores and predators coexisting.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/desert/config"
)

// formatDuration formats a duration as HhMMmSSs, or MmSSs when under an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

type options struct {
	configPath string
	maxTicks   int
	seeds      int
	maxEvals   int
	population int
	outputDir  string
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.IntVar(&opts.maxTicks, "max-ticks", 60000, "Maximum simulation duration in ticks (cap)")
	flag.IntVar(&opts.seeds, "seeds", 3, "Number of seeds per evaluation")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Maximum number of evaluations")
	flag.IntVar(&opts.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.StringVar(&opts.outputDir, "output", "", "Output directory for results")
	flag.Parse()

	if opts.outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := run(opts); err != nil {
		log.Fatal("optimization failed", "err", err)
	}
}

// evalLog appends one CSV row per evaluation: eval, fitness, then each parameter.
type evalLog struct {
	file *os.File
	w    *csv.Writer
}

func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating eval log: %w", err)
	}
	l := &evalLog{file: f, w: csv.NewWriter(f)}

	header := []string{"eval", "fitness"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.write(header); err != nil {
		f.Close()
		return nil, err
	}
	return l, nil
}

func (l *evalLog) append(eval int, fitness float64, values []float64) error {
	row := []string{strconv.Itoa(eval), strconv.FormatFloat(fitness, 'f', 6, 64)}
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	return l.write(row)
}

func (l *evalLog) write(row []string) error {
	if err := l.w.Write(row); err != nil {
		return fmt.Errorf("writing eval log: %w", err)
	}
	l.w.Flush()
	return l.w.Error()
}

func (l *evalLog) Close() error {
	l.w.Flush()
	return l.file.Close()
}

func run(opts options) error {
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	baseCfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if err := baseCfg.Validate(); err != nil {
		return fmt.Errorf("base config: %w", err)
	}

	params := NewParamVector()
	evalSeeds := make([]uint64, opts.seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, opts.maxTicks, evalSeeds, baseCfg)

	evals, err := newEvalLog(filepath.Join(opts.outputDir, "optimize_log.csv"), params)
	if err != nil {
		return err
	}
	defer evals.Close()

	dim := params.Dim()
	popSize := opts.population
	if popSize == 0 {
		popSize = 4 + int(3.0*math.Log(float64(dim)))
	}

	// Track the best evaluation seen, not just the optimizer's final point.
	evalCount := 0
	bestFitness := math.Inf(1)
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			// Search runs in [0,1]; the simulation sees clamped raw values.
			clamped := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(clamped)
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = append(bestParams[:0], clamped...)
			}
			if err := evals.append(evalCount, fitness, clamped); err != nil {
				log.Error("eval log", "eval", evalCount, "err", err)
			}

			elapsed := time.Since(startTime)
			remaining := time.Duration(opts.maxEvals-evalCount) * (elapsed / time.Duration(evalCount))

			// Fitness = -(survivalTicks × (1 + 0.2×quality)), so back out the survival time
			quality := evaluator.LastQuality()
			survivalSec := -fitness / (1.0 + 0.2*quality) * baseCfg.World.TickSeconds
			log.Info("eval",
				"n", fmt.Sprintf("%d/%d", evalCount, opts.maxEvals),
				"survived", fmt.Sprintf("%.0fs", survivalSec),
				"quality", fmt.Sprintf("%.2f", quality),
				"best", fmt.Sprintf("%.0f", bestFitness),
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return fitness
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: opts.maxEvals,
		Concurrent:      0, // seeds already run in parallel inside Evaluate
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}

	log.Info("starting CMA-ES",
		"params", dim,
		"population", popSize,
		"max_evals", opts.maxEvals,
		"seeds", opts.seeds,
		"max_ticks", opts.maxTicks,
	)

	result, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()), settings, method)
	if err != nil {
		log.Warn("optimization ended", "err", err)
	}
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		return fmt.Errorf("no evaluation completed")
	}

	log.Info("optimization complete",
		"evals", evalCount,
		"elapsed", formatDuration(time.Since(startTime)),
		"best_fitness", fmt.Sprintf("%.0f", bestFitness),
	)
	for i, spec := range params.Specs {
		fmt.Printf("  %-20s %12.6f  (%s)\n", spec.Name, bestParams[i], spec.Path)
	}

	return writeResults(opts.outputDir, baseCfg, params, bestParams, evaluator)
}

// writeResults saves best_config.yaml and, when one was kept, hall_of_fame.json.
func writeResults(dir string, baseCfg *config.Config, params *ParamVector, best []float64, evaluator *FitnessEvaluator) error {
	bestCfg := baseCfg.Clone()
	params.ApplyToConfig(bestCfg, best)

	configPath := filepath.Join(dir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configPath); err != nil {
		return err
	}
	log.Info("best config saved", "path", configPath)

	hof := evaluator.BestHallOfFame()
	if hof == nil {
		return nil
	}
	data, err := json.MarshalIndent(hof, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	hofPath := filepath.Join(dir, "hall_of_fame.json")
	if err := os.WriteFile(hofPath, data, 0644); err != nil {
		return fmt.Errorf("writing hall of fame: %w", err)
	}
	log.Info("hall of fame saved", "path", hofPath)
	return nil
}
