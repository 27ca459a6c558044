package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/desert/components"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int     `csv:"-"`
	WindowEndTick   int     `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population counts at window end
	Plants         int `csv:"plants"`
	DepletedPlants int `csv:"depleted_plants"`
	Herbivores     int `csv:"herbivores"`
	Predators      int `csv:"predators"`

	// Events during window
	HerbivoreBirths  int `csv:"herbivore_births"`
	PredatorBirths   int `csv:"predator_births"`
	StarvationDeaths int `csv:"deaths_starved"`
	PredationDeaths  int `csv:"deaths_predation"`
	AgeDeaths        int `csv:"deaths_age"`
	InvariantDeaths  int `csv:"deaths_invariant"`

	// Hunting
	Attacks        int     `csv:"attacks"`
	Kills          int     `csv:"kills"`
	AttacksBlocked int     `csv:"attacks_blocked_nest"`
	AttacksFailed  int     `csv:"attacks_failed"`
	KillRate       float64 `csv:"kill_rate"`

	// Foraging
	Grazes        int     `csv:"grazes"`
	BiomassGrazed float64 `csv:"biomass_grazed"`

	// Reproduction
	Pairings         int `csv:"pairings"`
	Matings          int `csv:"matings"`
	SignalTimeouts   int `csv:"signal_timeouts"`
	PairTimeouts     int `csv:"pair_timeouts"`
	AdmissionsDenied int `csv:"admissions_denied"`

	InvariantViolations int `csv:"invariant_violations"`

	// Energy distribution (sampled at window end)
	HerbEnergyMean float64 `csv:"herb_energy_mean"`
	HerbEnergyP10  float64 `csv:"herb_energy_p10"`
	HerbEnergyP50  float64 `csv:"herb_energy_p50"`
	HerbEnergyP90  float64 `csv:"herb_energy_p90"`

	PredEnergyMean float64 `csv:"pred_energy_mean"`
	PredEnergyP10  float64 `csv:"pred_energy_p10"`
	PredEnergyP50  float64 `csv:"pred_energy_p50"`
	PredEnergyP90  float64 `csv:"pred_energy_p90"`

	// Genome distribution over living animals
	SizeMean       float64 `csv:"size_mean"`
	SpeedMean      float64 `csv:"speed_mean"`
	VisionMean     float64 `csv:"vision_mean"`
	AggressionMean float64 `csv:"aggression_mean"`
	AggressionStd  float64 `csv:"aggression_std"`
	MetabolismMean float64 `csv:"metabolism_mean"`
	MaxGeneration  int     `csv:"max_generation"`

	// Scent field totals at window end
	ScentPrey     float64 `csv:"scent_prey"`
	ScentPredator float64 `csv:"scent_predator"`
	ScentForage   float64 `csv:"scent_forage"`
	ScentCarrion  float64 `csv:"scent_carrion"`

	// Energy ledger sums over the window
	EnergyRemoved  float64 `csv:"energy_removed"`
	EnergyIngested float64 `csv:"energy_ingested"`
	EnergyLoss     float64 `csv:"energy_loss"`
	EnergyReleased float64 `csv:"energy_released"`
	EnergyOverflow float64 `csv:"energy_overflow"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ComputeEnergyStats calculates mean and percentiles from energy values.
func ComputeEnergyStats(values []float64) (mean, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = Percentile(sorted, 0.10)
	p50 = Percentile(sorted, 0.50)
	p90 = Percentile(sorted, 0.90)

	return mean, p10, p50, p90
}

// TraitStats summarises the genomes of living animals.
type TraitStats struct {
	Size, Speed, Vision, Aggression, Metabolism float64
	AggressionStd                               float64
}

// ComputeTraitStats returns per-trait means and the aggression spread.
func ComputeTraitStats(genomes []components.Genome) TraitStats {
	if len(genomes) == 0 {
		return TraitStats{}
	}
	var cols [5][]float64
	for i := range cols {
		cols[i] = make([]float64, len(genomes))
	}
	for j, g := range genomes {
		for i, v := range g.Traits() {
			cols[i][j] = v
		}
	}
	aggMean, aggStd := stat.PopMeanStdDev(cols[3], nil)
	return TraitStats{
		Size:          stat.Mean(cols[0], nil),
		Speed:         stat.Mean(cols[1], nil),
		Vision:        stat.Mean(cols[2], nil),
		Aggression:    aggMean,
		Metabolism:    stat.Mean(cols[4], nil),
		AggressionStd: aggStd,
	}
}

// Deaths returns the total deaths in the window.
func (s WindowStats) Deaths() int {
	return s.StarvationDeaths + s.PredationDeaths + s.AgeDeaths + s.InvariantDeaths
}

// Births returns the total births in the window.
func (s WindowStats) Births() int {
	return s.HerbivoreBirths + s.PredatorBirths
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", s.WindowStartTick),
		slog.Int("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("plants", s.Plants),
		slog.Int("depleted_plants", s.DepletedPlants),
		slog.Int("herbivores", s.Herbivores),
		slog.Int("predators", s.Predators),
		slog.Int("herbivore_births", s.HerbivoreBirths),
		slog.Int("predator_births", s.PredatorBirths),
		slog.Int("deaths_starved", s.StarvationDeaths),
		slog.Int("deaths_predation", s.PredationDeaths),
		slog.Int("deaths_age", s.AgeDeaths),
		slog.Int("deaths_invariant", s.InvariantDeaths),
		slog.Int("attacks", s.Attacks),
		slog.Int("kills", s.Kills),
		slog.Int("attacks_blocked_nest", s.AttacksBlocked),
		slog.Int("attacks_failed", s.AttacksFailed),
		slog.Float64("kill_rate", s.KillRate),
		slog.Int("grazes", s.Grazes),
		slog.Float64("biomass_grazed", s.BiomassGrazed),
		slog.Int("pairings", s.Pairings),
		slog.Int("matings", s.Matings),
		slog.Int("signal_timeouts", s.SignalTimeouts),
		slog.Int("pair_timeouts", s.PairTimeouts),
		slog.Int("admissions_denied", s.AdmissionsDenied),
		slog.Int("invariant_violations", s.InvariantViolations),
		slog.Float64("herb_energy_mean", s.HerbEnergyMean),
		slog.Float64("herb_energy_p50", s.HerbEnergyP50),
		slog.Float64("pred_energy_mean", s.PredEnergyMean),
		slog.Float64("pred_energy_p50", s.PredEnergyP50),
		slog.Float64("aggression_mean", s.AggressionMean),
		slog.Float64("aggression_std", s.AggressionStd),
		slog.Int("max_generation", s.MaxGeneration),
		slog.Float64("energy_removed", s.EnergyRemoved),
		slog.Float64("energy_released", s.EnergyReleased),
	)
}

// LogStats logs the window stats using the given logger.
func (s WindowStats) LogStats(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"plants", s.Plants,
		"herbivores", s.Herbivores,
		"predators", s.Predators,
		"births", s.Births(),
		"deaths", s.Deaths(),
		"kills", s.Kills,
		"attacks_blocked_nest", s.AttacksBlocked,
		"kill_rate", s.KillRate,
		"grazes", s.Grazes,
		"matings", s.Matings,
		"herb_energy_mean", s.HerbEnergyMean,
		"pred_energy_mean", s.PredEnergyMean,
		"aggression_mean", s.AggressionMean,
		"max_generation", s.MaxGeneration,
	)
}
