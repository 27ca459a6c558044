package storage

import (
	"fmt"

	"github.com/pthm-cable/desert/telemetry"
)

// RunSink archives one run's telemetry. It implements telemetry.Sink.
// Closing the sink marks the run finished; the Store stays open.
type RunSink struct {
	store   *Store
	runID   string
	lastEnd int
}

// RunID returns the archive id of the run.
func (r *RunSink) RunID() string {
	return r.runID
}

// WriteTelemetry archives a window.
func (r *RunSink) WriteTelemetry(s telemetry.WindowStats) error {
	_, err := r.store.db.Exec(
		`INSERT INTO windows (run_id, window_end, plants, herbivores, predators, births, deaths,
			kills, matings, herb_energy_mean, pred_energy_mean, aggression_mean, max_generation)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.runID, s.WindowEndTick, s.Plants, s.Herbivores, s.Predators, s.Births(), s.Deaths(),
		s.Kills, s.Matings, s.HerbEnergyMean, s.PredEnergyMean, s.AggressionMean, s.MaxGeneration,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save window: %w", err)
	}
	r.lastEnd = s.WindowEndTick
	return nil
}

// WritePerf archives a performance summary.
func (r *RunSink) WritePerf(s telemetry.PerfStats, windowEnd int) error {
	_, err := r.store.db.Exec(
		"INSERT INTO perf (run_id, window_end, avg_tick_us, ticks_per_sec) VALUES (?, ?, ?, ?)",
		r.runID, windowEnd, s.AvgTickDuration.Microseconds(), s.TicksPerSecond,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save perf: %w", err)
	}
	return nil
}

// WriteBookmark archives a bookmark.
func (r *RunSink) WriteBookmark(b telemetry.Bookmark) error {
	_, err := r.store.db.Exec(
		"INSERT INTO bookmarks (run_id, tick, type, description) VALUES (?, ?, ?, ?)",
		r.runID, b.Tick, string(b.Type), b.Description,
	)
	if err != nil {
		return fmt.Errorf("storage: cannot save bookmark: %w", err)
	}
	return nil
}

// Close marks the run finished at the last archived window.
func (r *RunSink) Close() error {
	return r.store.FinishRun(r.runID, r.lastEnd)
}
