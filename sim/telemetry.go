package sim

import (
	"github.com/pthm-cable/desert/components"
	"github.com/pthm-cable/desert/systems"
	"github.com/pthm-cable/desert/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.sample())
	perfStats := s.perf.Stats()
	perfStats.Workers = s.parallel.numWorkers

	if s.opts.OnWindow != nil {
		s.opts.OnWindow(stats)
	}

	// Log stats if enabled (console output)
	if s.opts.LogStats {
		stats.LogStats(s.logger)
		perfStats.LogStats(s.logger)
	}

	if s.opts.Sink != nil {
		if err := s.opts.Sink.WriteTelemetry(stats); err != nil {
			s.logger.Error("failed to write telemetry", "error", err)
		}
		if err := s.opts.Sink.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			s.logger.Error("failed to write perf", "error", err)
		}
	}

	for _, bm := range s.bookmarks.Check(stats) {
		if s.opts.LogStats {
			bm.LogBookmark(s.logger)
		}
		if s.opts.Sink != nil {
			if err := s.opts.Sink.WriteBookmark(bm); err != nil {
				s.logger.Error("failed to write bookmark", "error", err)
			}
		}
	}
}

// sample collects the world-state half of a stats window.
func (s *Simulation) sample() telemetry.Sample {
	var smp telemetry.Sample

	query := s.animalFilter.Query()
	for query.Next() {
		_, _, org, g, energy, _, _ := query.Get()
		if org.Kind == components.KindPredator {
			smp.PredatorEnergies = append(smp.PredatorEnergies, energy.Value)
		} else {
			smp.HerbivoreEnergies = append(smp.HerbivoreEnergies, energy.Value)
		}
		smp.Genomes = append(smp.Genomes, *g)
		smp.MaxGeneration = max(smp.MaxGeneration, org.Generation)
	}

	plants := s.plantFilter.Query()
	for plants.Next() {
		_, _, pm := plants.Get()
		smp.Plants++
		if pm.Depleted() {
			smp.DepletedPlants++
		}
	}

	for c := range smp.Scent {
		smp.Scent[c] = s.scent.Total(systems.ScentClass(c))
	}
	return smp
}
