package sim

import (
	"context"
	"time"
)

// pausePoll is how often a paused Run checks for resume or cancellation.
const pausePoll = 20 * time.Millisecond

// Pause stops Run and RunRealtime from advancing. It takes effect between
// ticks; a tick in progress always completes.
func (s *Simulation) Pause() {
	if !s.paused.Swap(true) {
		s.logger.Info("paused", "tick", s.Snapshot().Tick)
	}
}

// Resume lets Run and RunRealtime advance again.
func (s *Simulation) Resume() {
	if s.paused.Swap(false) {
		s.logger.Info("resumed", "tick", s.Snapshot().Tick)
	}
}

// TogglePause flips the pause flag and returns the new value.
func (s *Simulation) TogglePause() bool {
	for {
		old := s.paused.Load()
		if s.paused.CompareAndSwap(old, !old) {
			s.logger.Info("pause_toggled", "paused", !old, "tick", s.Snapshot().Tick)
			return !old
		}
	}
}

// Paused reports whether the simulation is paused.
func (s *Simulation) Paused() bool {
	return s.paused.Load()
}

// Run steps as fast as possible until maxTicks ticks have run (0 = no
// limit) or ctx is done. ctx is only observed between ticks. It returns the
// number of ticks run.
func (s *Simulation) Run(ctx context.Context, maxTicks int) (int, error) {
	var poll *time.Ticker
	defer func() {
		if poll != nil {
			poll.Stop()
		}
	}()

	ran := 0
	for maxTicks <= 0 || ran < maxTicks {
		if err := ctx.Err(); err != nil {
			return ran, err
		}
		if s.Paused() {
			if poll == nil {
				poll = time.NewTicker(pausePoll)
			}
			select {
			case <-ctx.Done():
				return ran, ctx.Err()
			case <-poll.C:
			}
			continue
		}
		s.Step()
		ran++
	}
	return ran, nil
}

// RunRealtime steps once every world.tick_seconds of wall time until ctx is
// done. Ticks that fall due while paused are skipped, not queued.
func (s *Simulation) RunRealtime(ctx context.Context) error {
	interval := time.Duration(s.cfg.World.TickSeconds * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if !s.Paused() {
				s.Step()
			}
		}
	}
}

// Restart discards the world and builds a fresh one from seed. Nest
// references held from the previous world stop resolving. The pause flag
// is kept.
func (s *Simulation) Restart(seed uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.parallel.stopWorkers()
	s.logger.Info("restart", "previous_seed", s.seed, "seed", seed, "tick", s.tick)
	s.reset(seed)
}

// Tick returns the number of the last completed tick.
func (s *Simulation) Tick() int {
	return s.Snapshot().Tick
}
