package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/desert/config"
	"github.com/pthm-cable/desert/sim"
	"github.com/pthm-cable/desert/storage"
	"github.com/pthm-cable/desert/telemetry"
)

var (
	flagSeed         uint64
	flagTicks        int
	flagRealtime     bool
	flagOutputDir    string
	flagLogStats     bool
	flagWorkers      int
	flagSnapshotPath string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a simulation",
	Long: `Runs the simulation until --ticks ticks have passed or the process is
interrupted. Without --realtime ticks run as fast as possible.

Telemetry windows go to CSV files under --output and, with --db, to the
run archive.`,
	Args: cobra.NoArgs,
	RunE: runSimulation,
}

func init() {
	runCmd.Flags().Uint64Var(&flagSeed, "seed", 0, "RNG seed (0 = time-based)")
	runCmd.Flags().IntVar(&flagTicks, "ticks", 0, "Stop after N ticks (0 = unlimited)")
	runCmd.Flags().BoolVar(&flagRealtime, "realtime", false, "Pace ticks at world.tick_seconds of wall time")
	runCmd.Flags().StringVar(&flagOutputDir, "output", "", "Output directory for CSV logs and config snapshot")
	runCmd.Flags().BoolVar(&flagLogStats, "log-stats", false, "Log a stats line per telemetry window")
	runCmd.Flags().IntVar(&flagWorkers, "workers", 0, "Decision workers (0 = config)")
	runCmd.Flags().StringVar(&flagSnapshotPath, "snapshot", "", "Write the final world snapshot as JSON to this file")
}

func runSimulation(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(os.Stderr, flagLogFormat, flagLogLevel)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	seed := flagSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	// Build the telemetry sinks
	var sinks telemetry.MultiSink
	output, err := telemetry.NewOutputManager(flagOutputDir)
	if err != nil {
		return err
	}
	if output != nil {
		if err := output.WriteConfig(cfg); err != nil {
			output.Close()
			return err
		}
		sinks = append(sinks, output)
		logger.Info("output enabled", "dir", output.Dir())
	}

	var store *storage.Store
	if flagDBPath != "" {
		store, err = storage.Open(flagDBPath)
		if err != nil {
			sinks.Close()
			return err
		}
		defer store.Close()

		cfgYAML, err := yaml.Marshal(cfg)
		if err != nil {
			sinks.Close()
			return fmt.Errorf("marshaling config: %w", err)
		}
		archive, err := store.CreateRun(seed, string(cfgYAML))
		if err != nil {
			sinks.Close()
			return err
		}
		sinks = append(sinks, archive)
		logger.Info("archiving run", "db", flagDBPath, "run_id", archive.RunID())
	}

	opts := sim.Options{
		Seed:     seed,
		Logger:   logger,
		Workers:  flagWorkers,
		LogStats: flagLogStats,
	}
	if len(sinks) > 0 {
		opts.Sink = sinks
	}

	s, err := sim.New(cfg, opts)
	if err != nil {
		sinks.Close()
		return err
	}
	defer s.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting simulation",
		"seed", seed,
		"max_ticks", flagTicks,
		"realtime", flagRealtime,
		"herbivores", cfg.Population.Herbivores,
		"predators", cfg.Population.Predators,
		"plants", cfg.Population.Plants,
	)

	start := time.Now()
	if flagRealtime {
		err = runRealtime(ctx, s, flagTicks)
	} else {
		_, err = s.Run(ctx, flagTicks)
	}
	interrupted := errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
	if err != nil && !interrupted {
		sinks.Close()
		return err
	}

	snap := s.Snapshot()
	logger.Info("simulation finished",
		"ticks", snap.Tick,
		"elapsed", time.Since(start).Round(time.Millisecond),
		"herbivores", snap.Report.Herbivores,
		"predators", snap.Report.Predators,
		"plants", snap.Report.Plants,
		"interrupted", interrupted,
	)

	if err := output.WriteHallOfFame(s.HallOfFame()); err != nil {
		logger.Error("failed to write hall of fame", "error", err)
	}
	if flagSnapshotPath != "" {
		if err := writeSnapshot(flagSnapshotPath, snap); err != nil {
			logger.Error("failed to write snapshot", "error", err)
		}
	}
	return sinks.Close()
}

// runRealtime paces the clock in wall time and stops after maxTicks when set.
func runRealtime(ctx context.Context, s *sim.Simulation, maxTicks int) error {
	if maxTicks <= 0 {
		return s.RunRealtime(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- s.RunRealtime(ctx) }()

	poll := time.NewTicker(50 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case err := <-done:
			return err
		case <-poll.C:
			if s.Tick() >= maxTicks {
				cancel()
				<-done
				return nil
			}
		}
	}
}

func writeSnapshot(path string, snap *sim.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
