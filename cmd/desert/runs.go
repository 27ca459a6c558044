package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pthm-cable/desert/storage"
)

var flagLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived runs",
	Long:  `Shows the most recent runs recorded in the --db archive.`,
	Args:  cobra.NoArgs,
	RunE:  runRuns,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <run-id>",
	Short: "Show an archived run",
	Long: `Prints the telemetry windows and bookmarks of one archived run.

Examples:
  desert inspect --db runs/archive.db 3f2c8a4e-...`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	runsCmd.Flags().IntVar(&flagLimit, "limit", 20, "Maximum number of runs to list")
}

func openArchive() (*storage.Store, error) {
	if flagDBPath == "" {
		return nil, errors.New("--db is required")
	}
	return storage.Open(flagDBPath)
}

func runRuns(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(flagLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No runs archived yet.")
		return nil
	}

	fmt.Printf("  %-36s  %-20s  %-16s  %8s  %7s\n", "ID", "Seed", "Started", "Ticks", "Windows")
	fmt.Printf("  %-36s  %-20s  %-16s  %8s  %7s\n", "--", "----", "-------", "-----", "-------")
	for _, r := range runs {
		ticks := "running"
		if !r.FinishedAt.IsZero() {
			ticks = fmt.Sprint(r.FinalTick)
		}
		fmt.Printf("  %-36s  %-20d  %-16s  %8s  %7d\n",
			r.ID, r.Seed, r.CreatedAt.Local().Format("2006-01-02 15:04"), ticks, r.Windows)
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	store, err := openArchive()
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.GetRun(args[0])
	if err != nil {
		return err
	}
	windows, err := store.Windows(run.ID)
	if err != nil {
		return err
	}
	bookmarks, err := store.Bookmarks(run.ID)
	if err != nil {
		return err
	}

	fmt.Printf("Run %s (seed %d)\n", run.ID, run.Seed)
	fmt.Printf("Started %s", run.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if !run.FinishedAt.IsZero() {
		fmt.Printf(", finished at tick %d", run.FinalTick)
	}
	fmt.Println()
	fmt.Println()

	if len(windows) == 0 {
		fmt.Println("No windows recorded.")
	} else {
		fmt.Printf("  %8s  %6s  %6s  %6s  %6s  %6s  %5s  %7s  %8s  %8s  %4s\n",
			"Tick", "Plants", "Herb", "Pred", "Births", "Deaths", "Kills", "Matings", "HerbE", "PredE", "Gen")
		for _, w := range windows {
			fmt.Printf("  %8d  %6d  %6d  %6d  %6d  %6d  %5d  %7d  %8.1f  %8.1f  %4d\n",
				w.WindowEnd, w.Plants, w.Herbivores, w.Predators, w.Births, w.Deaths,
				w.Kills, w.Matings, w.HerbEnergyMean, w.PredEnergyMean, w.MaxGeneration)
		}
	}

	if len(bookmarks) > 0 {
		fmt.Println()
		fmt.Println("Bookmarks:")
		for _, b := range bookmarks {
			fmt.Printf("  %8d  %-18s  %s\n", b.Tick, b.Type, b.Description)
		}
	}
	return nil
}
