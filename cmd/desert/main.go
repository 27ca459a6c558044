// desert runs the desert ecosystem simulation headless.
//
// Usage:
//
//	desert run                 - Run a simulation
//	desert validate [file]     - Check a configuration file
//	desert config [file]       - Print the effective configuration
//	desert runs                - List archived runs
//	desert inspect <run-id>    - Show an archived run's windows and bookmarks
//
// Global flags:
//
//	--config <path>      - Configuration YAML (default: embedded defaults)
//	--db <path>          - Run archive database (empty = no archive)
//	--log-format <fmt>   - json (default) or text
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	flagConfig    string
	flagDBPath    string
	flagLogFormat string
	flagLogLevel  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "desert",
	Short: "Desert ecosystem simulation",
	Long: `desert simulates herbivores, predators and plants on a bounded 2D
desert with scent trails, nests and two-parent reproduction.

Examples:
  desert run --seed 42 --ticks 20000 --output runs/42
  desert run --realtime --log-stats
  desert validate my.yaml
  desert runs --db runs/archive.db
  desert inspect --db runs/archive.db <run-id>`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config YAML (empty = use defaults)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Path to the run archive database")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "json", "Log format: json or text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn or error")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(inspectCmd)
}
