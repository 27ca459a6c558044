package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/desert/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a configuration file",
	Long: `Loads the file over the embedded defaults and reports every problem
found. Without an argument the --config file is checked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

var configCmd = &cobra.Command{
	Use:   "config [file]",
	Short: "Print the effective configuration",
	Long: `Prints the configuration that a run would use: the embedded defaults
merged with the given file (or --config).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfig,
}

func configPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return flagConfig
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := configPath(args)
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		var verr *config.ValidationError
		if errors.As(err, &verr) {
			fmt.Fprintf(os.Stderr, "%d problem(s):\n", len(verr.Problems))
			for _, p := range verr.Problems {
				fmt.Fprintf(os.Stderr, "  - %v\n", p)
			}
		}
		return err
	}

	if path == "" {
		path = "embedded defaults"
	}
	fmt.Printf("%s: ok (%d nests)\n", path, len(cfg.Nests))
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath(args))
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
