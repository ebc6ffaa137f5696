// Package cli implements the smartmove command line.
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"smartmove/internal/config"
)

var rulesPath string

var rootCmd = &cobra.Command{
	Use:           "smartmove",
	Short:         "Fleet scheduling and resource assignment",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&rulesPath, "config", "c", "", "scheduling rules file (YAML or JSON); overrides SCHEDULING_RULES_FILE")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadSettings reads the environment configuration and the scheduling rules,
// and resolves the fleet time zone.
func loadSettings() (*config.Config, *config.Rules, *time.Location, error) {
	cfg := config.Load()
	path := rulesPath
	if path == "" {
		path = cfg.Scheduling.RulesFile
	}
	rules, err := config.LoadRules(path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load rules: %w", err)
	}
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load fleet time zone: %w", err)
	}
	return cfg, rules, loc, nil
}
