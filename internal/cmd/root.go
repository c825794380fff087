// Package cmd implements the pinger command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jordanella.com/reward-pinger/internal/config"
)

// Global flags
var (
	configPath string
	envFile    string
)

var rootCmd = &cobra.Command{
	Use:   "pinger",
	Short: "Keep a fleet of reward-node accounts online and claim their rewards",
	Long: `pinger drives a fleet of accounts against the reward service.

It activates every account once, then loops forever: refresh each
account's profile and claim eligible rewards, then run a bounded window
of keep-alive ping rounds.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "config file (.yaml, .toml or .ini)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with secrets")

	rootCmd.AddCommand(runCmd, configCmd, accountsCmd, journalCmd)
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// loadConfig reads the config file, applies environment overrides and
// validates the result
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, envFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configPath, err)
	}
	return cfg, nil
}
