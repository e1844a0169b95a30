package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/omarluq/dashcache/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without starting the gateway.
Checks syntax, the backend URL, cache routes and logging options.`,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	path := configPath()

	cfg, err := config.LoadValidated(path)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "✗ Config validation failed: %s\n", err)
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s is valid (%d cache routes, backend %s)\n",
		path, len(cfg.Cache.Routes), cfg.Backend.BaseURL)
	return nil
}
