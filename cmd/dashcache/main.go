// Package main is the entry point for dashcache.
package main

import (
	"context"
	"os"
	"path/filepath"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "dashcache.yaml"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dashcache",
	Short: "Stale-aware caching gateway for dashboard APIs",
	Long: `dashcache sits between a dashboard and its REST backend. Reads are cached
with per-route TTLs, concurrent requests share one backend fetch, stale data can
be served while it refreshes, and writes clear the affected resource.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./"+defaultConfigFile+" or ~/.config/dashcache/"+defaultConfigFile+")")
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}

// configPath returns --config, or the first default location that exists.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return findConfigIn(".", home)
}

// findConfigIn looks for the default config file (YAML, then TOML) in dir and
// then in home's .config/dashcache. Falls back to the default name, which
// makes the subsequent load fail with a clear error.
func findConfigIn(dir, home string) string {
	dirs := []string{dir}
	if home != "" {
		dirs = append(dirs, filepath.Join(home, ".config", "dashcache"))
	}
	for _, d := range dirs {
		for _, name := range []string{defaultConfigFile, "dashcache.toml"} {
			p := filepath.Join(d, name)
			if _, err := os.Stat(p); err == nil {
				return p
			}
		}
	}
	return defaultConfigFile
}
