package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/omarluq/dashcache/internal/config"
)

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default config file",
	Long:  `Generate a default dashcache configuration file at ~/.config/dashcache/dashcache.<format>`,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().StringP("output", "o", "", "output path (default: ~/.config/dashcache/dashcache.<format>)")
	configInitCmd.Flags().String("format", "yaml", "config format: yaml or toml")
	configInitCmd.Flags().Bool("force", false, "overwrite existing config file")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	formatName, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return fmt.Errorf("failed to get force flag: %w", err)
	}

	format, err := config.ParseFormat(formatName)
	if err != nil {
		return err
	}

	if output == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		output = filepath.Join(home, ".config", "dashcache", "dashcache."+string(format))
	}

	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", output)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	template := defaultConfigYAML
	if format == config.FormatTOML {
		template = defaultConfigTOML
	}
	if err := os.WriteFile(output, []byte(template), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Config file created at %s\n", output)
	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Set DASHCACHE_BACKEND_URL or edit backend.base_url")
	fmt.Fprintln(out, "  2. Tune cache.routes for your endpoints")
	fmt.Fprintln(out, "  3. Validate with: dashcache config validate --config "+output)
	fmt.Fprintln(out, "  4. Start the gateway: dashcache serve --config "+output)
	return nil
}

const defaultConfigYAML = `# dashcache configuration
server:
  listen: "127.0.0.1:8790"
  # Required as X-Admin-Key on POST /cache/* when set.
  admin_key: "${DASHCACHE_ADMIN_KEY}"
  timeout_ms: 30000
  enable_http2: false

backend:
  base_url: "${DASHCACHE_BACKEND_URL}"
  # Forwarded to the backend as X-Admin-Key.
  admin_key: "${DASHCACHE_BACKEND_ADMIN_KEY}"
  timeout_ms: 15000
  rate_limit_rpm: 0
  breaker:
    failure_threshold: 5
    open_duration_ms: 30000
    half_open_probes: 1

cache:
  default_ttl_ms: 60000
  stale_while_refetch: false
  routes:
    - prefix: /offers
      ttl_ms: 20000
      stale_while_refetch: true
    - prefix: /campaigns
      ttl_ms: 20000
      stale_while_refetch: true
    - prefix: /aff/templates
      ttl_ms: 30000
    - prefix: /links
      ttl_ms: 30000
    - prefix: /auth
      disabled: true

logging:
  level: info
  format: console
`

const defaultConfigTOML = `# dashcache configuration
[server]
listen = "127.0.0.1:8790"
# Required as X-Admin-Key on POST /cache/* when set.
admin_key = "${DASHCACHE_ADMIN_KEY}"
timeout_ms = 30000
enable_http2 = false

[backend]
base_url = "${DASHCACHE_BACKEND_URL}"
# Forwarded to the backend as X-Admin-Key.
admin_key = "${DASHCACHE_BACKEND_ADMIN_KEY}"
timeout_ms = 15000
rate_limit_rpm = 0

[backend.breaker]
failure_threshold = 5
open_duration_ms = 30000
half_open_probes = 1

[cache]
default_ttl_ms = 60000
stale_while_refetch = false

[[cache.routes]]
prefix = "/offers"
ttl_ms = 20000
stale_while_refetch = true

[[cache.routes]]
prefix = "/campaigns"
ttl_ms = 20000
stale_while_refetch = true

[[cache.routes]]
prefix = "/aff/templates"
ttl_ms = 30000

[[cache.routes]]
prefix = "/links"
ttl_ms = 30000

[[cache.routes]]
prefix = "/auth"
disabled = true

[logging]
level = "info"
format = "console"
`
