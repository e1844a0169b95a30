package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/omarluq/dashcache/internal/gateway"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear cached entries of a running gateway",
	Long: `Clear every cached key starting with --prefix, for example
"GET /offers" or "dash_". Without --prefix the whole cache is cleared.`,
	RunE: runClear,
}

func init() {
	addAddrFlag(clearCmd)
	clearCmd.Flags().String("prefix", "", "key prefix to clear (default: everything)")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	prefix, err := cmd.Flags().GetString("prefix")
	if err != nil {
		return fmt.Errorf("failed to get prefix flag: %w", err)
	}
	r, err := newRemote(cmd)
	if err != nil {
		return err
	}

	var query url.Values
	if prefix != "" {
		query = url.Values{"prefix": {prefix}}
	}
	var resp gateway.ClearResponse
	if err := r.call(http.MethodPost, "/cache/clear", query, &resp); err != nil {
		return err
	}

	if resp.Prefix == "" {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ cleared %d entries\n", resp.Cleared)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "✓ cleared %d entries matching %q\n", resp.Cleared, resp.Prefix)
	}
	return nil
}
