package main

import (
	"fmt"
	"io"
	"net/http"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/omarluq/dashcache/internal/gateway"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache counters of a running gateway",
	RunE:  runStats,
}

var statsResetFlag bool

func init() {
	addAddrFlag(statsCmd)
	statsCmd.Flags().BoolVar(&statsResetFlag, "reset", false, "reset the counters after printing them")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	r, err := newRemote(cmd)
	if err != nil {
		return err
	}

	var resp gateway.StatsResponse
	if err := r.call(http.MethodGet, "/cache/stats", nil, &resp); err != nil {
		return err
	}
	if err := printStats(cmd.OutOrStdout(), resp); err != nil {
		return err
	}

	if statsResetFlag {
		if err := r.call(http.MethodPost, "/cache/stats/reset", nil, &resp); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ counters reset")
	}
	return nil
}

func printStats(out io.Writer, resp gateway.StatsResponse) error {
	s := resp.Stats
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	rows := []struct {
		name  string
		value any
	}{
		{"hits", s.Hits},
		{"stale hits", s.StaleHits},
		{"misses", s.Misses},
		{"stale refetch", s.StaleRefetch},
		{"forced refresh", s.ForcedRefresh},
		{"background refresh", s.BackgroundRefresh},
		{"errors", s.Errors},
		{"inflight", s.Inflight},
		{"entries", resp.Entries},
		{"hit ratio", fmt.Sprintf("%.1f%%", resp.HitRatio*100)},
		{"breaker", resp.Breaker},
	}
	for _, row := range rows {
		fmt.Fprintf(tw, "%s\t%v\n", row.name, row.value)
	}
	return tw.Flush()
}
