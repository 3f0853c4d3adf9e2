package main

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"moviemeta/internal/cachestore"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the page cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheFlushCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache entry counts per purpose",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(runCtx context.Context, s *session) error {
				stats, err := s.store.Stats(runCtx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, statsView(stats))
				}
				out := cmd.OutOrStdout()
				writeLine(out, "Backend:  %s", stats.Backend)
				if stats.Location != "" {
					writeLine(out, "Location: %s", stats.Location)
				}
				writeLine(out, "Codec:    %s", stats.Codec)
				writeLine(out, "Enabled:  %s", yesNo(stats.Enabled))
				rows := make([][]string, 0, len(cachestore.Purposes())+1)
				for _, p := range cachestore.Purposes() {
					rows = append(rows, []string{p.String(), strconv.Itoa(stats.Entries[p])})
				}
				rows = append(rows, []string{"Total", strconv.Itoa(stats.Total())})
				writeLine(out, "%s", renderTable([]string{"Purpose", "Entries"}, rows, []columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type cacheStatsJSON struct {
	Backend  string         `json:"backend"`
	Location string         `json:"location,omitempty"`
	Codec    string         `json:"codec"`
	Enabled  bool           `json:"enabled"`
	Entries  map[string]int `json:"entries"`
	Total    int            `json:"total"`
}

func statsView(stats cachestore.Stats) cacheStatsJSON {
	entries := make(map[string]int, len(cachestore.Purposes()))
	for _, p := range cachestore.Purposes() {
		entries[p.Label()] = stats.Entries[p]
	}
	return cacheStatsJSON{
		Backend:  stats.Backend,
		Location: stats.Location,
		Codec:    stats.Codec,
		Enabled:  stats.Enabled,
		Entries:  entries,
		Total:    stats.Total(),
	}
}

func newCacheFlushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Delete every cache entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withSession(cmd, func(runCtx context.Context, s *session) error {
				removed, err := s.store.Flush(runCtx)
				if err != nil {
					return err
				}
				writeLine(cmd.OutOrStdout(), "Removed %d cache entries", removed)
				return nil
			})
		},
	}
}
