package main

import (
	"context"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"moviemeta/internal/titles"
)

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "lookup <query>",
		Short: "Search for titles matching a free-text query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return ctx.withSession(cmd, func(runCtx context.Context, s *session) error {
				res, err := s.resolver.Lookup(runCtx, query)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, lookupView{Query: query, Result: res})
				}
				renderLookup(cmd, query, res)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

type lookupView struct {
	Query string `json:"query"`
	titles.Result
}

func renderLookup(cmd *cobra.Command, query string, res titles.Result) {
	out := cmd.OutOrStdout()
	switch res.Outcome {
	case titles.OutcomeNoResult:
		writeLine(out, "No matches for %q", query)
	case titles.OutcomeDirectHit:
		writeLine(out, "Direct hit for %q", query)
		writeLine(out, "Run `moviemeta details %s` to fetch its details.", strconv.Quote(query))
	default:
		if len(res.Candidates) == 0 {
			writeLine(out, "No movie results for %q (only TV, video or video game entries)", query)
			return
		}
		rows := make([][]string, 0, len(res.Candidates))
		for i, c := range res.Candidates {
			match := "popular"
			if c.Exact {
				match = "exact"
			}
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				c.TitleID,
				c.Title,
				strconv.Itoa(c.Year),
				match,
			})
		}
		writeLine(out, "%s", renderTable(
			[]string{"#", "Title ID", "Title", "Year", "Match"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
		))
	}
}
