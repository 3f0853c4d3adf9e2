package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"moviemeta/internal/titles"
)

func newDetailsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "details <title-id|query>",
		Short: "Show details for a title id or a query that resolved as a direct hit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.Join(args, " ")
			return ctx.withSession(cmd, func(runCtx context.Context, s *session) error {
				details, err := s.resolver.GetDetails(runCtx, key)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, details)
				}
				renderDetails(cmd, details)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderDetails(cmd *cobra.Command, d *titles.MovieDetails) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	writeLine(out, "%s", colorText(d.TitleID, ansiBold, colorize))

	rows := [][]string{
		{"Rating", formatRating(d.Rating)},
		{"Released", formatRelease(d.ReleaseDate)},
		{"Genres", formatGenres(d.Genres)},
		{"Tagline", orDash(d.Tagline)},
		{"Plot", orDash(d.Plot)},
	}
	writeLine(out, "%s", renderTable([]string{"Field", "Value"}, rows, nil))
}

func formatRating(r *float64) string {
	if r == nil {
		return "-"
	}
	return strconv.FormatFloat(*r, 'f', 1, 64) + "/10"
}

func formatRelease(d *titles.ReleaseDate) string {
	if d == nil {
		return "-"
	}
	day := time.Unix(d.Unix, 0).UTC().Format("2006-01-02")
	if d.Readable == "" {
		return day
	}
	return fmt.Sprintf("%s (%s)", d.Readable, day)
}

// formatGenres normalizes casing for display; stored genres keep page casing.
func formatGenres(genres []string) string {
	if len(genres) == 0 {
		return "-"
	}
	caser := cases.Title(language.English)
	out := make([]string, len(genres))
	for i, g := range genres {
		out[i] = caser.String(g)
	}
	return strings.Join(out, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
