package handlers

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"newsrisk/internal/config"
	"newsrisk/internal/location"
	"newsrisk/internal/pipeline"
	"newsrisk/internal/render"
)

// NewLocationsCmd creates the locations command
func NewLocationsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "locations [articles.csv]",
		Short: "Show normalized content locations and how often they occur",
		Long: `Normalize the content location of every article and count articles per
location bucket (REGION, CITY_OR_COUNTRY or UNKNOWN).

This is a display check only; it never affects anomaly verdicts.

Examples:
  newsrisk locations articles.csv
  newsrisk locations articles.csv --limit 0`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := config.GetInput()
			path := input.Articles
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				return errors.New("no articles table: pass it as an argument or set input.articles")
			}
			return runLocations(cmd.OutOrStdout(), path, input.DateLayouts, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 25, "Maximum number of locations to list (0 for all)")

	return cmd
}

func runLocations(w io.Writer, path string, dateLayouts []string, limit int) error {
	articles, err := pipeline.ReadArticles(path, dateLayouts)
	if err != nil {
		return err
	}

	summaries := location.NewStage().Summarize(articles)
	shown := summaries
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	t := render.NewTable(w, []string{"Location", "Type", "Articles"})
	for _, s := range shown {
		t.AddRow(s.Location, string(s.Type), fmt.Sprint(s.Articles))
	}
	if err := t.Render(); err != nil {
		return err
	}

	if len(shown) < len(summaries) {
		fmt.Fprintf(w, "\n%d of %d locations shown, use --limit 0 for all\n", len(shown), len(summaries))
	}
	return nil
}
