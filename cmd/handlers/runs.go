package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"newsrisk/internal/config"
	"newsrisk/internal/core"
	"newsrisk/internal/render"
	"newsrisk/internal/store"
)

// NewRunsCmd creates the runs command
func NewRunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse the archive of completed scoring runs",
		Long: `Browse the archive of completed scoring runs.

Every successful score run is appended to a SQLite archive (store.path,
default <data_dir>/runs.db). Scoring never reads from it.`,
	}

	cmd.AddCommand(newRunsListCmd())
	cmd.AddCommand(newRunsShowCmd())

	return cmd
}

func newRunsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Long: `List the most recent scoring runs.

Examples:
  newsrisk runs list
  newsrisk runs list --limit 50`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsList(cmd.Context(), cmd.OutOrStdout(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum number of runs to list")

	return cmd
}

func newRunsShowCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one run and its top organizations",
		Long: `Show one archived run. The id may be abbreviated to any unique prefix.

Examples:
  newsrisk runs show 3f2a9c1e
  newsrisk runs show 3f2a --top 25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRunsShow(cmd.Context(), cmd.OutOrStdout(), args[0], top)
		},
	}

	cmd.Flags().IntVar(&top, "top", 10, "Organizations to show")

	return cmd
}

func openStore() (*store.Store, error) {
	cfg := config.GetStore()
	if !cfg.Enabled {
		return nil, errors.New("the run archive is disabled (store.enabled=false)")
	}
	return store.NewStore(cfg.Path)
}

func runRunsList(ctx context.Context, w io.Writer, limit int) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs archived yet")
		return nil
	}

	t := render.NewTable(w, []string{"Run", "Started", "Duration", "Articles", "Red flag", "Review", "Organizations", "Scorer"})
	for _, r := range runs {
		t.AddRow(
			shortRunID(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			r.Duration().Round(time.Millisecond).String(),
			fmt.Sprint(r.ArticleCount),
			fmt.Sprint(r.RedFlagCount),
			fmt.Sprint(r.ReviewCount),
			fmt.Sprint(r.OrganizationCount),
			r.Scorer,
		)
	}
	if err := t.Render(); err != nil {
		return err
	}

	if stats, err := st.Stats(ctx); err == nil {
		fmt.Fprintf(w, "\n%d runs, %d article results archived (%.1f KB)\n",
			stats.RunCount, stats.ResultCount, float64(stats.SizeBytes)/1024)
	}
	fmt.Fprintln(w, "\nUse 'newsrisk runs show <id>' to view a specific run")
	return nil
}

func runRunsShow(ctx context.Context, w io.Writer, id string, top int) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.GetRun(ctx, id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("no run matches %q", id)
	}

	fmt.Fprintf(w, "Run        %s\n", run.ID)
	fmt.Fprintf(w, "Started    %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Duration   %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(w, "Scorer     %s\n", run.Scorer)
	fmt.Fprintf(w, "Articles   %s\n", run.ArticlesPath)
	if run.FeaturesPath != run.ArticlesPath {
		fmt.Fprintf(w, "Features   %s\n", run.FeaturesPath)
	}
	if run.LinksPath != "" {
		fmt.Fprintf(w, "Links      %s\n", run.LinksPath)
	}
	fmt.Fprintf(w, "\n%d articles (%d undated): %s %d, %s %d, %s %d\n\n",
		run.ArticleCount, run.UndatedCount,
		render.LabelText(core.LabelRedFlag), run.RedFlagCount,
		render.LabelText(core.LabelReview), run.ReviewCount,
		render.LabelText(core.LabelNormal), run.NormalCount)

	orgs, err := st.TopOrganizations(ctx, run.ID, top)
	if err != nil {
		return err
	}
	if len(orgs) == 0 {
		fmt.Fprintln(w, "No organizations were scored in this run")
		return nil
	}

	t := render.NewTable(w, []string{"#", "Organization", "Articles", "Avg risk", "Brand risk", "Level"})
	for i, o := range orgs {
		t.AddRow(
			fmt.Sprint(i+1),
			o.Organization,
			fmt.Sprint(o.ArticleCount),
			fmt.Sprintf("%.3f", o.AvgArticleRisk),
			fmt.Sprintf("%.3f", o.BrandRiskScore),
			render.LevelText(o.RiskLevel),
		)
	}
	return t.Render()
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
