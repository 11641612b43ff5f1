package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"newsrisk/internal/config"
	"newsrisk/internal/logger"
	"newsrisk/internal/metrics"
	"newsrisk/internal/outlier"
	"newsrisk/internal/pipeline"
	"newsrisk/internal/render"
	"newsrisk/internal/store"
)

// NewScoreCmd creates the score command
func NewScoreCmd() *cobra.Command {
	var dryRun bool
	var top int

	cmd := &cobra.Command{
		Use:   "score [articles.csv]",
		Short: "Run the detectors, fuse their verdicts and score brand risk",
		Long: `Run a full scoring pass over an article table.

The location, temporal and linguistic detectors run in parallel, their
verdicts are fused into a final label per article and linked organizations
are ranked by brand risk. Any error aborts the run before an output file is
written.

Outputs (in --output):
  • final_anomaly_results.csv
  • daily_volume.csv
  • linguistic_scores.csv
  • brand_risk_scores.csv
  • report.md

Examples:
  # Score with the default isolation forest
  newsrisk score articles.csv --links links.csv

  # Exploded linguistic features in a separate file
  newsrisk score articles.csv --features features.csv --links links.csv

  # Try the centroid scorer without writing anything
  newsrisk score articles.csv --scorer centroid_distance --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			articles := ""
			if len(args) == 1 {
				articles = args[0]
			}
			return runScore(cmd.Context(), cmd.OutOrStdout(), articles, dryRun, top)
		},
	}

	cmd.Flags().String("features", "", "Linguistic feature table (default: the articles file)")
	cmd.Flags().String("links", "", "Article to organization link table")
	cmd.Flags().StringP("output", "o", "", "Output directory (default \"output\")")
	cmd.Flags().String("scorer", "", "Outlier scorer: isolation_forest or centroid_distance")
	cmd.Flags().Int("workers", 0, "Detectors to run at once (1-3)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Score without writing outputs or archiving the run")
	cmd.Flags().IntVar(&top, "top", 10, "Organizations to show in the summary")

	_ = viper.BindPFlag("input.features", cmd.Flags().Lookup("features"))
	_ = viper.BindPFlag("input.links", cmd.Flags().Lookup("links"))
	_ = viper.BindPFlag("output.directory", cmd.Flags().Lookup("output"))
	_ = viper.BindPFlag("linguistic.scorer", cmd.Flags().Lookup("scorer"))
	_ = viper.BindPFlag("pipeline.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runScore(ctx context.Context, w io.Writer, articlesArg string, dryRun bool, top int) error {
	input := config.GetInput()
	output := config.GetOutput()
	linguistic := config.GetLinguistic()
	metricsConfig := config.GetMetrics()

	opts := pipeline.RunOptions{
		ArticlesPath: input.Articles,
		FeaturesPath: input.Features,
		LinksPath:    input.Links,
		OutputDir:    output.Directory,
		DryRun:       dryRun,
	}
	if articlesArg != "" {
		// features follow the articles file unless set on their own
		if opts.FeaturesPath == "" || opts.FeaturesPath == input.Articles {
			opts.FeaturesPath = articlesArg
		}
		opts.ArticlesPath = articlesArg
	}
	if opts.ArticlesPath == "" {
		return errors.New("no articles table: pass it as an argument or set input.articles")
	}

	scorer, err := pipeline.NewScorer(linguistic.Scorer, outlier.IsolationForestConfig{
		Trees:      linguistic.Trees,
		SampleSize: linguistic.SampleSize,
		Seed:       linguistic.Seed,
	})
	if err != nil {
		return err
	}

	pipelineConfig := pipeline.DefaultConfig()
	pipelineConfig.Workers = config.GetPipeline().Workers
	pipelineConfig.WriteReport = output.Report
	pipelineConfig.MetricsTextfile = metricsConfig.Textfile
	if len(input.DateLayouts) > 0 {
		pipelineConfig.DateLayouts = input.DateLayouts
	}

	builder := pipeline.NewBuilder().
		WithConfig(pipelineConfig).
		WithScorer(scorer)

	if storeConfig := config.GetStore(); storeConfig.Enabled && !dryRun {
		st, err := store.NewStore(storeConfig.Path)
		if err != nil {
			// Non-fatal: the run archive is history, not input
			logger.Warn("run archive unavailable, continuing without it", "path", storeConfig.Path, "error", err)
		} else {
			defer st.Close()
			builder = builder.WithArchive(st)
		}
	}
	if metricsConfig.Textfile != "" {
		builder = builder.WithMetrics(metrics.NewRecorder())
	}

	p, err := builder.Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	result, err := p.Run(ctx, opts)
	if err != nil {
		return err
	}

	if err := render.Summary(w, p.ReportData(result, opts), top); err != nil {
		return err
	}
	if dryRun {
		fmt.Fprintln(w, "\nDry run: no files written")
		return nil
	}
	fmt.Fprintln(w)
	for _, path := range result.Files {
		fmt.Fprintf(w, "wrote %s\n", path)
	}
	logger.Info("scoring run written", "run_id", result.RunID, "dir", opts.OutputDir, "files", len(result.Files))
	return nil
}
