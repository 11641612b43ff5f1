package handlers

import (
	"fmt"
	"io"
	"math"
	"path/filepath"

	"github.com/spf13/cobra"

	"newsrisk/internal/config"
	"newsrisk/internal/evaluation"
	"newsrisk/internal/pipeline"
	"newsrisk/internal/render"
	"newsrisk/internal/table"
)

// NewEvaluateCmd creates the evaluate command
func NewEvaluateCmd() *cobra.Command {
	var threshold float64
	var ks []int
	var out string

	cmd := &cobra.Command{
		Use:   "evaluate [final_anomaly_results.csv]",
		Short: "Evaluate fused results against their proxy labels",
		Long: `Evaluate a final_anomaly_results.csv against proxy ground truth.

RED FLAG articles are positives, NORMAL articles negatives and REVIEW
articles are left out. Each article's composite score is the share of the
three detectors that flagged it; scores at or above --threshold are
predicted anomalous.

Reports ROC_AUC, PR_AUC, Precision, Recall, F1_score and Recall@k, and
writes them to evaluation_summary.csv. Metrics that are undefined for a
single-class input are shown as n/a and written as empty cells.

Examples:
  newsrisk evaluate
  newsrisk evaluate output/final_anomaly_results.csv --k 10,50`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := filepath.Join(config.GetOutput().Directory, pipeline.FinalResultsFile)
			if len(args) == 1 {
				path = args[0]
			}
			if out == "" {
				out = filepath.Join(filepath.Dir(path), pipeline.EvaluationSummaryFile)
			}
			thresholds := evaluation.Thresholds{Prediction: threshold, RecallAtK: ks}
			return runEvaluate(cmd.OutOrStdout(), path, out, thresholds)
		},
	}

	defaults := evaluation.DefaultThresholds()
	cmd.Flags().Float64Var(&threshold, "threshold", defaults.Prediction, "Composite score at or above which an article is predicted anomalous")
	cmd.Flags().IntSliceVar(&ks, "k", defaults.RecallAtK, "Cut-offs for Recall@k")
	cmd.Flags().StringVar(&out, "out", "", "Summary CSV path (default: next to the results file)")

	return cmd
}

func runEvaluate(w io.Writer, resultsPath, summaryPath string, thresholds evaluation.Thresholds) error {
	if thresholds.Prediction < 0 || thresholds.Prediction > 1 {
		return fmt.Errorf("threshold must be within [0, 1], got %v", thresholds.Prediction)
	}
	for _, k := range thresholds.RecallAtK {
		if k < 1 {
			return fmt.Errorf("recall cut-offs must be positive, got %d", k)
		}
	}

	articles, err := pipeline.ReadResults(resultsPath)
	if err != nil {
		return err
	}

	summary, err := evaluation.NewEvaluatorWithThresholds(thresholds).Evaluate(articles)
	if err != nil {
		return err
	}

	data, err := pipeline.EncodeEvaluation(summary)
	if err != nil {
		return err
	}
	if err := table.WriteFile(summaryPath, data); err != nil {
		return err
	}

	fmt.Fprintf(w, "Evaluated %d articles (%d RED FLAG, %d REVIEW excluded)\n\n",
		summary.Evaluated, summary.Positives, summary.Excluded)

	t := render.NewTable(w, []string{"Metric", "Value"})
	for _, m := range summary.Metrics() {
		t.AddRow(m.Name, formatMetric(m.Value))
	}
	if err := t.Render(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nwrote %s\n", summaryPath)
	return nil
}

func formatMetric(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.4f", v)
}
