package handlers

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newsrisk/internal/config"
	"newsrisk/internal/store"
)

const workflowArticles = `article_id,heading,publication_date,claimed_location,content_location,sentiment_positive,sentiment_negative,sentiment_neutral,sentiment_label,topic_id,text_length
1,Budget talks resume,2015-01-01,India,India,0.6,0.1,0.3,positive,2,480
2,Rain expected,2015-01-02,India,India,0.3,0.1,0.6,neutral,1,510
3,Markets steady,2015-01-03,India,India,0.4,0.1,0.5,neutral,2,495
4,New metro line,2015-01-04,India,India,0.7,0.1,0.2,positive,3,530
5,Cricket squad named,2015-01-05,India,India,0.5,0.1,0.4,positive,4,470
6,Exports rise,2015-01-06,India,India,0.6,0.1,0.3,positive,2,505
7,School results,2015-01-07,India,India,0.5,0.1,0.4,positive,1,490
8,Factory blast probe,2015-01-08,USA,India,0.1,0.6,0.3,negative,5,900
9,Probe widens,2015-01-08,India,India,0.2,0.2,0.6,neutral,5,520
10,Officials respond,2015-01-08,Pakistan,,0.2,0.3,0.5,negative,5,515
11,Families gather,2015-01-08,India,India,0.2,0.3,0.5,negative,5,500
12,Inquiry announced,2015-01-08,India,India,0.3,0.2,0.5,neutral,5,485
`

const workflowLinks = `article_id,organization
8,Acme Corp
9,Acme Corp
1,Beta Ltd
`

// setupWorkflow isolates config loading in a temp directory and returns it.
func setupWorkflow(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("NEWSRISK_DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("NEWSRISK_METRICS_TEXTFILE", filepath.Join(dir, "metrics", "newsrisk.prom"))

	for name, content := range map[string]string{"articles.csv": workflowArticles, "links.csv": workflowLinks} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}

	config.Reset()
	t.Cleanup(config.Reset)
	return dir
}

// execute runs the CLI with a fresh configuration
func execute(t *testing.T, args ...string) string {
	t.Helper()
	config.Reset()

	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("newsrisk %s failed: %v\n%s", strings.Join(args, " "), err, out.String())
	}
	return out.String()
}

// TestScoreWorkflow scores a corpus, evaluates it and browses the archive
func TestScoreWorkflow(t *testing.T) {
	dir := setupWorkflow(t)
	outDir := filepath.Join(dir, "results")

	t.Run("Score", func(t *testing.T) {
		out := execute(t, "score", "articles.csv", "--links", "links.csv", "--output", outDir, "--workers", "2")

		for _, name := range []string{
			"final_anomaly_results.csv",
			"daily_volume.csv",
			"linguistic_scores.csv",
			"brand_risk_scores.csv",
			"report.md",
		} {
			if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
				t.Errorf("Expected output %s: %v", name, err)
			}
		}
		if !strings.Contains(out, "Acme Corp") {
			t.Errorf("Expected summary to list Acme Corp, got:\n%s", out)
		}
		if _, err := os.Stat(filepath.Join(dir, "metrics", "newsrisk.prom")); err != nil {
			t.Errorf("Expected metrics textfile: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "data", "runs.db")); err != nil {
			t.Errorf("Expected run archive: %v", err)
		}
	})

	t.Run("Evaluate", func(t *testing.T) {
		out := execute(t, "evaluate", filepath.Join(outDir, "final_anomaly_results.csv"))

		if !strings.Contains(out, "ROC_AUC") {
			t.Errorf("Expected metrics table, got:\n%s", out)
		}
		if _, err := os.Stat(filepath.Join(outDir, "evaluation_summary.csv")); err != nil {
			t.Errorf("Expected evaluation summary: %v", err)
		}
	})

	t.Run("RunsListAndShow", func(t *testing.T) {
		out := execute(t, "runs", "list")
		if !strings.Contains(out, "isolation_forest") {
			t.Errorf("Expected the run in the list, got:\n%s", out)
		}
		if !strings.Contains(out, "1 runs, 12 article results archived") {
			t.Errorf("Expected archive stats footer, got:\n%s", out)
		}

		st, err := store.NewStore(filepath.Join(dir, "data", "runs.db"))
		if err != nil {
			t.Fatalf("Failed to open archive: %v", err)
		}
		runs, err := st.ListRuns(context.Background(), 0)
		st.Close()
		if err != nil {
			t.Fatalf("Failed to list runs: %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("Expected 1 archived run, got %d", len(runs))
		}
		if runs[0].ArticleCount != 12 {
			t.Errorf("Expected 12 articles, got %d", runs[0].ArticleCount)
		}

		out = execute(t, "runs", "show", runs[0].ID[:6])
		if !strings.Contains(out, runs[0].ID) || !strings.Contains(out, "Acme Corp") {
			t.Errorf("Expected run details with organizations, got:\n%s", out)
		}
	})

	t.Run("DryRunLeavesNoTrace", func(t *testing.T) {
		dryOut := filepath.Join(dir, "dry")
		execute(t, "score", "articles.csv", "--output", dryOut, "--dry-run")

		if _, err := os.Stat(dryOut); !os.IsNotExist(err) {
			t.Errorf("Expected no output directory for a dry run, got err=%v", err)
		}
	})
}
