package pipeline

import (
	"fmt"
	"path/filepath"
	"sort"

	"newsrisk/internal/core"
	"newsrisk/internal/evaluation"
	"newsrisk/internal/table"
)

// Output file names inside the output directory.
const (
	FinalResultsFile      = "final_anomaly_results.csv"
	DailyVolumeFile       = "daily_volume.csv"
	LinguisticScoresFile  = "linguistic_scores.csv"
	BrandRiskFile         = "brand_risk_scores.csv"
	EvaluationSummaryFile = "evaluation_summary.csv"
	ReportFile            = "report.md"
)

const dateLayout = "2006-01-02"

// OutputFile is one encoded output waiting to be committed.
type OutputFile struct {
	Name string
	Data []byte
}

// EncodeResults renders fused articles sorted by article id.
func EncodeResults(articles []core.FusedArticle) ([]byte, error) {
	sorted := append([]core.FusedArticle(nil), articles...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	header := []string{
		"article_id", "heading", "publication_date", "claimed_location", "content_location",
		"sentiment_positive", "sentiment_negative", "sentiment_neutral", "sentiment_label",
		"topic_id", "text_length",
		"location_clean", "location_type", "location_anomaly", "temporal_anomaly",
		"is_anomaly", "anomaly_score", "total_anomaly_score", "final_label",
	}
	rows := make([][]string, len(sorted))
	for i, a := range sorted {
		date := ""
		if a.HasDate() {
			date = a.PublishedOn.Format(dateLayout)
		}
		rows[i] = []string{
			table.FormatInt(a.ID),
			a.Heading,
			date,
			a.ClaimedLocation,
			a.ContentLocation,
			table.FormatFloat(a.SentimentPositive),
			table.FormatFloat(a.SentimentNegative),
			table.FormatFloat(a.SentimentNeutral),
			a.SentimentLabel,
			table.FormatInt(a.TopicID),
			table.FormatFloat(a.TextLength),
			a.LocationClean,
			string(a.LocationType),
			string(a.LocationAnomaly),
			string(a.TemporalAnomaly),
			string(a.IsAnomaly),
			table.FormatFloat(a.AnomalyScore),
			table.FormatInt(a.TotalAnomalyScore),
			string(a.FinalLabel),
		}
	}
	return table.EncodeCSV(header, rows)
}

// EncodeBuckets renders the daily volume table. Undefined statistics are
// empty cells.
func EncodeBuckets(buckets []core.DailyBucket) ([]byte, error) {
	header := []string{"date", "weekday", "article_count", "rolling_mean", "rolling_std", "z_score", "temporal_anomaly"}
	rows := make([][]string, len(buckets))
	for i, b := range buckets {
		rows[i] = []string{
			b.Date.Format(dateLayout),
			b.Weekday,
			table.FormatInt(b.ArticleCount),
			table.FormatFloat(b.RollingMean),
			table.FormatFloat(b.RollingStd),
			table.FormatFloat(b.ZScore),
			string(b.TemporalAnomaly),
		}
	}
	return table.EncodeCSV(header, rows)
}

// EncodeLinguistic renders the linguistic detector output.
func EncodeLinguistic(results []core.LinguisticResult) ([]byte, error) {
	header := []string{"article_id", "is_anomaly", "anomaly_score"}
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{table.FormatInt(r.ArticleID), string(r.IsAnomaly), table.FormatFloat(r.AnomalyScore)}
	}
	return table.EncodeCSV(header, rows)
}

// EncodeOrganizations renders organizations in the order given, which the
// aggregator has already sorted.
func EncodeOrganizations(orgs []core.OrganizationRisk) ([]byte, error) {
	header := []string{"organization", "avg_article_risk", "article_count", "brand_risk_score", "risk_level"}
	rows := make([][]string, len(orgs))
	for i, o := range orgs {
		rows[i] = []string{
			o.Organization,
			table.FormatFloat(o.AvgArticleRisk),
			table.FormatInt(o.ArticleCount),
			table.FormatFloat(o.BrandRiskScore),
			string(o.RiskLevel),
		}
	}
	return table.EncodeCSV(header, rows)
}

// EncodeEvaluation renders an evaluation summary as metric/value rows.
// Undefined metrics are empty cells.
func EncodeEvaluation(summary *evaluation.Summary) ([]byte, error) {
	metrics := summary.Metrics()
	rows := make([][]string, len(metrics))
	for i, m := range metrics {
		rows[i] = []string{m.Name, table.FormatFloat(m.Value)}
	}
	return table.EncodeCSV([]string{"metric", "value"}, rows)
}

// Commit writes every encoded file into dir. Files are encoded before this
// is called, so a failed stage never leaves outputs behind.
func Commit(dir string, files []OutputFile) ([]string, error) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.Name)
		if err := table.WriteFile(path, f.Data); err != nil {
			return paths, fmt.Errorf("failed to commit %s: %w", f.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
