// Package linguistic flags articles whose sentiment, topic and length
// combination is a multivariate outlier within the corpus.
package linguistic

import (
	"fmt"
	"log/slog"
	"sort"

	"newsrisk/internal/core"
	"newsrisk/internal/logger"
	"newsrisk/internal/outlier"
)

// Contamination is the fraction of the corpus labelled Anomaly.
const Contamination = 0.08

// FeatureRow is one raw feature row. Several rows may share an ArticleID
// when the upstream representation was exploded.
type FeatureRow struct {
	ArticleID      int64
	SentimentLabel string
	TopicID        int
	TextLength     float64
}

// Detector scores collapsed feature vectors with a pluggable outlier scorer.
type Detector struct {
	scorer outlier.Scorer
	log    *slog.Logger
}

// NewDetector creates a linguistic detector around scorer. A nil scorer
// falls back to the default isolation forest.
func NewDetector(scorer outlier.Scorer) *Detector {
	if scorer == nil {
		scorer = outlier.NewIsolationForest(outlier.DefaultIsolationForestConfig())
	}
	return &Detector{
		scorer: scorer,
		log:    logger.Get().With("component", "linguistic", "scorer", scorer.Name()),
	}
}

// Detect collapses rows to one per article, scores the feature vectors and
// labels the most extreme Contamination share as Anomaly. Results are
// ordered by article id.
func (d *Detector) Detect(rows []FeatureRow) ([]core.LinguisticResult, error) {
	articles := Collapse(rows)
	if len(articles) == 0 {
		return nil, fmt.Errorf("linguistic detection needs at least one feature row")
	}

	codes := EncodeLabels(articles)
	points := make([][]float64, len(articles))
	for i, a := range articles {
		points[i] = []float64{codes[i], float64(a.TopicID), a.TextLength}
	}

	scores, err := d.scorer.Score(points)
	if err != nil {
		return nil, fmt.Errorf("failed to score linguistic features: %w", err)
	}
	if len(scores) != len(points) {
		return nil, fmt.Errorf("scorer %s returned %d scores for %d articles", d.scorer.Name(), len(scores), len(points))
	}
	flags := outlier.Partition(scores, Contamination)

	results := make([]core.LinguisticResult, len(articles))
	anomalies := 0
	for i, a := range articles {
		verdict := core.Normal
		if flags[i] {
			verdict = core.Anomaly
			anomalies++
		}
		results[i] = core.LinguisticResult{
			ArticleID:    a.ArticleID,
			IsAnomaly:    verdict,
			AnomalyScore: scores[i],
		}
	}

	d.log.Info("linguistic detection complete",
		"raw_rows", len(rows),
		"articles", len(articles),
		"anomalies", anomalies)
	return results, nil
}

// Collapse groups rows by article id. Categorical fields keep the first
// non-empty value seen, text length is averaged. The result is sorted by
// article id.
func Collapse(rows []FeatureRow) []FeatureRow {
	type acc struct {
		row   FeatureRow
		sum   float64
		count int
	}
	groups := make(map[int64]*acc)
	for _, r := range rows {
		g, ok := groups[r.ArticleID]
		if !ok {
			groups[r.ArticleID] = &acc{row: r, sum: r.TextLength, count: 1}
			continue
		}
		if g.row.SentimentLabel == "" {
			g.row.SentimentLabel = r.SentimentLabel
		}
		g.sum += r.TextLength
		g.count++
	}

	out := make([]FeatureRow, 0, len(groups))
	for _, g := range groups {
		row := g.row
		row.TextLength = g.sum / float64(g.count)
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArticleID < out[j].ArticleID })
	return out
}

// EncodeLabels maps each sentiment label to its index among the sorted
// distinct labels of the corpus.
func EncodeLabels(rows []FeatureRow) []float64 {
	distinct := make(map[string]struct{})
	for _, r := range rows {
		distinct[r.SentimentLabel] = struct{}{}
	}
	labels := make([]string, 0, len(distinct))
	for l := range distinct {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		index[l] = i
	}

	codes := make([]float64, len(rows))
	for i, r := range rows {
		codes[i] = float64(index[r.SentimentLabel])
	}
	return codes
}
