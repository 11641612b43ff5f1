// Package evaluation measures how well the composite anomaly score recovers
// the fused labels. RED FLAG articles are treated as positives and NORMAL
// articles as negatives; REVIEW articles are left out.
package evaluation

import (
	"fmt"
	"log/slog"
	"math"

	"newsrisk/internal/core"
	"newsrisk/internal/fusion"
	"newsrisk/internal/logger"
)

// Thresholds holds the evaluation settings
type Thresholds struct {
	Prediction float64 // Composite score at or above which an article is predicted positive
	RecallAtK  []int   // Cut-offs for recall@k
}

// DefaultThresholds returns the standard evaluation settings
func DefaultThresholds() Thresholds {
	return Thresholds{
		Prediction: 0.7,
		RecallAtK:  []int{50, 100, 200},
	}
}

// Metric is one named evaluation value.
type Metric struct {
	Name  string  `json:"metric"`
	Value float64 `json:"value"`
}

// Summary holds the evaluation results
type Summary struct {
	Evaluated int `json:"evaluated"` // Articles labelled RED FLAG or NORMAL
	Positives int `json:"positives"`
	Excluded  int `json:"excluded"` // REVIEW articles

	ROCAUC    float64         `json:"roc_auc"`
	PRAUC     float64         `json:"pr_auc"`
	Confusion Confusion       `json:"confusion"`
	RecallAtK map[int]float64 `json:"recall_at_k"`

	ks []int
}

// Metrics returns the summary as ordered named values. Undefined values are NaN.
func (s *Summary) Metrics() []Metric {
	metrics := []Metric{
		{"ROC_AUC", s.ROCAUC},
		{"PR_AUC", s.PRAUC},
		{"Precision", s.Confusion.Precision()},
		{"Recall", s.Confusion.Recall()},
		{"F1_score", s.Confusion.F1()},
	}
	for _, k := range s.ks {
		metrics = append(metrics, Metric{fmt.Sprintf("Recall@%d", k), s.RecallAtK[k]})
	}
	return metrics
}

// Evaluator computes proxy-label metrics over fused articles.
type Evaluator struct {
	thresholds Thresholds
	log        *slog.Logger
}

// NewEvaluator creates an evaluator with default thresholds
func NewEvaluator() *Evaluator {
	return NewEvaluatorWithThresholds(DefaultThresholds())
}

// NewEvaluatorWithThresholds creates an evaluator with custom thresholds
func NewEvaluatorWithThresholds(thresholds Thresholds) *Evaluator {
	return &Evaluator{
		thresholds: thresholds,
		log:        logger.Get().With("component", "evaluation"),
	}
}

// CompositeScore is the share of the three detectors that flagged the article.
func CompositeScore(a core.FusedArticle) float64 {
	return float64(fusion.Total(a.IsAnomaly, a.LocationAnomaly, a.TemporalAnomaly)) / 3
}

// Evaluate scores every RED FLAG and NORMAL article. It fails only when no
// article is eligible; single-class input yields NaN for the ranking metrics.
func (e *Evaluator) Evaluate(articles []core.FusedArticle) (*Summary, error) {
	var labels, predictions []bool
	var scores []float64
	excluded := 0
	for _, a := range articles {
		switch a.FinalLabel {
		case core.LabelRedFlag, core.LabelNormal:
		default:
			excluded++
			continue
		}
		score := CompositeScore(a)
		labels = append(labels, a.FinalLabel == core.LabelRedFlag)
		scores = append(scores, score)
		predictions = append(predictions, score >= e.thresholds.Prediction)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no RED FLAG or NORMAL articles to evaluate among %d", len(articles))
	}

	positives, _ := classCounts(labels)
	summary := &Summary{
		Evaluated: len(labels),
		Positives: positives,
		Excluded:  excluded,
		ROCAUC:    ROCAUC(labels, scores),
		PRAUC:     AveragePrecision(labels, scores),
		Confusion: NewConfusion(labels, predictions),
		RecallAtK: make(map[int]float64, len(e.thresholds.RecallAtK)),
		ks:        e.thresholds.RecallAtK,
	}
	for _, k := range e.thresholds.RecallAtK {
		summary.RecallAtK[k] = RecallAtK(labels, scores, k)
	}

	if math.IsNaN(summary.ROCAUC) {
		e.log.Warn("evaluation input has a single class, ranking metrics are undefined",
			"evaluated", summary.Evaluated, "positives", positives)
	}
	e.log.Info("evaluation complete",
		"evaluated", summary.Evaluated,
		"excluded", excluded,
		"roc_auc", summary.ROCAUC,
		"pr_auc", summary.PRAUC)
	return summary, nil
}
