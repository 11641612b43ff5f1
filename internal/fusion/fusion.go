// Package fusion combines the location, temporal and linguistic verdicts of
// an article into a total anomaly score and a final label.
package fusion

import (
	"fmt"
	"log/slog"

	"newsrisk/internal/core"
	"newsrisk/internal/location"
	"newsrisk/internal/logger"
	"newsrisk/internal/table"
	"newsrisk/internal/temporal"
)

// Label boundaries on the total anomaly score.
const (
	ReviewScore  = 1
	RedFlagScore = 2
)

// ProfileA maps verdicts to integer flags for the final-label path. A
// location Review counts as no evidence here.
type ProfileA struct{}

// Linguistic returns 1 for an Anomaly verdict.
func (ProfileA) Linguistic(v core.Verdict) int {
	if v == core.Anomaly {
		return 1
	}
	return 0
}

// Location returns 1 only for a location Anomaly.
func (ProfileA) Location(v core.LocationVerdict) int {
	if v == core.LocationAnomaly {
		return 1
	}
	return 0
}

// Temporal returns 1 for an Anomaly verdict.
func (ProfileA) Temporal(v core.Verdict) int {
	if v == core.Anomaly {
		return 1
	}
	return 0
}

// Total sums the profile A flags of the three verdicts.
func Total(linguistic core.Verdict, loc core.LocationVerdict, temp core.Verdict) int {
	var p ProfileA
	return p.Linguistic(linguistic) + p.Location(loc) + p.Temporal(temp)
}

// Label maps a total anomaly score onto the final label.
func Label(score int) core.FinalLabel {
	switch {
	case score >= RedFlagScore:
		return core.LabelRedFlag
	case score >= ReviewScore:
		return core.LabelReview
	default:
		return core.LabelNormal
	}
}

// Signals are the three detector outputs for one article.
type Signals struct {
	Article    core.Article
	Location   location.Result
	Temporal   temporal.ArticleVerdict
	Linguistic core.LinguisticResult
}

// Fuse derives the total score and final label of one article. The label is
// always recomputed from the flags.
func Fuse(s Signals) core.FusedArticle {
	total := Total(s.Linguistic.IsAnomaly, s.Location.Verdict, s.Temporal.TemporalAnomaly)
	return core.FusedArticle{
		Article:           s.Article,
		LocationClean:     s.Location.Clean,
		LocationType:      s.Location.Type,
		LocationAnomaly:   s.Location.Verdict,
		TemporalAnomaly:   s.Temporal.TemporalAnomaly,
		IsAnomaly:         s.Linguistic.IsAnomaly,
		AnomalyScore:      s.Linguistic.AnomalyScore,
		TotalAnomalyScore: total,
		FinalLabel:        Label(total),
	}
}

// Engine joins detector outputs on article id and fuses them.
type Engine struct {
	log *slog.Logger
}

// NewEngine creates a fusion engine.
func NewEngine() *Engine {
	return &Engine{log: logger.Get().With("component", "fusion")}
}

// Run joins the three detector outputs onto the articles. Every join is 1:1
// on article id; a missing or extra row on any side aborts the run. Output
// follows article order.
func (e *Engine) Run(
	articles []core.Article,
	locations []location.Result,
	temporals []temporal.ArticleVerdict,
	linguistics []core.LinguisticResult,
) ([]core.FusedArticle, error) {
	signals := make([]Signals, len(articles))
	for i, a := range articles {
		signals[i] = Signals{Article: a}
	}

	withLocation, err := join("location_anomaly", signals, locations,
		func(r location.Result) int64 { return r.ArticleID },
		func(s Signals, r location.Result) Signals { s.Location = r; return s })
	if err != nil {
		return nil, err
	}

	withTemporal, err := join("temporal_anomaly", withLocation, temporals,
		func(r temporal.ArticleVerdict) int64 { return r.ArticleID },
		func(s Signals, r temporal.ArticleVerdict) Signals { s.Temporal = r; return s })
	if err != nil {
		return nil, err
	}

	all, err := join("linguistic_anomaly", withTemporal, linguistics,
		func(r core.LinguisticResult) int64 { return r.ArticleID },
		func(s Signals, r core.LinguisticResult) Signals { s.Linguistic = r; return s })
	if err != nil {
		return nil, err
	}

	fused := make([]core.FusedArticle, len(all))
	labels := make(map[core.FinalLabel]int, 3)
	for i, s := range all {
		fused[i] = Fuse(s)
		labels[fused[i].FinalLabel]++
	}

	e.log.Info("fusion complete",
		"articles", len(fused),
		"normal", labels[core.LabelNormal],
		"review", labels[core.LabelReview],
		"red_flag", labels[core.LabelRedFlag])
	return fused, nil
}

// join attaches one detector output per article to the partially fused
// signals.
func join[R any](stage string, left []Signals, right []R, rightKey func(R) int64, merge func(Signals, R) Signals) ([]Signals, error) {
	out, err := table.JoinOneToOne(stage, left, right,
		func(s Signals) int64 { return s.Article.ID },
		rightKey,
		merge)
	if err != nil {
		return nil, fmt.Errorf("failed to fuse %s: %w", stage, err)
	}
	return out, nil
}
