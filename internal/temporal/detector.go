// Package temporal flags days whose article volume spikes above the trailing
// weekly baseline. The signal is volume-level: every article published on an
// anomalous day inherits the flag.
package temporal

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"newsrisk/internal/core"
	"newsrisk/internal/logger"
	"newsrisk/internal/table"
)

const (
	// WindowSize is the trailing window, in days present in the corpus.
	WindowSize = 7
	// MinPeriods is the number of observations needed before statistics are defined.
	MinPeriods = 3
	// ZThreshold is the exclusive z-score above which a day is anomalous.
	ZThreshold = 1.8
)

const dateKeyLayout = "2006-01-02"

// ArticleVerdict is the temporal flag broadcast onto one article.
type ArticleVerdict struct {
	ArticleID       int64
	TemporalAnomaly core.Verdict
	Dated           bool
}

// Result holds the per-day buckets and the per-article verdicts in input order.
type Result struct {
	Buckets  []core.DailyBucket
	Articles []ArticleVerdict
}

// Detector computes daily volume buckets and their spike verdicts.
type Detector struct {
	log *slog.Logger
}

// NewDetector creates a temporal anomaly detector.
func NewDetector() *Detector {
	return &Detector{log: logger.Get().With("component", "temporal")}
}

// Detect aggregates articles into daily buckets, flags spikes and broadcasts
// each day's verdict onto its articles. Articles without a usable date join
// no bucket and default to Normal; they are never dropped.
func (d *Detector) Detect(articles []core.Article) (*Result, error) {
	dates := make([]time.Time, 0, len(articles))
	for _, a := range articles {
		if a.HasDate() {
			dates = append(dates, a.PublishedOn)
		}
	}
	buckets := Buckets(dates)

	verdicts, err := table.Broadcast("temporal_anomaly", articles, buckets,
		func(a core.Article) (string, bool) {
			if !a.HasDate() {
				return "", false
			}
			return dayKey(a.PublishedOn), true
		},
		func(b core.DailyBucket) string { return dayKey(b.Date) },
		func(a core.Article, b core.DailyBucket, found bool) ArticleVerdict {
			if !found {
				return ArticleVerdict{ArticleID: a.ID, TemporalAnomaly: core.Normal}
			}
			return ArticleVerdict{ArticleID: a.ID, TemporalAnomaly: b.TemporalAnomaly, Dated: true}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to broadcast daily verdicts: %w", err)
	}

	anomalousDays := 0
	for _, b := range buckets {
		if b.TemporalAnomaly == core.Anomaly {
			anomalousDays++
		}
	}
	d.log.Info("temporal detection complete",
		"articles", len(articles),
		"undated", len(articles)-len(dates),
		"days", len(buckets),
		"anomalous_days", anomalousDays)

	return &Result{Buckets: buckets, Articles: verdicts}, nil
}

// Buckets counts dates per calendar day, sorts the days ascending and fills
// in the trailing statistics and verdict of every day.
func Buckets(dates []time.Time) []core.DailyBucket {
	counts := make(map[string]int)
	days := make(map[string]time.Time)
	for _, t := range dates {
		key := dayKey(t)
		counts[key]++
		days[key] = truncateDay(t)
	}

	buckets := make([]core.DailyBucket, 0, len(counts))
	for key, count := range counts {
		day := days[key]
		buckets = append(buckets, core.DailyBucket{
			Date:         day,
			Weekday:      day.Weekday().String(),
			ArticleCount: count,
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Date.Before(buckets[j].Date) })

	series := make([]float64, len(buckets))
	for i, b := range buckets {
		series[i] = float64(b.ArticleCount)
	}
	means, stds := Rolling(series, WindowSize, MinPeriods)

	for i := range buckets {
		buckets[i].RollingMean = means[i]
		buckets[i].RollingStd = stds[i]
		buckets[i].ZScore = ZScore(series[i], means[i], stds[i])
		buckets[i].TemporalAnomaly = Flag(buckets[i].ZScore)
	}
	return buckets
}

// Rolling computes the trailing mean and sample standard deviation over the
// last window values up to and including each position. Positions with fewer
// than minPeriods observations get NaN.
func Rolling(series []float64, window, minPeriods int) (means, stds []float64) {
	means = make([]float64, len(series))
	stds = make([]float64, len(series))

	for i := range series {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		values := series[start : i+1]
		if len(values) < minPeriods {
			means[i], stds[i] = math.NaN(), math.NaN()
			continue
		}

		if len(values) < 2 {
			means[i], stds[i] = stat.Mean(values, nil), math.NaN()
			continue
		}
		means[i], stds[i] = stat.MeanStdDev(values, nil)
	}
	return means, stds
}

// ZScore standardizes count against the trailing statistics. It returns NaN
// whenever the deviation is undefined (missing history or zero spread).
func ZScore(count, mean, std float64) float64 {
	if math.IsNaN(mean) || math.IsNaN(std) || std == 0 {
		return math.NaN()
	}
	return (count - mean) / std
}

// Flag turns a z-score into a verdict. An undefined z-score is Normal.
func Flag(z float64) core.Verdict {
	if !math.IsNaN(z) && z > ZThreshold {
		return core.Anomaly
	}
	return core.Normal
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}
