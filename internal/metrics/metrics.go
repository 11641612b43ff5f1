// Package metrics exposes per-run scoring metrics in the Prometheus text
// format, for collection through the node exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"newsrisk/internal/core"
)

const namespace = "newsrisk"

// Recorder holds the gauges of one scoring run on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	articles          prometheus.Gauge
	undatedArticles   prometheus.Gauge
	finalLabels       *prometheus.GaugeVec
	detectorAnomalies *prometheus.GaugeVec
	organizations     *prometheus.GaugeVec
	stageDuration     *prometheus.GaugeVec
	lastSuccess       prometheus.Gauge
}

// NewRecorder creates a recorder with all run gauges registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,

		// articles is the size of the scored corpus.
		articles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "articles",
			Help:      "Number of articles scored in the last run",
		}),

		undatedArticles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "undated_articles",
			Help:      "Articles without a parseable publication date in the last run",
		}),

		finalLabels: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "final_label_articles",
			Help:      "Articles per final label in the last run",
		}, []string{"label"}),

		detectorAnomalies: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "detector_anomalies",
			Help:      "Articles flagged Anomaly by each detector in the last run",
		}, []string{"detector"}),

		organizations: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "organizations",
			Help:      "Organizations per brand risk level in the last run",
		}, []string{"risk_level"}),

		stageDuration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each pipeline stage in the last run",
		}, []string{"stage"}),

		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time at which the last run completed successfully",
		}),
	}
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveStage records how long a pipeline stage took.
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	r.stageDuration.WithLabelValues(stage).Set(d.Seconds())
}

// RecordArticles records corpus size, label distribution and per-detector
// anomaly counts.
func (r *Recorder) RecordArticles(articles []core.FusedArticle, undated int) {
	r.articles.Set(float64(len(articles)))
	r.undatedArticles.Set(float64(undated))

	labels := map[core.FinalLabel]int{core.LabelNormal: 0, core.LabelReview: 0, core.LabelRedFlag: 0}
	var location, temporal, linguistic int
	for _, a := range articles {
		labels[a.FinalLabel]++
		if a.LocationAnomaly == core.LocationAnomaly {
			location++
		}
		if a.TemporalAnomaly == core.Anomaly {
			temporal++
		}
		if a.IsAnomaly == core.Anomaly {
			linguistic++
		}
	}
	for label, n := range labels {
		r.finalLabels.WithLabelValues(string(label)).Set(float64(n))
	}
	r.detectorAnomalies.WithLabelValues("location").Set(float64(location))
	r.detectorAnomalies.WithLabelValues("temporal").Set(float64(temporal))
	r.detectorAnomalies.WithLabelValues("linguistic").Set(float64(linguistic))
}

// RecordOrganizations records how many organizations fall in each risk band.
func (r *Recorder) RecordOrganizations(orgs []core.OrganizationRisk) {
	levels := map[core.RiskLevel]int{core.RiskHigh: 0, core.RiskMedium: 0, core.RiskLow: 0}
	for _, o := range orgs {
		levels[o.RiskLevel]++
	}
	for level, n := range levels {
		r.organizations.WithLabelValues(string(level)).Set(float64(n))
	}
}

// MarkSuccess stamps the completion time of a successful run.
func (r *Recorder) MarkSuccess(at time.Time) {
	r.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile atomically writes the registry to path in the text
// exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
