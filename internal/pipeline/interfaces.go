package pipeline

import (
	"context"
	"time"

	"newsrisk/internal/core"
	"newsrisk/internal/linguistic"
	"newsrisk/internal/location"
	"newsrisk/internal/store"
	"newsrisk/internal/temporal"
)

// Interfaces for the scoring stages. The concrete detectors live in their own
// packages; the pipeline only depends on these so stages can be swapped or
// faked in tests.

// LocationDetector checks claimed against content location for every article
type LocationDetector interface {
	// Run returns one verdict per article, in input order
	Run(articles []core.Article) []location.Result
}

// TemporalDetector flags daily volume spikes
type TemporalDetector interface {
	// Detect buckets dated articles per day and broadcasts each day's verdict
	// back onto its articles. Undated articles are kept as Normal.
	Detect(articles []core.Article) (*temporal.Result, error)
}

// LinguisticDetector flags multivariate outliers in the linguistic features
type LinguisticDetector interface {
	// Detect returns exactly one result per distinct article id in rows
	Detect(rows []linguistic.FeatureRow) ([]core.LinguisticResult, error)
}

// FusionEngine joins the detector outputs and assigns final labels
type FusionEngine interface {
	Run(
		articles []core.Article,
		locations []location.Result,
		temporals []temporal.ArticleVerdict,
		linguistics []core.LinguisticResult,
	) ([]core.FusedArticle, error)
}

// BrandAggregator rolls article risk up to organizations
type BrandAggregator interface {
	Aggregate(articles []core.FusedArticle, links []core.ArticleOrganizationLink) ([]core.OrganizationRisk, error)
}

// RunArchive stores completed runs. Scoring never reads from it.
type RunArchive interface {
	SaveRun(ctx context.Context, run store.Run, articles []core.FusedArticle, orgs []core.OrganizationRisk) error
}

// MetricsRecorder receives per-run gauges
type MetricsRecorder interface {
	ObserveStage(stage string, d time.Duration)
	RecordArticles(articles []core.FusedArticle, undated int)
	RecordOrganizations(orgs []core.OrganizationRisk)
	MarkSuccess(at time.Time)
	WriteTextfile(path string) error
}
