package pipeline

import (
	"fmt"

	"newsrisk/internal/brandrisk"
	"newsrisk/internal/fusion"
	"newsrisk/internal/linguistic"
	"newsrisk/internal/location"
	"newsrisk/internal/outlier"
	"newsrisk/internal/temporal"
)

// Scorer names accepted by NewScorer
const (
	ScorerIsolationForest  = "isolation_forest"
	ScorerCentroidDistance = "centroid_distance"
)

// NewScorer creates the named outlier scorer. forest is only used by the
// isolation forest.
func NewScorer(name string, forest outlier.IsolationForestConfig) (outlier.Scorer, error) {
	switch name {
	case "", ScorerIsolationForest:
		return outlier.NewIsolationForest(forest), nil
	case ScorerCentroidDistance:
		return outlier.NewCentroidScorer(), nil
	default:
		return nil, fmt.Errorf("unknown outlier scorer %q", name)
	}
}

// Builder helps construct a fully configured Pipeline
type Builder struct {
	config  *Config
	scorer  outlier.Scorer
	archive RunArchive
	metrics MetricsRecorder
}

// NewBuilder creates a new pipeline builder with default settings
func NewBuilder() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig sets the pipeline configuration
func (b *Builder) WithConfig(config *Config) *Builder {
	b.config = config
	return b
}

// WithScorer sets the linguistic outlier scorer
func (b *Builder) WithScorer(scorer outlier.Scorer) *Builder {
	b.scorer = scorer
	return b
}

// WithArchive enables archiving of completed runs
func (b *Builder) WithArchive(archive RunArchive) *Builder {
	b.archive = archive
	return b
}

// WithMetrics enables run metrics
func (b *Builder) WithMetrics(metrics MetricsRecorder) *Builder {
	b.metrics = metrics
	return b
}

// Build constructs a fully configured Pipeline
func (b *Builder) Build() (*Pipeline, error) {
	if b.config == nil {
		b.config = DefaultConfig()
	}
	if b.config.Workers < 1 {
		return nil, fmt.Errorf("pipeline needs at least one worker, got %d", b.config.Workers)
	}
	if b.config.ContaminationTolerance < 0 {
		return nil, fmt.Errorf("contamination tolerance must not be negative, got %v", b.config.ContaminationTolerance)
	}

	scorer := b.scorer
	if scorer == nil {
		scorer = outlier.NewIsolationForest(outlier.DefaultIsolationForestConfig())
	}

	return NewPipeline(
		location.NewStage(),
		temporal.NewDetector(),
		linguistic.NewDetector(scorer),
		fusion.NewEngine(),
		brandrisk.NewAggregator(),
		b.archive,
		b.metrics,
		scorer.Name(),
		b.config,
	), nil
}
