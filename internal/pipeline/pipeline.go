package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"newsrisk/internal/core"
	"newsrisk/internal/evaluation"
	"newsrisk/internal/linguistic"
	"newsrisk/internal/location"
	"newsrisk/internal/logger"
	"newsrisk/internal/render"
	"newsrisk/internal/store"
	"newsrisk/internal/temporal"
)

// Pipeline orchestrates one batch scoring run: the three detectors run
// independently, fusion waits for all of them and brand aggregation
// consumes the fused table. Any stage error aborts the run before a single
// output file is written.
type Pipeline struct {
	// Stages
	locations  LocationDetector
	temporal   TemporalDetector
	linguistic LinguisticDetector
	fusion     FusionEngine
	brand      BrandAggregator

	// Optional sinks
	archive RunArchive
	metrics MetricsRecorder

	scorerName string
	config     *Config
	log        *slog.Logger
}

// Config holds pipeline configuration
type Config struct {
	// Processing settings
	Workers     int      // Detectors allowed to run at once (1-3)
	DateLayouts []string // Publication date layouts, tried in order

	// Output settings
	WriteReport     bool
	MetricsTextfile string

	// Quality settings
	ContaminationTolerance float64 // Allowed drift of the linguistic anomaly share
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:                3,
		DateLayouts:            temporal.DefaultDateLayouts,
		WriteReport:            true,
		ContaminationTolerance: 0.05,
	}
}

// NewPipeline creates a new pipeline with all dependencies. archive and
// metrics may be nil.
func NewPipeline(
	locations LocationDetector,
	temporalDetector TemporalDetector,
	linguisticDetector LinguisticDetector,
	fusionEngine FusionEngine,
	brand BrandAggregator,
	archive RunArchive,
	metrics MetricsRecorder,
	scorerName string,
	config *Config,
) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}

	return &Pipeline{
		locations:  locations,
		temporal:   temporalDetector,
		linguistic: linguisticDetector,
		fusion:     fusionEngine,
		brand:      brand,
		archive:    archive,
		metrics:    metrics,
		scorerName: scorerName,
		config:     config,
		log:        logger.Get().With("component", "pipeline"),
	}
}

// RunOptions configures one scoring run
type RunOptions struct {
	ArticlesPath string
	FeaturesPath string // Defaults to ArticlesPath
	LinksPath    string // Optional; without links no organization is scored
	OutputDir    string
	DryRun       bool // Score everything but commit no file and archive nothing
}

// Result contains the output of a scoring run
type Result struct {
	RunID         string
	Articles      []core.FusedArticle
	Buckets       []core.DailyBucket
	Linguistic    []core.LinguisticResult
	Organizations []core.OrganizationRisk
	Evaluation    *evaluation.Summary // nil when no article qualifies
	Files         []string
	Stats         RunStats
}

// RunStats tracks pipeline execution metrics
type RunStats struct {
	Articles       int
	Undated        int
	FeatureRows    int
	Links          int
	Organizations  int
	ProcessingTime time.Duration
	StartTime      time.Time
	EndTime        time.Time
}

// detections collects the outputs of the parallel detector stage
type detections struct {
	locations  []location.Result
	temporal   *temporal.Result
	linguistic []core.LinguisticResult
}

// Run executes the full scoring pipeline
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if opts.ArticlesPath == "" {
		return nil, errors.New("articles path is required")
	}
	if opts.FeaturesPath == "" {
		opts.FeaturesPath = opts.ArticlesPath
	}

	stats := RunStats{StartTime: time.Now()}
	runID := uuid.New().String()
	log := p.log.With("run_id", runID)

	// Step 1: Load inputs
	log.Info("step 1/7: loading inputs", "articles", opts.ArticlesPath, "features", opts.FeaturesPath, "links", opts.LinksPath)
	articles, err := ReadArticles(opts.ArticlesPath, p.config.DateLayouts)
	if err != nil {
		return nil, fmt.Errorf("failed to load articles: %w", err)
	}
	if len(articles) == 0 {
		return nil, fmt.Errorf("no articles found in %s", opts.ArticlesPath)
	}
	features, err := ReadFeatures(opts.FeaturesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load linguistic features: %w", err)
	}
	var links []core.ArticleOrganizationLink
	if opts.LinksPath != "" {
		if links, err = ReadLinks(opts.LinksPath); err != nil {
			return nil, fmt.Errorf("failed to load organization links: %w", err)
		}
	} else {
		log.Warn("no organization link table configured, brand risk will be empty")
	}

	stats.Articles = len(articles)
	stats.FeatureRows = len(features)
	stats.Links = len(links)
	for _, a := range articles {
		if !a.HasDate() {
			stats.Undated++
		}
	}
	if stats.Undated > 0 {
		log.Warn("articles without a usable publication date", "count", stats.Undated)
	}

	// Step 2: Run the independent detectors
	log.Info("step 2/7: running detectors", "workers", p.config.Workers)
	det, err := p.detect(ctx, articles, features)
	if err != nil {
		return nil, err
	}

	// Step 3: Fuse detector outputs
	log.Info("step 3/7: fusing detector outputs")
	fused, err := timed(p, "fusion", func() ([]core.FusedArticle, error) {
		return p.fusion.Run(articles, det.locations, det.temporal.Articles, det.linguistic)
	})
	if err != nil {
		return nil, fmt.Errorf("fusion failed: %w", err)
	}

	// Step 4: Aggregate brand risk
	log.Info("step 4/7: aggregating brand risk", "links", len(links))
	orgs, err := timed(p, "brand_risk", func() ([]core.OrganizationRisk, error) {
		return p.brand.Aggregate(fused, links)
	})
	if err != nil {
		return nil, fmt.Errorf("brand risk aggregation failed: %w", err)
	}
	stats.Organizations = len(orgs)

	// Step 5: Quality gates
	log.Info("step 5/7: running quality gates")
	gates := NewQualityGateRunner(log)
	gates.AddGate(NewFusionGate(len(articles), fused))
	gates.AddGate(NewBrandRiskGate(orgs))
	gates.AddGate(NewContaminationGate(det.linguistic, p.config.ContaminationTolerance))
	if err := gates.RunGates(ctx); err != nil {
		return nil, err
	}

	result := &Result{
		RunID:         runID,
		Articles:      fused,
		Buckets:       det.temporal.Buckets,
		Linguistic:    det.linguistic,
		Organizations: orgs,
	}
	if summary, err := evaluation.NewEvaluator().Evaluate(fused); err == nil {
		result.Evaluation = summary
	} else {
		log.Debug("skipping evaluation in report", "reason", err)
	}

	// Step 6: Encode every output before committing any of them
	log.Info("step 6/7: encoding outputs")
	files, err := p.encode(result, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode outputs: %w", err)
	}

	stats.EndTime = time.Now()
	stats.ProcessingTime = stats.EndTime.Sub(stats.StartTime)
	result.Stats = stats

	if opts.DryRun {
		log.Info("dry run, nothing committed", "articles", len(fused), "organizations", len(orgs))
		return result, nil
	}

	// Step 7: Commit outputs and archive the run
	log.Info("step 7/7: committing outputs", "directory", opts.OutputDir)
	if result.Files, err = Commit(opts.OutputDir, files); err != nil {
		return nil, err
	}
	p.finish(ctx, result, opts, log)

	log.Info("run complete",
		"articles", stats.Articles,
		"organizations", stats.Organizations,
		"duration", stats.ProcessingTime)
	return result, nil
}

// detect runs the three detectors concurrently. The first failure cancels
// the others and is returned.
func (p *Pipeline) detect(ctx context.Context, articles []core.Article, features []linguistic.FeatureRow) (*detections, error) {
	var det detections
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.Workers)

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		det.locations, _ = timed(p, "location", func() ([]location.Result, error) {
			return p.locations.Run(articles), nil
		})
		return nil
	})

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := timed(p, "temporal", func() (*temporal.Result, error) {
			return p.temporal.Detect(articles)
		})
		if err != nil {
			return fmt.Errorf("temporal detection failed: %w", err)
		}
		det.temporal = res
		return nil
	})

	g.Go(func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := timed(p, "linguistic", func() ([]core.LinguisticResult, error) {
			return p.linguistic.Detect(features)
		})
		if err != nil {
			return fmt.Errorf("linguistic detection failed: %w", err)
		}
		det.linguistic = res
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &det, nil
}

// encode renders every output file of a run in memory
func (p *Pipeline) encode(result *Result, opts RunOptions) ([]OutputFile, error) {
	type encoder struct {
		name string
		fn   func() ([]byte, error)
	}
	encoders := []encoder{
		{FinalResultsFile, func() ([]byte, error) { return EncodeResults(result.Articles) }},
		{DailyVolumeFile, func() ([]byte, error) { return EncodeBuckets(result.Buckets) }},
		{LinguisticScoresFile, func() ([]byte, error) { return EncodeLinguistic(result.Linguistic) }},
		{BrandRiskFile, func() ([]byte, error) { return EncodeOrganizations(result.Organizations) }},
	}

	files := make([]OutputFile, 0, len(encoders)+1)
	for _, e := range encoders {
		data, err := e.fn()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.name, err)
		}
		files = append(files, OutputFile{Name: e.name, Data: data})
	}

	if p.config.WriteReport {
		report := render.Markdown(p.ReportData(result, opts))
		files = append(files, OutputFile{Name: ReportFile, Data: []byte(report)})
	}
	return files, nil
}

// ReportData is the report view of a finished run
func (p *Pipeline) ReportData(result *Result, opts RunOptions) render.ReportData {
	return render.ReportData{
		RunID:         result.RunID,
		GeneratedAt:   time.Now(),
		ArticlesPath:  opts.ArticlesPath,
		LinksPath:     opts.LinksPath,
		Scorer:        p.scorerName,
		Articles:      result.Articles,
		Buckets:       result.Buckets,
		Organizations: result.Organizations,
		Evaluation:    result.Evaluation,
	}
}

// finish archives the run and exports metrics. Outputs are already
// committed at this point, so failures here are logged, not returned.
func (p *Pipeline) finish(ctx context.Context, result *Result, opts RunOptions, log *slog.Logger) {
	if p.archive != nil {
		run := store.Run{
			ID:                result.RunID,
			StartedAt:         result.Stats.StartTime,
			FinishedAt:        result.Stats.EndTime,
			ArticlesPath:      opts.ArticlesPath,
			FeaturesPath:      opts.FeaturesPath,
			LinksPath:         opts.LinksPath,
			Scorer:            p.scorerName,
			ArticleCount:      result.Stats.Articles,
			UndatedCount:      result.Stats.Undated,
			OrganizationCount: result.Stats.Organizations,
		}
		for _, a := range result.Articles {
			switch a.FinalLabel {
			case core.LabelNormal:
				run.NormalCount++
			case core.LabelReview:
				run.ReviewCount++
			case core.LabelRedFlag:
				run.RedFlagCount++
			}
		}
		if err := p.archive.SaveRun(ctx, run, result.Articles, result.Organizations); err != nil {
			log.Warn("failed to archive run", "error", err)
		} else {
			log.Debug("run archived")
		}
	}

	if p.metrics != nil {
		p.metrics.RecordArticles(result.Articles, result.Stats.Undated)
		p.metrics.RecordOrganizations(result.Organizations)
		p.metrics.MarkSuccess(result.Stats.EndTime)
		if p.config.MetricsTextfile != "" {
			if err := p.metrics.WriteTextfile(p.config.MetricsTextfile); err != nil {
				log.Warn("failed to write metrics textfile", "error", err)
			}
		}
	}
}

// timed runs fn and reports its duration to the metrics recorder, if any
func timed[T any](p *Pipeline, stage string, fn func() (T, error)) (T, error) {
	start := time.Now()
	out, err := fn()
	elapsed := time.Since(start)
	if p.metrics != nil {
		p.metrics.ObserveStage(stage, elapsed)
	}
	p.log.Debug("stage finished", "stage", stage, "duration", elapsed, "ok", err == nil)
	return out, err
}
