package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"newsrisk/internal/brandrisk"
	"newsrisk/internal/core"
	"newsrisk/internal/fusion"
	"newsrisk/internal/linguistic"
)

// QualityGate represents a validation checkpoint between stages
type QualityGate interface {
	// Validate checks if the stage output meets its contract
	Validate(ctx context.Context) error

	// Name returns the gate name for logging
	Name() string

	// IsBlocking returns whether failure should stop the run
	IsBlocking() bool
}

// ============================================================================
// Fusion Consistency Gate
// ============================================================================

// FusionGate checks that every article was fused exactly once and that each
// total and label follow from the three verdicts.
type FusionGate struct {
	articles int
	fused    []core.FusedArticle
}

// NewFusionGate creates a fusion consistency gate
func NewFusionGate(articles int, fused []core.FusedArticle) *FusionGate {
	return &FusionGate{articles: articles, fused: fused}
}

// Name returns the gate name
func (g *FusionGate) Name() string { return "fusion_consistency" }

// IsBlocking returns whether this gate blocks the run
func (g *FusionGate) IsBlocking() bool { return true }

// Validate checks row coverage and label arithmetic
func (g *FusionGate) Validate(ctx context.Context) error {
	if len(g.fused) != g.articles {
		return fmt.Errorf("fusion produced %d rows for %d articles", len(g.fused), g.articles)
	}
	for _, a := range g.fused {
		total := fusion.Total(a.IsAnomaly, a.LocationAnomaly, a.TemporalAnomaly)
		if a.TotalAnomalyScore != total {
			return fmt.Errorf("article %d: total anomaly score %d, verdicts add up to %d", a.ID, a.TotalAnomalyScore, total)
		}
		if want := fusion.Label(total); a.FinalLabel != want {
			return fmt.Errorf("article %d: final label %q, score %d requires %q", a.ID, a.FinalLabel, total, want)
		}
	}
	return nil
}

// ============================================================================
// Brand Risk Gate
// ============================================================================

// BrandRiskGate checks the organization ranking: finite scores, bands that
// match the thresholds and the descending sort order.
type BrandRiskGate struct {
	orgs []core.OrganizationRisk
}

// NewBrandRiskGate creates a brand risk gate
func NewBrandRiskGate(orgs []core.OrganizationRisk) *BrandRiskGate {
	return &BrandRiskGate{orgs: orgs}
}

// Name returns the gate name
func (g *BrandRiskGate) Name() string { return "brand_risk_ranking" }

// IsBlocking returns whether this gate blocks the run
func (g *BrandRiskGate) IsBlocking() bool { return true }

// Validate checks every organization row and the ordering between rows
func (g *BrandRiskGate) Validate(ctx context.Context) error {
	for i, o := range g.orgs {
		if math.IsNaN(o.BrandRiskScore) || math.IsInf(o.BrandRiskScore, 0) {
			return fmt.Errorf("organization %q has a non-finite brand risk score", o.Organization)
		}
		if o.ArticleCount < 1 {
			return fmt.Errorf("organization %q has no linked articles", o.Organization)
		}
		if want := brandrisk.Band(o.BrandRiskScore); o.RiskLevel != want {
			return fmt.Errorf("organization %q: risk level %s, score %.4f requires %s", o.Organization, o.RiskLevel, o.BrandRiskScore, want)
		}
		if i == 0 {
			continue
		}
		prev := g.orgs[i-1]
		if prev.BrandRiskScore < o.BrandRiskScore ||
			(prev.BrandRiskScore == o.BrandRiskScore && prev.Organization > o.Organization) {
			return fmt.Errorf("organizations %q and %q are out of order", prev.Organization, o.Organization)
		}
	}
	return nil
}

// ============================================================================
// Contamination Gate
// ============================================================================

// ContaminationGate warns when the linguistic anomaly share drifts far from
// the contamination rate. Small or heavily tied corpora legitimately drift,
// so it never blocks.
type ContaminationGate struct {
	results   []core.LinguisticResult
	tolerance float64
}

// NewContaminationGate creates a contamination gate. tolerance is the
// allowed absolute difference between observed and expected share.
func NewContaminationGate(results []core.LinguisticResult, tolerance float64) *ContaminationGate {
	return &ContaminationGate{results: results, tolerance: tolerance}
}

// Name returns the gate name
func (g *ContaminationGate) Name() string { return "linguistic_contamination" }

// IsBlocking returns whether this gate blocks the run
func (g *ContaminationGate) IsBlocking() bool { return false }

// Validate compares the observed anomaly share with the contamination rate
func (g *ContaminationGate) Validate(ctx context.Context) error {
	if len(g.results) == 0 {
		return nil
	}
	flagged := 0
	for _, r := range g.results {
		if r.IsAnomaly == core.Anomaly {
			flagged++
		}
	}
	share := float64(flagged) / float64(len(g.results))
	if math.Abs(share-linguistic.Contamination) > g.tolerance {
		return fmt.Errorf("linguistic anomaly share %.3f is outside %.2f±%.2f", share, linguistic.Contamination, g.tolerance)
	}
	return nil
}

// ============================================================================
// Quality Gate Runner
// ============================================================================

// QualityGateRunner executes a series of quality gates
type QualityGateRunner struct {
	gates []QualityGate
	log   *slog.Logger
}

// NewQualityGateRunner creates a new gate runner
func NewQualityGateRunner(log *slog.Logger) *QualityGateRunner {
	return &QualityGateRunner{log: log}
}

// AddGate adds a quality gate to the runner
func (r *QualityGateRunner) AddGate(gate QualityGate) {
	r.gates = append(r.gates, gate)
}

// RunGates executes all gates in sequence. The first blocking failure is
// returned; non-blocking failures are logged as warnings.
func (r *QualityGateRunner) RunGates(ctx context.Context) error {
	if len(r.gates) == 0 {
		return nil
	}

	passed, warnings := 0, 0
	for _, gate := range r.gates {
		if err := gate.Validate(ctx); err != nil {
			if gate.IsBlocking() {
				r.log.Error("quality gate failed", "gate", gate.Name(), "error", err)
				return fmt.Errorf("quality gate %s: %w", gate.Name(), err)
			}
			r.log.Warn("quality gate warning", "gate", gate.Name(), "error", err)
			warnings++
			continue
		}
		passed++
	}

	r.log.Info("quality gates complete", "passed", passed, "warnings", warnings)
	return nil
}
