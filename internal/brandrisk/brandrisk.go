// Package brandrisk turns fused article verdicts into a confidence-weighted
// reputational risk score per organization.
package brandrisk

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"newsrisk/internal/core"
	"newsrisk/internal/logger"
	"newsrisk/internal/table"
)

// Article risk weights; they sum to 1.
const (
	LinguisticWeight = 0.35
	LocationWeight   = 0.25
	TemporalWeight   = 0.15
	SentimentWeight  = 0.25
)

// Risk band thresholds on the brand risk score.
const (
	HighThreshold   = 1.2
	MediumThreshold = 0.6
)

// ProfileB maps verdicts to flags for the brand-risk path. Unlike the
// final-label path, a location Review counts as half the evidence.
type ProfileB struct{}

// Linguistic returns 1 for an Anomaly verdict.
func (ProfileB) Linguistic(v core.Verdict) float64 {
	if v == core.Anomaly {
		return 1
	}
	return 0
}

// Location returns 1 for Anomaly, 0.5 for Review and 0 for Normal.
func (ProfileB) Location(v core.LocationVerdict) float64 {
	switch v {
	case core.LocationAnomaly:
		return 1
	case core.LocationReview:
		return 0.5
	default:
		return 0
	}
}

// Temporal returns 1 for an Anomaly verdict.
func (ProfileB) Temporal(v core.Verdict) float64 {
	if v == core.Anomaly {
		return 1
	}
	return 0
}

// ArticleRisk is the weighted per-article risk score.
func ArticleRisk(a core.FusedArticle) float64 {
	var p ProfileB
	return LinguisticWeight*p.Linguistic(a.IsAnomaly) +
		LocationWeight*p.Location(a.LocationAnomaly) +
		TemporalWeight*p.Temporal(a.TemporalAnomaly) +
		SentimentWeight*a.SentimentNegative
}

// Score weights the average article risk by ln(1 + article count).
func Score(avgRisk float64, articleCount int) float64 {
	return avgRisk * math.Log1p(float64(articleCount))
}

// Band maps a brand risk score onto its risk level.
func Band(score float64) core.RiskLevel {
	switch {
	case score >= HighThreshold:
		return core.RiskHigh
	case score >= MediumThreshold:
		return core.RiskMedium
	default:
		return core.RiskLow
	}
}

// CanonicalOrganization trims and collapses whitespace in an organization name.
func CanonicalOrganization(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// Aggregator computes organization risk from fused articles and links.
type Aggregator struct {
	log *slog.Logger
}

// NewAggregator creates a brand risk aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{log: logger.Get().With("component", "brandrisk")}
}

// Aggregate deduplicates links, attaches each link to its article and
// aggregates article risk per organization. A link to an unknown article or
// an empty organization name is an error. The result is sorted by brand risk
// score descending, ties by organization name.
func (a *Aggregator) Aggregate(articles []core.FusedArticle, links []core.ArticleOrganizationLink) ([]core.OrganizationRisk, error) {
	deduped, err := Dedupe(links)
	if err != nil {
		return nil, err
	}

	type linked struct {
		org  string
		id   int64
		risk float64
	}
	rows, err := table.Broadcast("brand_risk", deduped, articles,
		func(l core.ArticleOrganizationLink) (int64, bool) { return l.ArticleID, true },
		func(f core.FusedArticle) int64 { return f.ID },
		func(l core.ArticleOrganizationLink, f core.FusedArticle, _ bool) linked {
			return linked{org: l.Organization, id: f.ID, risk: ArticleRisk(f)}
		})
	if err != nil {
		return nil, fmt.Errorf("failed to attach links to articles: %w", err)
	}

	byOrg := make(map[string][]linked)
	for _, r := range rows {
		byOrg[r.org] = append(byOrg[r.org], r)
	}

	out := make([]core.OrganizationRisk, 0, len(byOrg))
	for org, members := range byOrg {
		// summation order is fixed so reruns are bit-identical
		sort.Slice(members, func(i, j int) bool { return members[i].id < members[j].id })
		var sum float64
		for _, m := range members {
			sum += m.risk
		}
		avg := sum / float64(len(members))
		score := Score(avg, len(members))
		out = append(out, core.OrganizationRisk{
			Organization:   org,
			AvgArticleRisk: avg,
			ArticleCount:   len(members),
			BrandRiskScore: score,
			RiskLevel:      Band(score),
		})
	}
	Sort(out)

	a.log.Info("brand risk aggregation complete",
		"links", len(links),
		"distinct_links", len(deduped),
		"organizations", len(out))
	return out, nil
}

// Dedupe canonicalizes organization names and drops repeated
// (article, organization) pairs, keeping first-seen order.
func Dedupe(links []core.ArticleOrganizationLink) ([]core.ArticleOrganizationLink, error) {
	seen := make(map[core.ArticleOrganizationLink]struct{}, len(links))
	out := make([]core.ArticleOrganizationLink, 0, len(links))
	for i, l := range links {
		l.Organization = CanonicalOrganization(l.Organization)
		if l.Organization == "" {
			return nil, fmt.Errorf("link %d for article %d has an empty organization: %w", i+1, l.ArticleID, table.ErrInvalidValue)
		}
		if _, dup := seen[l]; dup {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out, nil
}

// Sort orders organizations by brand risk score descending, then by name.
func Sort(rows []core.OrganizationRisk) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].BrandRiskScore != rows[j].BrandRiskScore {
			return rows[i].BrandRiskScore > rows[j].BrandRiskScore
		}
		return rows[i].Organization < rows[j].Organization
	})
}
