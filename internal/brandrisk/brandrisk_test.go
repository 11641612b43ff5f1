package brandrisk

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrisk/internal/core"
	"newsrisk/internal/table"
)

func fused(id int64, ling core.Verdict, loc core.LocationVerdict, temp core.Verdict, negative float64) core.FusedArticle {
	return core.FusedArticle{
		Article:         core.Article{ID: id, SentimentNegative: negative},
		IsAnomaly:       ling,
		LocationAnomaly: loc,
		TemporalAnomaly: temp,
	}
}

func TestArticleRisk_Example(t *testing.T) {
	a := fused(1, core.Anomaly, core.LocationAnomaly, core.Normal, 0.8)
	assert.InDelta(t, 0.80, ArticleRisk(a), 1e-12)
}

func TestProfileB_ReviewIsHalfEvidence(t *testing.T) {
	var p ProfileB
	assert.Equal(t, 1.0, p.Location(core.LocationAnomaly))
	assert.Equal(t, 0.5, p.Location(core.LocationReview))
	assert.Equal(t, 0.0, p.Location(core.LocationNormal))

	a := fused(1, core.Normal, core.LocationReview, core.Anomaly, 0)
	assert.InDelta(t, 0.25*0.5+0.15, ArticleRisk(a), 1e-12)
}

func TestBand(t *testing.T) {
	assert.Equal(t, core.RiskHigh, Band(1.2))
	assert.Equal(t, core.RiskHigh, Band(2))
	assert.Equal(t, core.RiskMedium, Band(0.6))
	assert.Equal(t, core.RiskMedium, Band(1.19))
	assert.Equal(t, core.RiskLow, Band(0.59))
	assert.Equal(t, core.RiskLow, Band(0))
}

func TestScore_Monotonic(t *testing.T) {
	for _, avg := range []float64{0.1, 0.5, 0.9} {
		prev := Score(avg, 1)
		for n := 2; n <= 50; n++ {
			s := Score(avg, n)
			assert.Greater(t, s, prev, "count %d avg %v", n, avg)
			prev = s
		}
	}
	for n := 1; n <= 10; n++ {
		assert.Greater(t, Score(0.7, n), Score(0.6, n))
	}
}

func TestAggregate_TwoArticleExample(t *testing.T) {
	articles := []core.FusedArticle{
		fused(1, core.Anomaly, core.LocationAnomaly, core.Normal, 0.8),
		fused(2, core.Anomaly, core.LocationNormal, core.Normal, 0.2),
	}
	links := []core.ArticleOrganizationLink{
		{ArticleID: 1, Organization: "Acme Corp"},
		{ArticleID: 2, Organization: " Acme   Corp "},
		{ArticleID: 1, Organization: "Acme Corp"},
	}

	got, err := NewAggregator().Aggregate(articles, links)
	require.NoError(t, err)
	require.Len(t, got, 1)

	org := got[0]
	assert.Equal(t, "Acme Corp", org.Organization)
	assert.Equal(t, 2, org.ArticleCount, "duplicate links count once")
	assert.InDelta(t, 0.60, org.AvgArticleRisk, 1e-12)
	assert.InDelta(t, 0.60*math.Log(3), org.BrandRiskScore, 1e-12)
	assert.InDelta(t, 0.659, org.BrandRiskScore, 1e-3)
	assert.Equal(t, core.RiskMedium, org.RiskLevel)
}

func TestAggregate_SortingAndIdempotence(t *testing.T) {
	articles := []core.FusedArticle{
		fused(1, core.Anomaly, core.LocationAnomaly, core.Anomaly, 0.9),
		fused(2, core.Anomaly, core.LocationAnomaly, core.Anomaly, 0.5),
		fused(3, core.Normal, core.LocationNormal, core.Normal, 0.1),
		fused(4, core.Anomaly, core.LocationAnomaly, core.Anomaly, 0.9),
	}
	links := []core.ArticleOrganizationLink{
		{ArticleID: 3, Organization: "Quiet Co"},
		{ArticleID: 1, Organization: "Hot Inc"},
		{ArticleID: 4, Organization: "Hot Inc"},
		{ArticleID: 2, Organization: "Hot Inc"},
		{ArticleID: 1, Organization: "Beta"},
		{ArticleID: 1, Organization: "Alpha"},
	}

	first, err := NewAggregator().Aggregate(articles, links)
	require.NoError(t, err)
	require.Len(t, first, 4)

	assert.Equal(t, "Hot Inc", first[0].Organization)
	assert.Equal(t, core.RiskHigh, first[0].RiskLevel)
	assert.Equal(t, "Alpha", first[1].Organization, "equal scores fall back to name order")
	assert.Equal(t, "Beta", first[2].Organization)
	assert.Equal(t, "Quiet Co", first[3].Organization)
	assert.Equal(t, core.RiskLow, first[3].RiskLevel)

	reversed := make([]core.ArticleOrganizationLink, len(links))
	for i, l := range links {
		reversed[len(links)-1-i] = l
	}
	second, err := NewAggregator().Aggregate(articles, reversed)
	require.NoError(t, err)
	assert.Equal(t, first, second, "link order does not change the output")
}

func TestAggregate_Errors(t *testing.T) {
	articles := []core.FusedArticle{fused(1, core.Normal, core.LocationNormal, core.Normal, 0)}

	_, err := NewAggregator().Aggregate(articles, []core.ArticleOrganizationLink{{ArticleID: 2, Organization: "Ghost"}})
	assert.True(t, errors.Is(err, table.ErrCardinality), "link to unknown article: %v", err)

	_, err = NewAggregator().Aggregate(articles, []core.ArticleOrganizationLink{{ArticleID: 1, Organization: "  "}})
	assert.True(t, errors.Is(err, table.ErrInvalidValue), "empty organization: %v", err)
}

func TestAggregate_NoLinks(t *testing.T) {
	got, err := NewAggregator().Aggregate(nil, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
