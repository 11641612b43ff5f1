package evaluation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrisk/internal/core"
)

func TestROCAUC(t *testing.T) {
	assert.InDelta(t, 1.0, ROCAUC([]bool{false, false, true, true}, []float64{0.1, 0.2, 0.8, 0.9}), 1e-12)
	assert.InDelta(t, 0.0, ROCAUC([]bool{true, true, false, false}, []float64{0.1, 0.2, 0.8, 0.9}), 1e-12)
	assert.InDelta(t, 0.75, ROCAUC([]bool{false, true, false, true}, []float64{0.1, 0.35, 0.4, 0.8}), 1e-12)
	assert.InDelta(t, 0.5, ROCAUC([]bool{false, true}, []float64{0.5, 0.5}), 1e-12, "ties count half")
	assert.True(t, math.IsNaN(ROCAUC([]bool{true, true}, []float64{0.1, 0.2})))
}

func TestAveragePrecision(t *testing.T) {
	// ranking: 0.8(P) 0.4(N) 0.35(P) 0.1(N)
	got := AveragePrecision([]bool{false, true, false, true}, []float64{0.1, 0.35, 0.4, 0.8})
	assert.InDelta(t, 0.5*1+0.5*(2.0/3.0), got, 1e-12)

	// a single tied threshold collapses to the base rate
	got = AveragePrecision([]bool{true, false, false, false}, []float64{1, 1, 1, 1})
	assert.InDelta(t, 0.25, got, 1e-12)

	assert.True(t, math.IsNaN(AveragePrecision([]bool{false}, []float64{0.3})))
}

func TestConfusion(t *testing.T) {
	c := NewConfusion(
		[]bool{true, true, false, false, true},
		[]bool{true, false, true, false, true},
	)
	assert.Equal(t, Confusion{TruePositives: 2, FalsePositives: 1, FalseNegatives: 1, TrueNegatives: 1}, c)
	assert.InDelta(t, 2.0/3.0, c.Precision(), 1e-12)
	assert.InDelta(t, 2.0/3.0, c.Recall(), 1e-12)
	assert.InDelta(t, 2.0/3.0, c.F1(), 1e-12)

	empty := NewConfusion([]bool{false}, []bool{false})
	assert.Equal(t, 0.0, empty.Precision())
	assert.Equal(t, 0.0, empty.F1())
}

func TestRecallAtK(t *testing.T) {
	labels := []bool{true, false, true, false, true}
	scores := []float64{0.9, 0.8, 0.7, 0.1, 0.05}

	assert.InDelta(t, 1.0/3.0, RecallAtK(labels, scores, 1), 1e-12)
	assert.InDelta(t, 2.0/3.0, RecallAtK(labels, scores, 3), 1e-12)
	assert.InDelta(t, 1.0, RecallAtK(labels, scores, 50), 1e-12, "k beyond the corpus covers everything")
	assert.True(t, math.IsNaN(RecallAtK([]bool{false}, []float64{1}, 1)))
}

func article(label core.FinalLabel, ling core.Verdict, loc core.LocationVerdict, temp core.Verdict) core.FusedArticle {
	return core.FusedArticle{FinalLabel: label, IsAnomaly: ling, LocationAnomaly: loc, TemporalAnomaly: temp}
}

func TestEvaluate(t *testing.T) {
	articles := []core.FusedArticle{
		article(core.LabelRedFlag, core.Anomaly, core.LocationAnomaly, core.Anomaly),
		article(core.LabelRedFlag, core.Anomaly, core.LocationAnomaly, core.Normal),
		article(core.LabelReview, core.Anomaly, core.LocationNormal, core.Normal),
		article(core.LabelNormal, core.Normal, core.LocationReview, core.Normal),
		article(core.LabelNormal, core.Normal, core.LocationNormal, core.Normal),
	}

	summary, err := NewEvaluator().Evaluate(articles)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Evaluated)
	assert.Equal(t, 2, summary.Positives)
	assert.Equal(t, 1, summary.Excluded)
	assert.InDelta(t, 1.0, summary.ROCAUC, 1e-12)
	assert.InDelta(t, 1.0, summary.PRAUC, 1e-12)

	// only the 3/3 article clears the 0.7 threshold; 2/3 does not
	assert.Equal(t, 1, summary.Confusion.TruePositives)
	assert.Equal(t, 1, summary.Confusion.FalseNegatives)
	assert.InDelta(t, 1.0, summary.Confusion.Precision(), 1e-12)
	assert.InDelta(t, 0.5, summary.Confusion.Recall(), 1e-12)

	metrics := summary.Metrics()
	require.Len(t, metrics, 8)
	assert.Equal(t, "ROC_AUC", metrics[0].Name)
	assert.Equal(t, "Recall@200", metrics[7].Name)
	assert.InDelta(t, 1.0, metrics[5].Value, 1e-12)
}

func TestEvaluate_SingleClass(t *testing.T) {
	summary, err := NewEvaluator().Evaluate([]core.FusedArticle{
		article(core.LabelNormal, core.Normal, core.LocationNormal, core.Normal),
		article(core.LabelNormal, core.Anomaly, core.LocationNormal, core.Normal),
	})
	require.NoError(t, err)
	assert.True(t, math.IsNaN(summary.ROCAUC))
	assert.True(t, math.IsNaN(summary.PRAUC))
	assert.True(t, math.IsNaN(summary.RecallAtK[50]))
}

func TestEvaluate_NothingEligible(t *testing.T) {
	_, err := NewEvaluator().Evaluate([]core.FusedArticle{
		article(core.LabelReview, core.Anomaly, core.LocationNormal, core.Normal),
	})
	assert.Error(t, err)
}

func TestCompositeScore_IgnoresReview(t *testing.T) {
	a := article(core.LabelNormal, core.Normal, core.LocationReview, core.Anomaly)
	assert.InDelta(t, 1.0/3.0, CompositeScore(a), 1e-12)
}
