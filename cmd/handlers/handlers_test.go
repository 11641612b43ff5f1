package handlers

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrisk/internal/evaluation"
	"newsrisk/internal/table"
)

const resultsCSV = `article_id,location_anomaly,temporal_anomaly,is_anomaly,total_anomaly_score,final_label
1,Anomaly,Anomaly,Anomaly,3,RED FLAG
2,Anomaly,Normal,Anomaly,2,RED FLAG
3,Normal,Normal,Normal,0,NORMAL
4,Review,Normal,Normal,0,NORMAL
5,Normal,Anomaly,Normal,1,REVIEW
`

func TestRunEvaluate(t *testing.T) {
	dir := t.TempDir()
	results := filepath.Join(dir, "final_anomaly_results.csv")
	require.NoError(t, os.WriteFile(results, []byte(resultsCSV), 0644))
	summary := filepath.Join(dir, "eval", "evaluation_summary.csv")

	var out bytes.Buffer
	err := runEvaluate(&out, results, summary, evaluation.Thresholds{Prediction: 0.7, RecallAtK: []int{1, 50}})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Evaluated 4 articles (2 RED FLAG, 1 REVIEW excluded)")
	assert.Contains(t, out.String(), "ROC_AUC")

	frame, err := table.ReadCSV(summary, "evaluation_summary")
	require.NoError(t, err)
	require.NoError(t, frame.Require("metric", "value"))

	values := map[string]string{}
	for i := 0; i < frame.Len(); i++ {
		values[frame.String(i, "metric")] = frame.String(i, "value")
	}
	assert.Equal(t, "1", values["ROC_AUC"])
	assert.Equal(t, "1", values["Precision"], "only the 3/3 article clears 0.7")
	assert.Equal(t, "0.5", values["Recall"])
	assert.Equal(t, "0.5", values["Recall@1"])
	assert.Equal(t, "1", values["Recall@50"])
}

func TestRunEvaluateRejectsBadThresholds(t *testing.T) {
	var out bytes.Buffer
	err := runEvaluate(&out, "unused.csv", "unused.csv", evaluation.Thresholds{Prediction: 1.5})
	assert.Error(t, err)

	err = runEvaluate(&out, "unused.csv", "unused.csv", evaluation.Thresholds{Prediction: 0.7, RecallAtK: []int{0}})
	assert.Error(t, err)
}

func TestRunEvaluateMissingFile(t *testing.T) {
	var out bytes.Buffer
	err := runEvaluate(&out, filepath.Join(t.TempDir(), "missing.csv"), "x.csv", evaluation.DefaultThresholds())
	assert.Error(t, err)
}

func TestRunLocations(t *testing.T) {
	articles := `article_id,publication_date,claimed_location,content_location,sentiment_positive,sentiment_negative,sentiment_neutral,sentiment_label,topic_id,text_length
1,2015-01-01,India,India,0.5,0.1,0.4,positive,1,100
2,2015-01-01,India,india,0.5,0.1,0.4,positive,1,100
3,2015-01-02,India,South Asia,0.5,0.1,0.4,positive,1,100
4,2015-01-02,India,,0.5,0.1,0.4,positive,1,100
`
	path := filepath.Join(t.TempDir(), "articles.csv")
	require.NoError(t, os.WriteFile(path, []byte(articles), 0644))

	var out bytes.Buffer
	require.NoError(t, runLocations(&out, path, nil, 0))
	assert.Contains(t, out.String(), "India")
	assert.Contains(t, out.String(), "CITY_OR_COUNTRY")
	assert.Contains(t, out.String(), "REGION")
	assert.NotContains(t, out.String(), "locations shown")

	out.Reset()
	require.NoError(t, runLocations(&out, path, nil, 1))
	assert.Contains(t, out.String(), "1 of 3 locations shown")
}

func TestFormatMetric(t *testing.T) {
	assert.Equal(t, "n/a", formatMetric(math.NaN()))
	assert.Equal(t, "0.6667", formatMetric(2.0/3))
}
