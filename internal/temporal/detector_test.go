package temporal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsrisk/internal/core"
)

var day0 = time.Date(2015, 3, 1, 0, 0, 0, 0, time.UTC)

// datesForCounts returns count[i] timestamps on day i.
func datesForCounts(counts []int) []time.Time {
	var dates []time.Time
	for i, c := range counts {
		for j := 0; j < c; j++ {
			dates = append(dates, day0.AddDate(0, 0, i).Add(time.Duration(j)*time.Minute))
		}
	}
	return dates
}

func TestBuckets_SpikeIsFlagged(t *testing.T) {
	buckets := Buckets(datesForCounts([]int{10, 10, 10, 10, 10, 10, 10, 50}))
	require.Len(t, buckets, 8)

	for i := 0; i < 7; i++ {
		assert.Equal(t, core.Normal, buckets[i].TemporalAnomaly, "day %d", i+1)
	}

	spike := buckets[7]
	assert.Equal(t, 50, spike.ArticleCount)
	assert.InDelta(t, 110.0/7.0, spike.RollingMean, 1e-9)
	assert.Greater(t, spike.ZScore, ZThreshold)
	assert.Equal(t, core.Anomaly, spike.TemporalAnomaly)
}

func TestBuckets_FlatSeriesNeverFlagged(t *testing.T) {
	counts := make([]int, 10)
	for i := range counts {
		counts[i] = 10
	}
	buckets := Buckets(datesForCounts(counts))
	require.Len(t, buckets, 10)

	for i, b := range buckets {
		assert.Equal(t, core.Normal, b.TemporalAnomaly, "day %d", i+1)
		assert.True(t, math.IsNaN(b.ZScore), "zero spread leaves the z-score undefined")
	}
}

func TestBuckets_SortedAndCounted(t *testing.T) {
	dates := []time.Time{
		day0.AddDate(0, 0, 2),
		day0,
		day0.Add(5 * time.Hour),
		day0.AddDate(0, 0, 1),
	}
	buckets := Buckets(dates)
	require.Len(t, buckets, 3)

	assert.Equal(t, day0, buckets[0].Date)
	assert.Equal(t, 2, buckets[0].ArticleCount)
	assert.Equal(t, "Sunday", buckets[0].Weekday)
	assert.Equal(t, 1, buckets[1].ArticleCount)
	assert.Equal(t, 1, buckets[2].ArticleCount)
}

func TestRolling(t *testing.T) {
	means, stds := Rolling([]float64{1, 2, 3, 4, 5, 6, 7, 8, 9}, 7, 3)

	assert.True(t, math.IsNaN(means[0]))
	assert.True(t, math.IsNaN(means[1]))
	assert.True(t, math.IsNaN(stds[1]))

	assert.InDelta(t, 2.0, means[2], 1e-12)
	assert.InDelta(t, 1.0, stds[2], 1e-12)

	// window of 7 ending at index 8 covers 3..9
	assert.InDelta(t, 6.0, means[8], 1e-12)
	assert.InDelta(t, math.Sqrt(28.0/6.0), stds[8], 1e-12)
}

func TestRolling_ConstantWindowHasZeroSpread(t *testing.T) {
	means, stds := Rolling([]float64{4, 4, 4, 4}, 7, 3)

	assert.Equal(t, 4.0, means[3])
	assert.Equal(t, 0.0, stds[3])
	assert.True(t, math.IsNaN(ZScore(4, means[3], stds[3])))
}

func TestZScoreAndFlag(t *testing.T) {
	assert.True(t, math.IsNaN(ZScore(5, math.NaN(), 1)))
	assert.True(t, math.IsNaN(ZScore(5, 5, 0)))
	assert.True(t, math.IsNaN(ZScore(5, 5, math.NaN())))
	assert.InDelta(t, 2.0, ZScore(9, 5, 2), 1e-12)

	assert.Equal(t, core.Normal, Flag(math.NaN()))
	assert.Equal(t, core.Normal, Flag(ZThreshold), "threshold is exclusive")
	assert.Equal(t, core.Anomaly, Flag(ZThreshold+0.01))
	assert.Equal(t, core.Normal, Flag(-5))
}

func TestDetect_BroadcastsAndKeepsUndated(t *testing.T) {
	var articles []core.Article
	var id int64
	for i, c := range []int{10, 10, 10, 10, 10, 10, 10, 50} {
		for j := 0; j < c; j++ {
			id++
			articles = append(articles, core.Article{ID: id, PublishedOn: day0.AddDate(0, 0, i)})
		}
	}
	articles = append(articles, core.Article{ID: 999})

	result, err := NewDetector().Detect(articles)
	require.NoError(t, err)
	require.Len(t, result.Articles, len(articles), "no article is dropped")
	assert.Len(t, result.Buckets, 8)

	for i, v := range result.Articles {
		assert.Equal(t, articles[i].ID, v.ArticleID)
		if i >= 70 && v.ArticleID != 999 {
			assert.Equal(t, core.Anomaly, v.TemporalAnomaly, "articles on the spike day inherit the flag")
		} else {
			assert.Equal(t, core.Normal, v.TemporalAnomaly)
		}
	}

	undated := result.Articles[len(result.Articles)-1]
	assert.False(t, undated.Dated)
	assert.Equal(t, core.Normal, undated.TemporalAnomaly)
}

func TestParseDate(t *testing.T) {
	testCases := []struct {
		raw  string
		want time.Time
		ok   bool
	}{
		{"2015-01-02", time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{"1/2/2015", time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC), true},
		{" 2015-01-02 10:30:00 ", time.Date(2015, 1, 2, 10, 30, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
		{"2015-13-40", time.Time{}, false},
	}

	for _, tc := range testCases {
		got, ok := ParseDate(tc.raw, nil)
		assert.Equal(t, tc.ok, ok, tc.raw)
		assert.True(t, tc.want.Equal(got), "%q parsed to %v", tc.raw, got)
	}
}

func TestParseDate_CustomLayouts(t *testing.T) {
	_, ok := ParseDate("2015-01-02", []string{"1/2/2006"})
	assert.False(t, ok, "only configured layouts are tried")

	got, ok := ParseDate("02.01.2015", []string{"02.01.2006"})
	require.True(t, ok)
	assert.Equal(t, time.January, got.Month())
}
