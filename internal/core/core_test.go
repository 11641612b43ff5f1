package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleHasDate(t *testing.T) {
	article := Article{ID: 1}
	assert.False(t, article.HasDate())

	article.PublishedOn = time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC)
	assert.True(t, article.HasDate())
}

func TestParseLocationVerdict(t *testing.T) {
	for _, s := range []string{"Normal", "Review", "Anomaly"} {
		v, err := ParseLocationVerdict(s)
		require.NoError(t, err)
		assert.Equal(t, LocationVerdict(s), v)
	}

	_, err := ParseLocationVerdict("anomaly")
	assert.Error(t, err, "verdicts are case sensitive")
	_, err = ParseLocationVerdict("")
	assert.Error(t, err)
}

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict("Anomaly")
	require.NoError(t, err)
	assert.Equal(t, Anomaly, v)

	_, err = ParseVerdict("Review")
	assert.Error(t, err, "Review is only valid for location verdicts")
}

func TestParseFinalLabel(t *testing.T) {
	testCases := []struct {
		in      string
		want    FinalLabel
		wantErr bool
	}{
		{in: "NORMAL", want: LabelNormal},
		{in: "REVIEW", want: LabelReview},
		{in: "RED FLAG", want: LabelRedFlag},
		{in: "RED_FLAG", wantErr: true},
	}

	for _, tc := range testCases {
		got, err := ParseFinalLabel(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}
