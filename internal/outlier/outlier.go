// Package outlier ranks points by multivariate outlierness. Scorers are
// interchangeable: callers only rely on "higher score means more anomalous"
// and partition the ranking with a fixed contamination rate.
package outlier

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrNoPoints is returned when a scorer is asked to score an empty set.
var ErrNoPoints = errors.New("no points to score")

// Scorer assigns every point an anomaly score; higher is more anomalous.
// Implementations must be deterministic for a given input.
type Scorer interface {
	Name() string
	Score(points [][]float64) ([]float64, error)
}

// Partition marks the most extreme contamination fraction of scores. A point
// is an outlier when its score is strictly above the (1-contamination)
// quantile, interpolated linearly between order statistics. Ties at the
// threshold stay inliers, so constant scores never produce outliers.
func Partition(scores []float64, contamination float64) []bool {
	flags := make([]bool, len(scores))
	if len(scores) == 0 || contamination <= 0 {
		return flags
	}
	threshold := Quantile(scores, 1-contamination)
	for i, s := range scores {
		flags[i] = s > threshold
	}
	return flags
}

// Quantile returns the q-th quantile of values using linear interpolation
// at position q*(n-1), numpy's default percentile. gonum's stat.Quantile
// interpolates the empirical CDF instead and places the cut elsewhere.
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	q = math.Max(0, math.Min(1, q))
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

// validate checks that points form a non-empty, rectangular, finite matrix
// and returns its dimension.
func validate(points [][]float64) (int, error) {
	if len(points) == 0 {
		return 0, ErrNoPoints
	}
	dim := len(points[0])
	if dim == 0 {
		return 0, fmt.Errorf("points have no features")
	}
	for i, p := range points {
		if len(p) != dim {
			return 0, fmt.Errorf("point %d has %d features, expected %d", i, len(p), dim)
		}
		for j, v := range p {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, fmt.Errorf("point %d feature %d is not finite", i, j)
			}
		}
	}
	return dim, nil
}
