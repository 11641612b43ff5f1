package outlier

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// CentroidScorer scores points by their Euclidean distance to the centroid
// after standardizing every feature. Constant features contribute nothing.
type CentroidScorer struct{}

// NewCentroidScorer creates a centroid-distance scorer
func NewCentroidScorer() *CentroidScorer { return &CentroidScorer{} }

// Name implements Scorer.
func (c *CentroidScorer) Name() string { return "centroid_distance" }

// Score implements Scorer.
func (c *CentroidScorer) Score(points [][]float64) ([]float64, error) {
	dim, err := validate(points)
	if err != nil {
		return nil, err
	}

	means := make([]float64, dim)
	stds := make([]float64, dim)
	column := make([]float64, len(points))
	for j := 0; j < dim; j++ {
		for i, p := range points {
			column[i] = p[j]
		}
		means[j], stds[j] = stat.PopMeanStdDev(column, nil)
	}

	scores := make([]float64, len(points))
	z := make([]float64, dim)
	for i, p := range points {
		floats.SubTo(z, p, means)
		for j := range z {
			if stds[j] == 0 {
				z[j] = 0
				continue
			}
			z[j] /= stds[j]
		}
		scores[i] = floats.Norm(z, 2)
	}
	return scores, nil
}
