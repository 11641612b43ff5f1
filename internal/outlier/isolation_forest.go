package outlier

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"

	"newsrisk/internal/logger"
)

// eulerGamma is the Euler-Mascheroni constant used in the harmonic approximation.
const eulerGamma = 0.5772156649015329

// IsolationForestConfig holds configuration for the isolation forest
type IsolationForestConfig struct {
	Trees      int   // Number of isolation trees
	SampleSize int   // Points drawn (without replacement) per tree
	Seed       int64 // Random seed; identical seeds give identical scores
}

// DefaultIsolationForestConfig returns the configuration used for linguistic scoring
func DefaultIsolationForestConfig() IsolationForestConfig {
	return IsolationForestConfig{
		Trees:      200,
		SampleSize: 256,
		Seed:       42,
	}
}

// IsolationForest scores points by how quickly random axis-aligned splits
// isolate them. Outliers sit on short paths.
type IsolationForest struct {
	config IsolationForestConfig
	log    *slog.Logger
}

// NewIsolationForest creates an isolation forest scorer
func NewIsolationForest(config IsolationForestConfig) *IsolationForest {
	return &IsolationForest{
		config: config,
		log:    logger.Get().With("component", "isolation_forest"),
	}
}

// Name implements Scorer.
func (f *IsolationForest) Name() string { return "isolation_forest" }

type isoNode struct {
	feature     int
	split       float64
	left, right *isoNode
	size        int // number of training points reaching a leaf
}

// Score fits the forest on points and returns 2^(-E[h(x)]/c(psi)) for each
// point, in (0, 1].
func (f *IsolationForest) Score(points [][]float64) ([]float64, error) {
	dim, err := validate(points)
	if err != nil {
		return nil, err
	}
	if f.config.Trees <= 0 || f.config.SampleSize <= 1 {
		return nil, fmt.Errorf("isolation forest needs at least one tree and a sample size above 1, got %d trees and sample size %d",
			f.config.Trees, f.config.SampleSize)
	}

	n := len(points)
	psi := f.config.SampleSize
	if psi > n {
		psi = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(psi))))
	rng := rand.New(rand.NewSource(f.config.Seed))

	trees := make([]*isoNode, f.config.Trees)
	for t := range trees {
		sample := rng.Perm(n)[:psi]
		trees[t] = buildTree(points, sample, dim, 0, heightLimit, rng)
	}

	norm := averagePathLength(psi)
	scores := make([]float64, n)
	for i, p := range points {
		var total float64
		for _, tree := range trees {
			total += pathLength(tree, p, 0)
		}
		mean := total / float64(len(trees))
		if norm == 0 {
			scores[i] = 1
			continue
		}
		scores[i] = math.Pow(2, -mean/norm)
	}

	f.log.Debug("isolation forest scored points", "points", n, "trees", len(trees), "sample_size", psi)
	return scores, nil
}

func buildTree(points [][]float64, idx []int, dim, depth, limit int, rng *rand.Rand) *isoNode {
	if depth >= limit || len(idx) <= 1 {
		return &isoNode{size: len(idx)}
	}

	// Only features that still vary within this node can split it.
	mins := make([]float64, dim)
	maxs := make([]float64, dim)
	for j := 0; j < dim; j++ {
		mins[j], maxs[j] = math.Inf(1), math.Inf(-1)
	}
	for _, i := range idx {
		for j, v := range points[i] {
			mins[j] = math.Min(mins[j], v)
			maxs[j] = math.Max(maxs[j], v)
		}
	}
	var candidates []int
	for j := 0; j < dim; j++ {
		if maxs[j] > mins[j] {
			candidates = append(candidates, j)
		}
	}
	if len(candidates) == 0 {
		return &isoNode{size: len(idx)}
	}

	feature := candidates[rng.Intn(len(candidates))]
	split := mins[feature] + rng.Float64()*(maxs[feature]-mins[feature])

	var left, right []int
	for _, i := range idx {
		if points[i][feature] < split {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &isoNode{
		feature: feature,
		split:   split,
		left:    buildTree(points, left, dim, depth+1, limit, rng),
		right:   buildTree(points, right, dim, depth+1, limit, rng),
	}
}

func pathLength(node *isoNode, p []float64, depth int) float64 {
	for node.left != nil {
		if p[node.feature] < node.split {
			node = node.left
		} else {
			node = node.right
		}
		depth++
	}
	return float64(depth) + averagePathLength(node.size)
}

// averagePathLength is c(n), the mean path length of an unsuccessful search
// in a binary search tree of n points.
func averagePathLength(n int) float64 {
	switch {
	case n <= 1:
		return 0
	case n == 2:
		return 1
	}
	fn := float64(n)
	return 2*(math.Log(fn-1)+eulerGamma) - 2*(fn-1)/fn
}
