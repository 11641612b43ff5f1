package evaluation

import (
	"math"
	"sort"
)

// ROCAUC is the probability that a random positive outscores a random
// negative, computed from average ranks so tied scores count half. It is NaN
// unless both classes are present.
func ROCAUC(labels []bool, scores []float64) float64 {
	positives, negatives := classCounts(labels)
	if positives == 0 || negatives == 0 {
		return math.NaN()
	}

	ranks := averageRanks(scores)
	var rankSum float64
	for i, pos := range labels {
		if pos {
			rankSum += ranks[i]
		}
	}
	p, n := float64(positives), float64(negatives)
	return (rankSum - p*(p+1)/2) / (p * n)
}

// AveragePrecision summarizes the precision-recall curve as the recall-weighted
// mean of precision at each distinct score threshold. NaN without positives
// or without negatives.
func AveragePrecision(labels []bool, scores []float64) float64 {
	positives, negatives := classCounts(labels)
	if positives == 0 || negatives == 0 {
		return math.NaN()
	}

	order := descending(scores)
	var ap, prevRecall float64
	tp, fp := 0, 0
	for i := 0; i < len(order); i++ {
		if labels[order[i]] {
			tp++
		} else {
			fp++
		}
		// only close a threshold once every tied score is consumed
		if i+1 < len(order) && scores[order[i+1]] == scores[order[i]] {
			continue
		}
		recall := float64(tp) / float64(positives)
		precision := float64(tp) / float64(tp+fp)
		ap += (recall - prevRecall) * precision
		prevRecall = recall
	}
	return ap
}

// Confusion counts binary prediction outcomes.
type Confusion struct {
	TruePositives  int
	FalsePositives int
	FalseNegatives int
	TrueNegatives  int
}

// NewConfusion tallies predictions against labels.
func NewConfusion(labels, predictions []bool) Confusion {
	var c Confusion
	for i, actual := range labels {
		switch {
		case actual && predictions[i]:
			c.TruePositives++
		case !actual && predictions[i]:
			c.FalsePositives++
		case actual:
			c.FalseNegatives++
		default:
			c.TrueNegatives++
		}
	}
	return c
}

// Precision is 0 when nothing was predicted positive.
func (c Confusion) Precision() float64 {
	return ratio(c.TruePositives, c.TruePositives+c.FalsePositives)
}

// Recall is 0 when there are no positives.
func (c Confusion) Recall() float64 {
	return ratio(c.TruePositives, c.TruePositives+c.FalseNegatives)
}

// F1 is the harmonic mean of precision and recall, 0 when both are 0.
func (c Confusion) F1() float64 {
	p, r := c.Precision(), c.Recall()
	if p+r == 0 {
		return 0
	}
	return 2 * p * r / (p + r)
}

// RecallAtK is the share of all positives found among the k highest scores.
// Tied scores keep input order. NaN without positives.
func RecallAtK(labels []bool, scores []float64, k int) float64 {
	positives, _ := classCounts(labels)
	if positives == 0 {
		return math.NaN()
	}
	order := descending(scores)
	if k > len(order) {
		k = len(order)
	}
	found := 0
	for _, i := range order[:k] {
		if labels[i] {
			found++
		}
	}
	return float64(found) / float64(positives)
}

func classCounts(labels []bool) (positives, negatives int) {
	for _, l := range labels {
		if l {
			positives++
		} else {
			negatives++
		}
	}
	return positives, negatives
}

// descending returns indices ordered by score, highest first, stable on ties.
func descending(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })
	return order
}

// averageRanks assigns 1-based ascending ranks, averaging over ties.
func averageRanks(scores []float64) []float64 {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] < scores[order[b]] })

	ranks := make([]float64, len(scores))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && scores[order[j+1]] == scores[order[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
