package location

import (
	"log/slog"
	"sort"

	"newsrisk/internal/core"
	"newsrisk/internal/logger"
)

// Result is the location verdict and display bucket of one article.
type Result struct {
	ArticleID int64
	Verdict   core.LocationVerdict
	Clean     string
	Type      core.LocationType
}

// Stage runs the detector and the normalizer over a whole corpus.
type Stage struct {
	detector   *Detector
	normalizer *Normalizer
	log        *slog.Logger
}

// NewStage creates a location stage with its own detector and normalizer.
func NewStage() *Stage {
	return &Stage{
		detector:   NewDetector(),
		normalizer: NewNormalizer(),
		log:        logger.Get().With("component", "location"),
	}
}

// Run returns one Result per article, in input order.
func (s *Stage) Run(articles []core.Article) []Result {
	results := make([]Result, len(articles))
	counts := make(map[core.LocationVerdict]int, 3)
	for i, a := range articles {
		clean, kind := s.normalizer.Normalize(a.ContentLocation)
		verdict := s.detector.Detect(a.ClaimedLocation, a.ContentLocation)
		counts[verdict]++
		results[i] = Result{ArticleID: a.ID, Verdict: verdict, Clean: clean, Type: kind}
	}

	s.log.Info("location detection complete",
		"articles", len(articles),
		"normal", counts[core.LocationNormal],
		"review", counts[core.LocationReview],
		"anomaly", counts[core.LocationAnomaly])
	return results
}

// Summary counts normalized content locations per bucket.
type Summary struct {
	Location string
	Type     core.LocationType
	Articles int
}

// Summarize normalizes every content location and counts articles per
// (location, type) pair, most frequent first, ties by name.
func (s *Stage) Summarize(articles []core.Article) []Summary {
	type key struct {
		loc  string
		kind core.LocationType
	}
	counts := make(map[key]int)
	var order []key
	for _, a := range articles {
		clean, kind := s.normalizer.Normalize(a.ContentLocation)
		k := key{clean, kind}
		if _, ok := counts[k]; !ok {
			order = append(order, k)
		}
		counts[k]++
	}

	out := make([]Summary, len(order))
	for i, k := range order {
		out[i] = Summary{Location: k.loc, Type: k.kind, Articles: counts[k]}
	}
	sortSummaries(out)
	return out
}

func sortSummaries(rows []Summary) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Articles != rows[j].Articles {
			return rows[i].Articles > rows[j].Articles
		}
		return rows[i].Location < rows[j].Location
	})
}
