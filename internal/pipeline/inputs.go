package pipeline

import (
	"fmt"

	"newsrisk/internal/core"
	"newsrisk/internal/linguistic"
	"newsrisk/internal/table"
	"newsrisk/internal/temporal"
)

// Stage names used in schema and conversion errors.
const (
	StageArticles = "articles"
	StageFeatures = "linguistic_features"
	StageLinks    = "organization_links"
	StageResults  = "final_anomaly_results"
)

// ArticleColumns are the required columns of the articles table. heading is
// optional.
var ArticleColumns = []string{
	"article_id",
	"publication_date",
	"claimed_location",
	"content_location",
	"sentiment_positive",
	"sentiment_negative",
	"sentiment_neutral",
	"sentiment_label",
	"topic_id",
	"text_length",
}

// FeatureColumns are the required columns of the linguistic features table.
var FeatureColumns = []string{"article_id", "sentiment_label", "topic_id", "text_length"}

// LinkColumns are the required columns of the organization link table.
var LinkColumns = []string{"article_id", "organization"}

// ResultColumns are the columns read back from final_anomaly_results.csv.
var ResultColumns = []string{
	"article_id",
	"location_anomaly",
	"temporal_anomaly",
	"is_anomaly",
	"total_anomaly_score",
	"final_label",
}

// ReadArticles loads the articles table. Unparseable dates are kept as the
// zero time; empty location cells read as Unknown.
func ReadArticles(path string, dateLayouts []string) ([]core.Article, error) {
	frame, err := table.ReadCSV(path, StageArticles)
	if err != nil {
		return nil, err
	}
	if err := frame.Require(ArticleColumns...); err != nil {
		return nil, err
	}
	return parseArticles(frame, dateLayouts)
}

func parseArticles(frame *table.Frame, dateLayouts []string) ([]core.Article, error) {
	articles := make([]core.Article, 0, frame.Len())
	for i := 0; i < frame.Len(); i++ {
		var a core.Article
		var err error

		if a.ID, err = frame.Int(i, "article_id"); err != nil {
			return nil, err
		}
		if a.SentimentPositive, err = frame.Float(i, "sentiment_positive"); err != nil {
			return nil, err
		}
		if a.SentimentNegative, err = frame.Float(i, "sentiment_negative"); err != nil {
			return nil, err
		}
		if a.SentimentNeutral, err = frame.Float(i, "sentiment_neutral"); err != nil {
			return nil, err
		}
		topic, err := frame.Int(i, "topic_id")
		if err != nil {
			return nil, err
		}
		a.TopicID = int(topic)
		if a.TextLength, err = frame.Float(i, "text_length"); err != nil {
			return nil, err
		}

		a.Heading = frame.String(i, "heading")
		a.SentimentLabel = frame.String(i, "sentiment_label")
		a.ClaimedLocation = orUnknown(frame.String(i, "claimed_location"))
		a.ContentLocation = orUnknown(frame.String(i, "content_location"))
		if t, ok := temporal.ParseDate(frame.String(i, "publication_date"), dateLayouts); ok {
			a.PublishedOn = t
		}

		articles = append(articles, a)
	}
	return articles, nil
}

// ReadFeatures loads linguistic feature rows. Several rows may share an
// article id.
func ReadFeatures(path string) ([]linguistic.FeatureRow, error) {
	frame, err := table.ReadCSV(path, StageFeatures)
	if err != nil {
		return nil, err
	}
	if err := frame.Require(FeatureColumns...); err != nil {
		return nil, err
	}

	rows := make([]linguistic.FeatureRow, 0, frame.Len())
	for i := 0; i < frame.Len(); i++ {
		id, err := frame.Int(i, "article_id")
		if err != nil {
			return nil, err
		}
		topic, err := frame.Int(i, "topic_id")
		if err != nil {
			return nil, err
		}
		length, err := frame.Float(i, "text_length")
		if err != nil {
			return nil, err
		}
		rows = append(rows, linguistic.FeatureRow{
			ArticleID:      id,
			SentimentLabel: frame.String(i, "sentiment_label"),
			TopicID:        int(topic),
			TextLength:     length,
		})
	}
	return rows, nil
}

// ReadLinks loads the article to organization link table.
func ReadLinks(path string) ([]core.ArticleOrganizationLink, error) {
	frame, err := table.ReadCSV(path, StageLinks)
	if err != nil {
		return nil, err
	}
	if err := frame.Require(LinkColumns...); err != nil {
		return nil, err
	}

	links := make([]core.ArticleOrganizationLink, 0, frame.Len())
	for i := 0; i < frame.Len(); i++ {
		id, err := frame.Int(i, "article_id")
		if err != nil {
			return nil, err
		}
		links = append(links, core.ArticleOrganizationLink{
			ArticleID:    id,
			Organization: frame.String(i, "organization"),
		})
	}
	return links, nil
}

// ReadResults loads a final_anomaly_results.csv written by a previous run.
// Verdict and label cells must hold one of their known values.
func ReadResults(path string) ([]core.FusedArticle, error) {
	frame, err := table.ReadCSV(path, StageResults)
	if err != nil {
		return nil, err
	}
	if err := frame.Require(ResultColumns...); err != nil {
		return nil, err
	}

	results := make([]core.FusedArticle, 0, frame.Len())
	for i := 0; i < frame.Len(); i++ {
		var f core.FusedArticle
		var err error

		if f.ID, err = frame.Int(i, "article_id"); err != nil {
			return nil, err
		}
		if f.LocationAnomaly, err = core.ParseLocationVerdict(frame.String(i, "location_anomaly")); err != nil {
			return nil, cellError(frame, i, err)
		}
		if f.TemporalAnomaly, err = core.ParseVerdict(frame.String(i, "temporal_anomaly")); err != nil {
			return nil, cellError(frame, i, err)
		}
		if f.IsAnomaly, err = core.ParseVerdict(frame.String(i, "is_anomaly")); err != nil {
			return nil, cellError(frame, i, err)
		}
		if f.FinalLabel, err = core.ParseFinalLabel(frame.String(i, "final_label")); err != nil {
			return nil, cellError(frame, i, err)
		}
		total, err := frame.Int(i, "total_anomaly_score")
		if err != nil {
			return nil, err
		}
		f.TotalAnomalyScore = int(total)

		if frame.Has("anomaly_score") && frame.String(i, "anomaly_score") != "" {
			if f.AnomalyScore, err = frame.Float(i, "anomaly_score"); err != nil {
				return nil, err
			}
		}
		f.Heading = frame.String(i, "heading")
		results = append(results, f)
	}
	return results, nil
}

func cellError(frame *table.Frame, i int, err error) error {
	return fmt.Errorf("%s: line %d: %w: %w", frame.Stage, i+2, err, table.ErrInvalidValue)
}

func orUnknown(s string) string {
	if s == "" {
		return core.UnknownLocation
	}
	return s
}
