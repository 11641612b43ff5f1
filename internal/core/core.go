package core

import (
	"fmt"
	"time"
)

// UnknownLocation is the sentinel used when no location could be resolved.
const UnknownLocation = "Unknown"

// LocationVerdict is the three-valued outcome of the claimed/content location check.
type LocationVerdict string

const (
	LocationNormal  LocationVerdict = "Normal"
	LocationReview  LocationVerdict = "Review"
	LocationAnomaly LocationVerdict = "Anomaly"
)

// Verdict is the two-valued outcome of the temporal and linguistic detectors.
type Verdict string

const (
	Normal  Verdict = "Normal"
	Anomaly Verdict = "Anomaly"
)

// FinalLabel is the fused per-article classification.
type FinalLabel string

const (
	LabelNormal  FinalLabel = "NORMAL"
	LabelReview  FinalLabel = "REVIEW"
	LabelRedFlag FinalLabel = "RED FLAG"
)

// LocationType is the display bucket assigned by the location normalizer.
type LocationType string

const (
	LocationTypeUnknown       LocationType = "UNKNOWN"
	LocationTypeRegion        LocationType = "REGION"
	LocationTypeCityOrCountry LocationType = "CITY_OR_COUNTRY"
)

// RiskLevel is the band an organization's brand risk score falls into.
type RiskLevel string

const (
	RiskHigh   RiskLevel = "High"
	RiskMedium RiskLevel = "Medium"
	RiskLow    RiskLevel = "Low"
)

// Article is one news item as delivered by the feature-extraction stages.
type Article struct {
	ID                int64     `json:"article_id"`
	Heading           string    `json:"heading"`
	PublishedOn       time.Time `json:"publication_date"` // Zero when the source date was unparseable
	ClaimedLocation   string    `json:"claimed_location"`
	ContentLocation   string    `json:"content_location"`
	SentimentPositive float64   `json:"sentiment_positive"`
	SentimentNegative float64   `json:"sentiment_negative"`
	SentimentNeutral  float64   `json:"sentiment_neutral"`
	SentimentLabel    string    `json:"sentiment_label"`
	TopicID           int       `json:"topic_id"` // -1 means no coherent topic
	TextLength        float64   `json:"text_length"`
}

// HasDate reports whether the article carries a usable publication date.
func (a Article) HasDate() bool {
	return !a.PublishedOn.IsZero()
}

// LinguisticResult is the output of the multivariate outlier stage for one article.
type LinguisticResult struct {
	ArticleID    int64   `json:"article_id"`
	IsAnomaly    Verdict `json:"is_anomaly"`
	AnomalyScore float64 `json:"anomaly_score"` // Higher is more anomalous
}

// DailyBucket holds the per-day volume statistics. Undefined statistics are NaN.
type DailyBucket struct {
	Date            time.Time `json:"date"`
	Weekday         string    `json:"weekday"`
	ArticleCount    int       `json:"article_count"`
	RollingMean     float64   `json:"rolling_mean"`
	RollingStd      float64   `json:"rolling_std"`
	ZScore          float64   `json:"z_score"`
	TemporalAnomaly Verdict   `json:"temporal_anomaly"`
}

// FusedArticle is an article with every detector verdict and the fused label attached.
type FusedArticle struct {
	Article

	LocationClean     string          `json:"location_clean"`
	LocationType      LocationType    `json:"location_type"`
	LocationAnomaly   LocationVerdict `json:"location_anomaly"`
	TemporalAnomaly   Verdict         `json:"temporal_anomaly"`
	IsAnomaly         Verdict         `json:"is_anomaly"`
	AnomalyScore      float64         `json:"anomaly_score"`
	TotalAnomalyScore int             `json:"total_anomaly_score"`
	FinalLabel        FinalLabel      `json:"final_label"`
}

// ArticleOrganizationLink ties an article to an organization mentioned in it.
type ArticleOrganizationLink struct {
	ArticleID    int64  `json:"article_id"`
	Organization string `json:"organization"`
}

// OrganizationRisk is the aggregated reputational risk of one organization.
type OrganizationRisk struct {
	Organization   string    `json:"organization"`
	AvgArticleRisk float64   `json:"avg_article_risk"`
	ArticleCount   int       `json:"article_count"`
	BrandRiskScore float64   `json:"brand_risk_score"`
	RiskLevel      RiskLevel `json:"risk_level"`
}

// ParseLocationVerdict converts a column value into a LocationVerdict.
func ParseLocationVerdict(s string) (LocationVerdict, error) {
	switch v := LocationVerdict(s); v {
	case LocationNormal, LocationReview, LocationAnomaly:
		return v, nil
	}
	return "", fmt.Errorf("invalid location verdict %q", s)
}

// ParseVerdict converts a column value into a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch v := Verdict(s); v {
	case Normal, Anomaly:
		return v, nil
	}
	return "", fmt.Errorf("invalid verdict %q", s)
}

// ParseFinalLabel converts a column value into a FinalLabel.
func ParseFinalLabel(s string) (FinalLabel, error) {
	switch l := FinalLabel(s); l {
	case LabelNormal, LabelReview, LabelRedFlag:
		return l, nil
	}
	return "", fmt.Errorf("invalid final label %q", s)
}
