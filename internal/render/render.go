package render

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"newsrisk/internal/core"
	"newsrisk/internal/evaluation"
)

// maxReportRows caps the article and organization sections of the report.
const maxReportRows = 20

// ReportData combines everything the run report shows.
type ReportData struct {
	RunID         string
	GeneratedAt   time.Time
	ArticlesPath  string
	LinksPath     string
	Scorer        string
	Articles      []core.FusedArticle
	Buckets       []core.DailyBucket
	Organizations []core.OrganizationRisk
	Evaluation    *evaluation.Summary // Optional
}

// LabelCounts counts articles per final label.
func (d ReportData) LabelCounts() map[core.FinalLabel]int {
	counts := map[core.FinalLabel]int{}
	for _, a := range d.Articles {
		counts[a.FinalLabel]++
	}
	return counts
}

// Undated counts articles without a usable publication date.
func (d ReportData) Undated() int {
	n := 0
	for _, a := range d.Articles {
		if !a.HasDate() {
			n++
		}
	}
	return n
}

// RedFlags returns RED FLAG articles, highest total score first, then by
// linguistic score and article id.
func (d ReportData) RedFlags() []core.FusedArticle {
	var flagged []core.FusedArticle
	for _, a := range d.Articles {
		if a.FinalLabel == core.LabelRedFlag {
			flagged = append(flagged, a)
		}
	}
	sort.SliceStable(flagged, func(i, j int) bool {
		a, b := flagged[i], flagged[j]
		if a.TotalAnomalyScore != b.TotalAnomalyScore {
			return a.TotalAnomalyScore > b.TotalAnomalyScore
		}
		if a.AnomalyScore != b.AnomalyScore {
			return a.AnomalyScore > b.AnomalyScore
		}
		return a.ID < b.ID
	})
	return flagged
}

// Markdown renders the run report.
func Markdown(d ReportData) string {
	var b strings.Builder

	b.WriteString("# News Risk Report\n\n")
	fmt.Fprintf(&b, "- **Run:** `%s`\n", d.RunID)
	fmt.Fprintf(&b, "- **Generated:** %s\n", d.GeneratedAt.UTC().Format(time.RFC3339))
	if d.ArticlesPath != "" {
		fmt.Fprintf(&b, "- **Articles:** `%s`\n", d.ArticlesPath)
	}
	if d.LinksPath != "" {
		fmt.Fprintf(&b, "- **Links:** `%s`\n", d.LinksPath)
	}
	if d.Scorer != "" {
		fmt.Fprintf(&b, "- **Linguistic scorer:** %s\n", d.Scorer)
	}
	b.WriteString("\n")

	if len(d.Articles) == 0 {
		b.WriteString("No articles were scored.\n")
		return b.String()
	}

	counts := d.LabelCounts()
	b.WriteString("## Final labels\n\n")
	b.WriteString("| Label | Articles | Share |\n|---|---:|---:|\n")
	for _, label := range []core.FinalLabel{core.LabelRedFlag, core.LabelReview, core.LabelNormal} {
		n := counts[label]
		fmt.Fprintf(&b, "| %s | %d | %.1f%% |\n", label, n, 100*float64(n)/float64(len(d.Articles)))
	}
	if undated := d.Undated(); undated > 0 {
		fmt.Fprintf(&b, "\n%d article(s) had no usable publication date and joined no daily bucket.\n", undated)
	}
	b.WriteString("\n")

	b.WriteString("## Volume spikes\n\n")
	spikes := 0
	for _, bucket := range d.Buckets {
		if bucket.TemporalAnomaly != core.Anomaly {
			continue
		}
		if spikes == 0 {
			b.WriteString("| Date | Weekday | Articles | Rolling mean | z-score |\n|---|---|---:|---:|---:|\n")
		}
		spikes++
		fmt.Fprintf(&b, "| %s | %s | %d | %s | %s |\n",
			bucket.Date.Format("2006-01-02"), bucket.Weekday, bucket.ArticleCount,
			decimal(bucket.RollingMean), decimal(bucket.ZScore))
	}
	if spikes == 0 {
		b.WriteString("No day exceeded the volume threshold.\n")
	}
	b.WriteString("\n")

	b.WriteString("## Red flags\n\n")
	flagged := d.RedFlags()
	if len(flagged) == 0 {
		b.WriteString("No article was flagged by two or more detectors.\n\n")
	} else {
		b.WriteString("| Article | Heading | Location | Temporal | Linguistic | Score |\n|---:|---|---|---|---|---:|\n")
		for _, a := range head(flagged) {
			fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %d |\n",
				a.ID, escape(a.Heading), a.LocationAnomaly, a.TemporalAnomaly, a.IsAnomaly, a.TotalAnomalyScore)
		}
		if len(flagged) > maxReportRows {
			fmt.Fprintf(&b, "\n…and %d more.\n", len(flagged)-maxReportRows)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Brand risk\n\n")
	if len(d.Organizations) == 0 {
		b.WriteString("No organization links were supplied.\n\n")
	} else {
		b.WriteString("| Organization | Articles | Avg risk | Brand risk | Level |\n|---|---:|---:|---:|---|\n")
		limit := d.Organizations
		if len(limit) > maxReportRows {
			limit = limit[:maxReportRows]
		}
		for _, o := range limit {
			fmt.Fprintf(&b, "| %s | %d | %.3f | %.3f | %s |\n",
				escape(o.Organization), o.ArticleCount, o.AvgArticleRisk, o.BrandRiskScore, o.RiskLevel)
		}
		b.WriteString("\n")
	}

	if d.Evaluation != nil {
		b.WriteString("## Evaluation\n\n")
		fmt.Fprintf(&b, "Proxy labels over %d article(s), %d REVIEW excluded.\n\n", d.Evaluation.Evaluated, d.Evaluation.Excluded)
		b.WriteString("| Metric | Value |\n|---|---:|\n")
		for _, m := range d.Evaluation.Metrics() {
			fmt.Fprintf(&b, "| %s | %s |\n", m.Name, decimal(m.Value))
		}
		b.WriteString("\n")
	}

	return b.String()
}

func head(articles []core.FusedArticle) []core.FusedArticle {
	if len(articles) > maxReportRows {
		return articles[:maxReportRows]
	}
	return articles
}

func decimal(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}

// escape keeps table cells on one line and out of the column syntax.
func escape(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
