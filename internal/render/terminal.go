package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"newsrisk/internal/core"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boxStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	labelStyles = map[core.FinalLabel]lipgloss.Style{
		core.LabelRedFlag: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		core.LabelReview:  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		core.LabelNormal:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
	levelStyles = map[core.RiskLevel]lipgloss.Style{
		core.RiskHigh:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		core.RiskMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		core.RiskLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
)

// LabelText colours a final label for the terminal.
func LabelText(l core.FinalLabel) string {
	if s, ok := labelStyles[l]; ok {
		return s.Render(string(l))
	}
	return string(l)
}

// LevelText colours a risk level for the terminal.
func LevelText(l core.RiskLevel) string {
	if s, ok := levelStyles[l]; ok {
		return s.Render(string(l))
	}
	return string(l)
}

// Summary prints a boxed run summary followed by the top organizations.
func Summary(w io.Writer, d ReportData, topOrganizations int) error {
	counts := d.LabelCounts()

	var lines []string
	lines = append(lines, titleStyle.Render("News risk run "+shortID(d.RunID)))
	lines = append(lines, fmt.Sprintf("%d articles, %d days, %d organizations",
		len(d.Articles), len(d.Buckets), len(d.Organizations)))
	lines = append(lines, fmt.Sprintf("%s %d   %s %d   %s %d",
		LabelText(core.LabelRedFlag), counts[core.LabelRedFlag],
		LabelText(core.LabelReview), counts[core.LabelReview],
		LabelText(core.LabelNormal), counts[core.LabelNormal]))
	if undated := d.Undated(); undated > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("%d undated article(s) kept without a daily bucket", undated)))
	}

	if _, err := fmt.Fprintln(w, boxStyle.Render(strings.Join(lines, "\n"))); err != nil {
		return err
	}

	if len(d.Organizations) == 0 || topOrganizations <= 0 {
		return nil
	}
	orgs := d.Organizations
	if len(orgs) > topOrganizations {
		orgs = orgs[:topOrganizations]
	}

	table := NewTable(w, []string{"Organization", "Articles", "Avg risk", "Brand risk", "Level"})
	for _, o := range orgs {
		table.AddRow(o.Organization,
			fmt.Sprint(o.ArticleCount),
			fmt.Sprintf("%.3f", o.AvgArticleRisk),
			fmt.Sprintf("%.3f", o.BrandRiskScore),
			LevelText(o.RiskLevel))
	}
	return table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
