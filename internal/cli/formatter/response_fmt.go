package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"narrative-workers/internal/models"
)

// FormatAnalysis renders the structured reading of a query.
func FormatAnalysis(a *models.QueryAnalysis) string {
	var b strings.Builder
	b.WriteString(Header("Query Analysis"))
	b.WriteString("\n")

	rows := [][]string{
		{"Intent", fmt.Sprintf("%s (%.2f)", a.Intent, a.IntentConfidence)},
		{"Topics", list(a.Topics)},
		{"Locations", list(a.Locations)},
		{"Years", list(a.TimeReferences)},
		{"Metrics", list(a.Metrics)},
		{"Domain", orDash(a.DomainHint)},
		{"Historical", strconv.FormatBool(a.RequiresHistorical)},
		{"Comparison", strconv.FormatBool(a.RequiresComparison)},
		{"Output", string(a.PreferredOutput)},
		{"Keywords", list(a.SearchKeywords)},
	}
	if a.RankOrder != "" {
		rows = append(rows, []string{"Rank order", string(a.RankOrder)})
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "  %-11s %s\n", Dim(r[0]+":"), r[1])
	}
	return b.String()
}

// FormatResponse renders a pipeline response: the story frames in story
// mode, then the insight table and the provenance lines.
func FormatResponse(r models.Response) string {
	var b strings.Builder

	b.WriteString(Header("Answer"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s  %s %s  %s %.2f\n",
		Dim("mode:"), Bold(string(r.OutputMode)),
		Dim("template:"), Accent(r.TemplateUsed),
		Dim("confidence:"), r.Confidence)
	if r.Domain != "" {
		fmt.Fprintf(&b, "  %s %s\n", Dim("domain:"), r.Domain)
	}
	if r.Summary != "" {
		fmt.Fprintf(&b, "  %s\n", r.Summary)
	}

	if len(r.NarrativeFrames) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatFrames(r.NarrativeTitle, r.NarrativeSubtitle, r.NarrativeFrames))
	}

	if len(r.Insights) > 0 {
		b.WriteString("\n")
		b.WriteString(Header("Insights"))
		b.WriteString("\n")
		b.WriteString(FormatInsights(r.Insights))
	}

	if len(r.Suggestions) > 0 {
		b.WriteString("\n")
		b.WriteString(Header("Try asking"))
		b.WriteString("\n")
		for _, s := range r.Suggestions {
			fmt.Fprintf(&b, "  • %s\n", s)
		}
	}

	if len(r.SourcesUsed) > 0 {
		fmt.Fprintf(&b, "\n%s %s\n", Dim("sources:"), strings.Join(r.SourcesUsed, ", "))
	}
	if r.ImageID != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("image:"), r.ImageID)
	}
	fmt.Fprintf(&b, "%s %s  %s %dms\n", Dim("request:"), r.RequestID, Dim("took:"), r.ProcessingTimeMs)
	return b.String()
}

// FormatFrames renders the five story frames in order.
func FormatFrames(title, subtitle string, frames []models.NarrativeFrame) string {
	var b strings.Builder
	b.WriteString(Bold(title))
	b.WriteString("\n")
	if subtitle != "" {
		b.WriteString(Dim(subtitle))
		b.WriteString("\n")
	}
	for i, f := range frames {
		b.WriteString("\n")
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, Accent(strings.ToUpper(string(f.Type))), Bold(f.Headline))
		fmt.Fprintf(&b, "   %s\n", f.BodyText)
		if f.KeyMetric != "" {
			label := f.KeyMetricLabel
			if label == "" {
				label = "key metric"
			}
			fmt.Fprintf(&b, "   %s %s\n", Dim(label+":"), f.KeyMetric)
		}
	}
	return b.String()
}

// FormatInsights renders ranked insights as a table.
func FormatInsights(insights []models.Insight) string {
	headers := []string{"#", "Type", "Metric", "Region", "Value", "Change", "Confidence", "Sentiment"}
	rows := make([][]string, 0, len(insights))
	for i, in := range insights {
		change := "-"
		if in.ChangePercentage != nil {
			change = fmt.Sprintf("%+.1f%%", *in.ChangePercentage)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(in.Type),
			in.MetricName,
			orDash(in.Region),
			strconv.FormatFloat(in.CurrentValue, 'f', -1, 64),
			change,
			fmt.Sprintf("%.2f", in.Confidence),
			SentimentIndicator(in.Sentiment),
		})
	}
	return RenderTable(headers, rows)
}

// FormatSuggestions renders example questions for a domain.
func FormatSuggestions(domain string, suggestions []string) string {
	title := "Suggestions"
	if domain != "" {
		title += " for " + domain
	}
	var b strings.Builder
	b.WriteString(Header(title))
	b.WriteString("\n")
	if len(suggestions) == 0 {
		b.WriteString(Dim("  no suggestions"))
		b.WriteString("\n")
		return b.String()
	}
	for _, s := range suggestions {
		fmt.Fprintf(&b, "  • %s\n", s)
	}
	return b.String()
}

func list(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
