package narrator

import (
	"fmt"
	"math"
	"strings"

	"narrative-workers/internal/models"
)

var changeHeadline = map[models.Direction]string{
	models.DirectionUp:   "What Changed",
	models.DirectionDown: "What Slipped",
	models.DirectionFlat: "What Held Steady",
}

var consequenceHeadline = map[models.Sentiment]string{
	models.SentimentPositive: "What It Means",
	models.SentimentNegative: "Why It Matters",
	models.SentimentNeutral:  "What It Means",
}

var consequenceSuffix = map[models.Sentiment]string{
	models.SentimentPositive: "This represents progress worth celebrating.",
	models.SentimentNegative: "This trend requires attention and action.",
	models.SentimentNeutral:  "The shift is worth tracking closely.",
}

var frameHints = map[models.FrameType][2]string{
	models.FrameContext:     {"baseline_indicator", "starting_point"},
	models.FrameChange:      {"trend_arrow", "change_magnitude"},
	models.FrameEvidence:    {"data_chart", "data_points"},
	models.FrameConsequence: {"impact_icon", "human_element"},
	models.FrameImplication: {"forward_arrow", "call_to_action"},
}

// frames returns the five frames in models.FrameOrder.
func (n *Narrator) frames(a *arc) []models.NarrativeFrame {
	out := make([]models.NarrativeFrame, 0, len(models.FrameOrder))
	for _, ft := range models.FrameOrder {
		var f models.NarrativeFrame
		switch ft {
		case models.FrameContext:
			f = contextFrame(a)
		case models.FrameChange:
			f = changeFrame(a)
		case models.FrameEvidence:
			f = evidenceFrame(a)
		case models.FrameConsequence:
			f = consequenceFrame(a)
		case models.FrameImplication:
			f = implicationFrame(a)
		}
		f.Type = ft
		f.VisualHint, f.Emphasis = frameHints[ft][0], frameHints[ft][1]
		out = append(out, f)
	}
	return out
}

func (a *arc) subject() string {
	if a.region != "" {
		return a.name + " in " + a.region
	}
	return a.name
}

func contextFrame(a *arc) models.NarrativeFrame {
	first := a.first()
	return models.NarrativeFrame{
		Headline:       "Where We Started",
		BodyText:       fmt.Sprintf("In %d, %s stood at %s.", first.year, a.subject(), formatValue(first.value, a.unit)),
		KeyMetric:      formatValue(first.value, a.unit),
		KeyMetricLabel: fmt.Sprintf("%s (%d)", a.name, first.year),
	}
}

func changeFrame(a *arc) models.NarrativeFrame {
	first, last := a.first(), a.last()
	years := last.year - first.year

	var body string
	switch a.direction {
	case models.DirectionUp:
		body = fmt.Sprintf("Over %d years it rose %.1f%% to reach %s by %d.",
			years, math.Abs(a.change), formatValue(last.value, a.unit), last.year)
	case models.DirectionDown:
		body = fmt.Sprintf("Over %d years it fell %.1f%% to %s by %d.",
			years, math.Abs(a.change), formatValue(last.value, a.unit), last.year)
	default:
		body = fmt.Sprintf("Over %d years it held steady at %s through %d.",
			years, formatValue(last.value, a.unit), last.year)
	}

	return models.NarrativeFrame{
		Headline:       changeHeadline[a.direction],
		BodyText:       body,
		KeyMetric:      fmt.Sprintf("%+.1f%%", a.change),
		KeyMetricLabel: fmt.Sprintf("Change %d-%d", first.year, last.year),
	}
}

func evidenceFrame(a *arc) models.NarrativeFrame {
	var body string
	switch {
	case len(a.points) > 2:
		mid := make([]string, 0, len(a.points)-2)
		for _, p := range a.points[1 : len(a.points)-1] {
			mid = append(mid, fmt.Sprintf("%s (%d)", formatValue(p.value, a.unit), p.year))
		}
		body = "Along the way: " + strings.Join(mid, ", ") + "."
	case a.insight.Type == models.InsightComparison && a.insight.PreviousValue != nil:
		body = fmt.Sprintf("For comparison, the baseline stands at %s.", formatValue(*a.insight.PreviousValue, a.unit))
	default:
		body = fmt.Sprintf("The record covers %d and %d.", a.first().year, a.last().year)
	}
	if len(a.sources) > 0 {
		body += " Data from " + strings.Join(a.sources, ", ") + "."
	}

	return models.NarrativeFrame{
		Headline:       "The Proof",
		BodyText:       body,
		KeyMetric:      fmt.Sprintf("%d", len(a.points)),
		KeyMetricLabel: "Data points",
	}
}

func consequenceFrame(a *arc) models.NarrativeFrame {
	impact := a.insight.HumanImpact
	if impact == "" || !a.insight.IsTrend() {
		impact = fmt.Sprintf("%s moved from %s to %s",
			a.name, formatValue(a.first().value, a.unit), formatValue(a.last().value, a.unit))
	}
	return models.NarrativeFrame{
		Headline:       consequenceHeadline[a.sentiment],
		BodyText:       impact + ". " + consequenceSuffix[a.sentiment],
		KeyMetric:      formatValue(a.last().value, a.unit),
		KeyMetricLabel: fmt.Sprintf("%s (%d)", a.name, a.last().year),
	}
}

// implicationFrame never forecasts a number.
func implicationFrame(a *arc) models.NarrativeFrame {
	topic := strings.ToLower(a.name)
	var body string
	switch {
	case a.direction == models.DirectionUp && a.sentiment == models.SentimentPositive:
		body = fmt.Sprintf("If current trends continue, %s could reach new heights. Sustained effort will be key.", topic)
	case a.direction == models.DirectionDown && a.sentiment == models.SentimentNegative:
		body = fmt.Sprintf("Reversing this trend in %s will require focused intervention and resources.", topic)
	case a.direction == models.DirectionUp && a.sentiment == models.SentimentNegative:
		body = fmt.Sprintf("Addressing the rise in %s should be a priority for policymakers.", topic)
	default:
		body = fmt.Sprintf("Monitoring %s will be important to understand emerging patterns.", topic)
	}
	return models.NarrativeFrame{
		Headline: "What's Next",
		BodyText: body,
	}
}
