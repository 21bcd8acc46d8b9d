package render

import (
	"fmt"
	"sort"
	"strings"

	"narrative-workers/internal/intelligence/detector"
	"narrative-workers/internal/models"
)

// BuildPayload shapes the plan for its template. Story templates carry the
// frames; data templates carry chart data taken from the primary insight and
// the records behind it.
func BuildPayload(plan *models.ResponsePlan) (map[string]interface{}, error) {
	if plan == nil {
		return nil, fmt.Errorf("nil plan")
	}

	var (
		payload map[string]interface{}
		err     error
	)
	switch plan.TemplateID {
	case models.TemplateStoryFiveFrame, models.TemplateStoryCarousel:
		payload, err = storyPayload(plan)
	case models.TemplateTrendLine:
		payload, err = trendPayload(plan)
	case models.TemplateRankingBar:
		payload, err = rankingPayload(plan)
	case models.TemplateVersus:
		payload, err = versusPayload(plan)
	case models.TemplateHeroStat:
		payload = heroPayload(plan)
	default:
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, plan.TemplateID)
	}
	if err != nil {
		return nil, err
	}

	payload["template_id"] = plan.TemplateID
	if plan.RequestID != "" {
		payload["request_id"] = plan.RequestID
	}
	return payload, nil
}

func storyPayload(plan *models.ResponsePlan) (map[string]interface{}, error) {
	s := plan.Story
	if s == nil {
		return nil, fmt.Errorf("%w: %s needs a story", ErrTemplateValidationFailed, plan.TemplateID)
	}

	frames := make([]interface{}, 0, len(s.Frames))
	for _, f := range s.Frames {
		frame := map[string]interface{}{
			"type":      string(f.Type),
			"headline":  f.Headline,
			"body_text": f.BodyText,
		}
		setIf(frame, "key_metric", f.KeyMetric)
		setIf(frame, "key_metric_label", f.KeyMetricLabel)
		setIf(frame, "visual_hint", f.VisualHint)
		setIf(frame, "emphasis", f.Emphasis)
		frames = append(frames, frame)
	}

	payload := map[string]interface{}{
		"title":     s.Title,
		"subtitle":  s.Subtitle,
		"sentiment": string(s.Sentiment),
		"frames":    frames,
	}
	setIf(payload, "time_period", s.TimePeriod)
	setIf(payload, "source_attribution", s.SourceAttribution)
	if plan.TemplateID == models.TemplateStoryCarousel {
		payload["separate_images"] = true
	}
	return payload, nil
}

func trendPayload(plan *models.ResponsePlan) (map[string]interface{}, error) {
	p := plan.Primary
	if p == nil || !p.IsTrend() {
		return nil, fmt.Errorf("%w: trend_line needs a trend insight", ErrTemplateValidationFailed)
	}

	byYear := map[int][]float64{}
	var unit string
	for _, r := range plan.Records {
		if r.MetricName != p.MetricName || !strings.EqualFold(r.Region, p.Region) || !r.HasYear() {
			continue
		}
		byYear[*r.Year] = append(byYear[*r.Year], r.Value)
		if unit == "" {
			unit = r.Unit
		}
	}
	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	points := make([]interface{}, 0, len(years))
	for _, y := range years {
		points = append(points, map[string]interface{}{"year": y, "value": average(byYear[y])})
	}

	payload := map[string]interface{}{
		"title":       title(p),
		"metric_name": p.MetricName,
		"direction":   string(p.Direction),
		"points":      points,
	}
	if p.ChangePercentage != nil {
		payload["change_percentage"] = *p.ChangePercentage
	}
	setIf(payload, "region", p.Region)
	setIf(payload, "unit", unit)
	return payload, nil
}

func rankingPayload(plan *models.ResponsePlan) (map[string]interface{}, error) {
	p := plan.Primary
	if p == nil || p.Type != models.InsightRanking {
		return nil, fmt.Errorf("%w: ranking_bar needs a ranking insight", ErrTemplateValidationFailed)
	}

	byRegion := map[string][]float64{}
	for _, r := range plan.Records {
		if r.MetricName != p.MetricName || r.Region == "" {
			continue
		}
		if p.TimeRange != nil {
			if !r.HasYear() || *r.Year != p.TimeRange.To {
				continue
			}
		} else if r.HasYear() {
			continue
		}
		byRegion[r.Region] = append(byRegion[r.Region], r.Value)
	}

	type bar struct {
		label string
		value float64
	}
	bars := make([]bar, 0, len(byRegion))
	for region, values := range byRegion {
		bars = append(bars, bar{label: region, value: average(values)})
	}
	sort.Slice(bars, func(i, j int) bool {
		if bars[i].value != bars[j].value {
			return bars[i].value > bars[j].value
		}
		return bars[i].label < bars[j].label
	})

	out := make([]interface{}, 0, len(bars))
	for _, b := range bars {
		out = append(out, map[string]interface{}{"label": b.label, "value": b.value})
	}

	payload := map[string]interface{}{
		"title":       title(p),
		"metric_name": p.MetricName,
		"bars":        out,
		"year":        nil,
	}
	if p.TimeRange != nil {
		payload["year"] = p.TimeRange.To
	}
	return payload, nil
}

func versusPayload(plan *models.ResponsePlan) (map[string]interface{}, error) {
	p := plan.Primary
	if p == nil || p.Type != models.InsightComparison || p.PreviousValue == nil {
		return nil, fmt.Errorf("%w: versus needs a comparison insight", ErrTemplateValidationFailed)
	}

	other := "Baseline"
	if plan.Analysis != nil {
		for _, loc := range plan.Analysis.Locations {
			if !strings.EqualFold(loc, p.Region) {
				other = loc
				break
			}
		}
	}

	payload := map[string]interface{}{
		"title":       title(p),
		"metric_name": p.MetricName,
		"left":        map[string]interface{}{"label": p.Region, "value": p.CurrentValue},
		"right":       map[string]interface{}{"label": other, "value": *p.PreviousValue},
	}
	if p.ChangePercentage != nil {
		payload["difference_percentage"] = *p.ChangePercentage
	}
	return payload, nil
}

func heroPayload(plan *models.ResponsePlan) map[string]interface{} {
	p := plan.Primary
	if p == nil && plan.Snapshot != nil {
		s := plan.Snapshot
		label := detector.CleanMetric(s.MetricName)
		if s.Region != "" {
			label += " in " + s.Region
		}
		payload := map[string]interface{}{
			"headline": plan.Summary,
			"value":    s.Value,
			"label":    label,
		}
		setIf(payload, "context", plan.ContextSummary)
		return payload
	}
	if p == nil {
		headline := plan.Summary
		if headline == "" {
			headline = "no matching data found for this query"
		}
		return map[string]interface{}{"headline": headline, "value": nil}
	}

	payload := map[string]interface{}{
		"headline": p.Summary,
		"value":    p.CurrentValue,
		"label":    title(p),
	}
	setIf(payload, "context", plan.ContextSummary)
	return payload
}

func title(p *models.Insight) string {
	name := detector.CleanMetric(p.MetricName)
	if p.Region != "" && p.Type != models.InsightRanking {
		return name + " in " + p.Region
	}
	return name
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func setIf(m map[string]interface{}, key, value string) {
	if value != "" {
		m[key] = value
	}
}
