package detector

import (
	"fmt"
	"math"

	"narrative-workers/internal/models"
)

// rankings emits the top and the bottom of a snapshot. The end the query did
// not ask for is scaled down so it never outranks the requested end.
func (d *Detector) rankings(metric string, snap *snapshot, analysis *models.QueryAnalysis) []models.Insight {
	n := len(snap.entries)
	if n < 2 {
		return nil
	}
	top, second := snap.entries[0], snap.entries[1]
	bottom, penultimate := snap.entries[n-1], snap.entries[n-2]
	spread := top.value - bottom.value

	topRel, bottomRel := 0.0, 0.0
	if spread > 0 {
		topRel = (top.value - second.value) / spread
		bottomRel = (penultimate.value - bottom.value) / spread
	}
	topConf := clip(0.5+0.45*topRel, 0.5, 0.95)
	bottomConf := clip(0.5+0.45*bottomRel, 0.5, 0.95)
	if analysis.WantsBottom() {
		topConf = math.Min(topConf, bottomConf) * 0.9
	} else {
		bottomConf = math.Min(topConf, bottomConf) * 0.9
	}

	name := CleanMetric(metric)
	var span *models.YearSpan
	if snap.year != nil {
		span = &models.YearSpan{From: *snap.year, To: *snap.year}
	}
	all := snap.records()
	factor := d.completeness(all)
	sources := distinctSources(all)

	topInsight := models.Insight{
		Type: models.InsightRanking,
		Summary: fmt.Sprintf("%s leads with %s at %.1f, while %s trails at %.1f",
			top.region, name, top.value, bottom.region, bottom.value),
		Confidence:   round3(topConf * factor),
		MetricName:   metric,
		CurrentValue: top.value,
		Direction:    models.DirectionFlat,
		Sentiment:    models.SentimentNeutral,
		Region:       top.region,
		HumanImpact: fmt.Sprintf("%s is ahead of %s by %.1f on %s",
			top.region, second.region, top.value-second.value, name),
		TimeRange:  span,
		Sources:    sources,
		DataPoints: len(all),
		Strength:   topRel,
	}
	bottomInsight := models.Insight{
		Type: models.InsightRanking,
		Summary: fmt.Sprintf("%s ranks last for %s at %.1f, behind leader %s at %.1f",
			bottom.region, name, bottom.value, top.region, top.value),
		Confidence:   round3(bottomConf * factor),
		MetricName:   metric,
		CurrentValue: bottom.value,
		Direction:    models.DirectionFlat,
		Sentiment:    models.SentimentNeutral,
		Region:       bottom.region,
		HumanImpact: fmt.Sprintf("%s trails %s by %.1f on %s",
			bottom.region, penultimate.region, penultimate.value-bottom.value, name),
		TimeRange:  span,
		Sources:    sources,
		DataPoints: len(all),
		Strength:   bottomRel,
	}
	return []models.Insight{topInsight, bottomInsight}
}

// comparisons contrasts the latest values of exactly two named locations.
func (d *Detector) comparisons(records []models.DataRecord, analysis *models.QueryAnalysis) []models.Insight {
	if len(analysis.Locations) != 2 {
		return nil
	}
	a, b := analysis.Locations[0], analysis.Locations[1]

	groups := groupByMetric(records)
	var matching []metricGroup
	for _, g := range groups {
		if metricMatchesTopics(g.name, analysis.Topics) {
			matching = append(matching, g)
		}
	}
	if len(matching) > 0 {
		groups = matching
	}

	var out []models.Insight
	for _, g := range groups {
		ra, rb := regionRecords(g.records, a), regionRecords(g.records, b)
		if len(ra) == 0 || len(rb) == 0 {
			continue
		}
		out = append(out, d.comparison(g.name, a, b, ra, rb))
	}
	return out
}

func (d *Detector) comparison(metric, a, b string, ra, rb []models.DataRecord) models.Insight {
	va, ya, sa := latestValue(ra)
	vb, yb, sb := latestValue(rb)
	supporting := append(append([]models.DataRecord(nil), sa...), sb...)

	dir := models.DirectionFlat
	switch {
	case va > vb:
		dir = models.DirectionUp
	case va < vb:
		dir = models.DirectionDown
	}

	var change *float64
	strength := math.Abs(va - vb)
	if vb != 0 {
		change = models.Float(round1((va - vb) / vb * 100))
		strength = math.Abs(*change)
	}

	name := CleanMetric(metric)
	summary := fmt.Sprintf("%s: %s at %.1f against %s at %.1f", name, a, va, b, vb)
	if change != nil {
		relation := "higher"
		if *change < 0 {
			relation = "lower"
		}
		summary += fmt.Sprintf(", %.1f%% %s", math.Abs(*change), relation)
	}

	var impact string
	switch dir {
	case models.DirectionUp:
		impact = fmt.Sprintf("%s is ahead of %s on %s by %.1f", a, b, name, va-vb)
	case models.DirectionDown:
		impact = fmt.Sprintf("%s is behind %s on %s by %.1f", a, b, name, vb-va)
	default:
		impact = fmt.Sprintf("%s and %s are level on %s", a, b, name)
	}

	return models.Insight{
		Type:             models.InsightComparison,
		Summary:          summary,
		Confidence:       round3(d.thresholds.ComparisonConfidence * d.completeness(supporting)),
		MetricName:       metric,
		CurrentValue:     va,
		ChangePercentage: change,
		Direction:        dir,
		Sentiment:        d.vocab.Sentiment(metric, dir),
		PreviousValue:    models.Float(vb),
		Region:           a,
		HumanImpact:      impact,
		TimeRange:        comparisonSpan(ya, yb),
		Sources:          distinctSources(supporting),
		DataPoints:       len(supporting),
		Strength:         strength,
	}
}

func comparisonSpan(ya, yb *int) *models.YearSpan {
	switch {
	case ya != nil && yb != nil:
		return &models.YearSpan{From: min(*ya, *yb), To: max(*ya, *yb)}
	case ya != nil:
		return &models.YearSpan{From: *ya, To: *ya}
	case yb != nil:
		return &models.YearSpan{From: *yb, To: *yb}
	}
	return nil
}
