package detector

import (
	"fmt"
	"math"

	"narrative-workers/internal/models"
)

// trends emits one growth or decline insight per region series with at
// least two distinct years.
func (d *Detector) trends(g metricGroup) []models.Insight {
	regions, m := byRegion(g.records)
	var out []models.Insight
	for _, region := range regions {
		series := yearSeries(m[region])
		if len(series) < 2 {
			continue
		}
		if ins, ok := d.trend(g.name, region, series); ok {
			out = append(out, ins)
		}
	}
	return out
}

func (d *Detector) trend(metric, region string, series []point) (models.Insight, bool) {
	first, last := series[0], series[len(series)-1]
	if first.value == 0 {
		d.logger.Debug("trend skipped, zero baseline", map[string]interface{}{
			"metric": metric,
			"region": region,
			"year":   first.year,
		})
		return models.Insight{}, false
	}

	change := round1((last.value - first.value) / first.value * 100)
	dir := models.DirectionFlat
	switch {
	case change > 0:
		dir = models.DirectionUp
	case change < 0:
		dir = models.DirectionDown
	}
	typ := models.InsightGrowth
	if dir == models.DirectionDown {
		typ = models.InsightDecline
	}

	var supporting []models.DataRecord
	values := make([]float64, len(series))
	for i, p := range series {
		supporting = append(supporting, p.records...)
		values[i] = p.value
	}

	sentiment := d.vocab.Sentiment(metric, dir)
	magnitude := d.vocab.Magnitude(math.Abs(change))

	return models.Insight{
		Type:             typ,
		Summary:          trendSummary(metric, region, dir, change, first, last),
		Confidence:       round3(d.thresholds.TrendConfidence * d.completeness(supporting)),
		MetricName:       metric,
		CurrentValue:     last.value,
		ChangePercentage: models.Float(change),
		Direction:        dir,
		Sentiment:        sentiment,
		PreviousValue:    models.Float(first.value),
		Region:           region,
		Magnitude:        magnitude,
		Velocity:         velocity(values),
		HumanImpact:      humanImpact(metric, dir, sentiment, magnitude, change),
		TimeRange:        &models.YearSpan{From: first.year, To: last.year},
		Sources:          distinctSources(supporting),
		DataPoints:       len(supporting),
		Strength:         math.Abs(change),
	}, true
}

func trendSummary(metric, region string, dir models.Direction, change float64, first, last point) string {
	subject := CleanMetric(metric)
	if region != "" {
		subject += " in " + region
	}
	switch dir {
	case models.DirectionUp:
		return fmt.Sprintf("%s rose %.1f%% from %.1f (%d) to %.1f (%d)",
			subject, change, first.value, first.year, last.value, last.year)
	case models.DirectionDown:
		return fmt.Sprintf("%s fell %.1f%% from %.1f (%d) to %.1f (%d)",
			subject, math.Abs(change), first.value, first.year, last.value, last.year)
	default:
		return fmt.Sprintf("%s held steady at %.1f between %d and %d",
			subject, last.value, first.year, last.year)
	}
}

// velocity compares the change before and after the middle point.
func velocity(values []float64) models.Velocity {
	if len(values) < 3 {
		return models.VelocityGradual
	}
	mid := len(values) / 2
	early := math.Abs(values[mid] - values[0])
	late := math.Abs(values[len(values)-1] - values[mid])
	switch {
	case late > 1.5*early:
		return models.VelocityAccelerating
	case early > 1.5*late:
		return models.VelocityDecelerating
	default:
		return models.VelocitySteady
	}
}

var magnitudeAdverb = map[models.Magnitude]string{
	models.MagnitudeSmall:    "slightly",
	models.MagnitudeModerate: "noticeably",
	models.MagnitudeLarge:    "significantly",
	models.MagnitudeDramatic: "dramatically",
}

func humanImpact(metric string, dir models.Direction, s models.Sentiment, m models.Magnitude, change float64) string {
	name := CleanMetric(metric)
	var verb string
	switch {
	case dir == models.DirectionFlat:
		return name + " has held steady"
	case dir == models.DirectionUp && s == models.SentimentPositive:
		verb = "improved"
	case dir == models.DirectionUp:
		verb = "increased"
	case s == models.SentimentNegative:
		verb = "declined"
	default:
		verb = "decreased"
	}
	return fmt.Sprintf("%s has %s %s by %.1f%%", name, magnitudeAdverb[m], verb, math.Abs(change))
}
