package detector

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"narrative-workers/internal/models"
)

type sample struct {
	region  string
	year    *int
	value   float64
	records []models.DataRecord
}

// anomalies scans each region's yearly series and the cross-region snapshot
// for points beyond the z-score threshold.
func (d *Detector) anomalies(g metricGroup, snap *snapshot) []models.Insight {
	var found []models.Insight

	regions, m := byRegion(g.records)
	for _, region := range regions {
		var samples []sample
		for _, p := range yearSeries(m[region]) {
			year := p.year
			samples = append(samples, sample{region: region, year: &year, value: p.value, records: p.records})
		}
		found = append(found, d.outliers(g.name, samples)...)
	}

	if snap != nil {
		var samples []sample
		for _, e := range snap.entries {
			samples = append(samples, sample{region: e.region, year: snap.year, value: e.value, records: e.records})
		}
		found = append(found, d.outliers(g.name, samples)...)
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].Strength != found[j].Strength {
			return found[i].Strength > found[j].Strength
		}
		return found[i].Summary < found[j].Summary
	})
	if limit := d.thresholds.MaxAnomaliesPerMetric; limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found
}

func (d *Detector) outliers(metric string, samples []sample) []models.Insight {
	if len(samples) < d.thresholds.AnomalyMinPoints || len(samples) < 2 {
		return nil
	}

	var sum float64
	for _, s := range samples {
		sum += s.value
	}
	avg := sum / float64(len(samples))
	var sq float64
	for _, s := range samples {
		sq += (s.value - avg) * (s.value - avg)
	}
	std := math.Sqrt(sq / float64(len(samples)))
	if std == 0 {
		return nil
	}

	name := CleanMetric(metric)
	var out []models.Insight
	for _, s := range samples {
		z := (s.value - avg) / std
		if math.Abs(z) <= d.thresholds.AnomalyZ {
			continue
		}

		dir, word, side := models.DirectionUp, "high", "above"
		if z < 0 {
			dir, word, side = models.DirectionDown, "low", "below"
		}
		var change *float64
		if avg != 0 {
			change = models.Float(round1((s.value - avg) / avg * 100))
		}
		var span *models.YearSpan
		if s.year != nil {
			span = &models.YearSpan{From: *s.year, To: *s.year}
		}

		subject := name
		if s.region != "" {
			subject += " in " + s.region
		}
		when := ""
		if s.year != nil {
			when = fmt.Sprintf(" in %d", *s.year)
		}

		out = append(out, models.Insight{
			Type: models.InsightAnomaly,
			Summary: fmt.Sprintf("%s was unusually %s at %.1f%s (%.1f standard deviations %s the mean of %.1f)",
				subject, word, s.value, when, math.Abs(z), side, avg),
			Confidence:       round3(clip(math.Abs(z)/5, 0.5, 0.9) * d.completeness(s.records)),
			MetricName:       metric,
			CurrentValue:     s.value,
			ChangePercentage: change,
			Direction:        dir,
			Sentiment:        models.SentimentNeutral,
			PreviousValue:    models.Float(avg),
			Region:           s.region,
			HumanImpact:      fmt.Sprintf("%s stands out from the usual pattern", strings.TrimSpace(subject+when)),
			TimeRange:        span,
			Sources:          distinctSources(s.records),
			DataPoints:       len(s.records),
			Strength:         math.Abs(z),
		})
	}
	return out
}

func metricMatchesTopics(metric string, topics []string) bool {
	m := strings.ToLower(metric)
	for _, t := range topics {
		if t != "" && strings.Contains(m, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
