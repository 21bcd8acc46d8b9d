// Package detector turns retrieved records into scored candidate insights.
package detector

import (
	"math"
	"sort"
	"strings"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/models"
)

type Detector struct {
	vocab      *vocabulary.Vocabulary
	thresholds vocabulary.Thresholds
	logger     logger.Logger
}

func New(vocab *vocabulary.Vocabulary, log logger.Logger) *Detector {
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	return &Detector{
		vocab:      vocab,
		thresholds: vocab.Thresholds(),
		logger:     logger.ForComponent(log, "detector"),
	}
}

// Detect returns every insight found in records, best first. analysis may be
// nil; it then reads as a general question.
func (d *Detector) Detect(records []models.DataRecord, analysis *models.QueryAnalysis) []models.Insight {
	if len(records) == 0 {
		return []models.Insight{}
	}
	if analysis == nil {
		analysis = &models.QueryAnalysis{Intent: models.IntentGeneral}
	}

	insights := d.comparisons(records, analysis)
	compared := len(insights) > 0

	for _, g := range groupByMetric(records) {
		trends := d.trends(g)
		insights = append(insights, trends...)

		// a two-location comparison replaces the ranking snapshot
		snap := latestSnapshot(g.records)
		wantRanking := analysis.Intent == models.IntentRanking ||
			analysis.Intent == models.IntentComparison ||
			len(trends) == 0
		if snap != nil && wantRanking && !compared {
			insights = append(insights, d.rankings(g.name, snap, analysis)...)
		}

		insights = append(insights, d.anomalies(g, snap)...)
	}
	if insights == nil {
		insights = []models.Insight{}
	}

	sortInsights(insights, analysis)

	d.logger.Debug("insights detected", map[string]interface{}{
		"records":  len(records),
		"insights": len(insights),
	})
	return insights
}

// SelectPrimary returns the best insight, or nil when there is none. The
// result does not depend on the order of insights.
func (d *Detector) SelectPrimary(insights []models.Insight, analysis *models.QueryAnalysis) *models.Insight {
	return SelectPrimary(insights, analysis)
}

func SelectPrimary(insights []models.Insight, analysis *models.QueryAnalysis) *models.Insight {
	if len(insights) == 0 {
		return nil
	}
	ranked := append([]models.Insight(nil), insights...)
	sortInsights(ranked, analysis)
	primary := ranked[0]
	return &primary
}

var typeOrder = map[models.InsightType]int{
	models.InsightGrowth:     0,
	models.InsightDecline:    1,
	models.InsightRanking:    2,
	models.InsightComparison: 3,
	models.InsightAnomaly:    4,
}

func matchesIntent(t models.InsightType, intent models.Intent) bool {
	switch intent {
	case models.IntentTrend:
		return t == models.InsightGrowth || t == models.InsightDecline
	case models.IntentRanking:
		return t == models.InsightRanking
	case models.IntentComparison:
		return t == models.InsightComparison
	case models.IntentAnomaly:
		return t == models.InsightAnomaly
	}
	return false
}

func sortInsights(insights []models.Insight, analysis *models.QueryAnalysis) {
	intent := models.IntentGeneral
	if analysis != nil {
		intent = analysis.Intent
	}
	sort.SliceStable(insights, func(i, j int) bool {
		a, b := insights[i], insights[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		if ma, mb := matchesIntent(a.Type, intent), matchesIntent(b.Type, intent); ma != mb {
			return ma
		}
		if typeOrder[a.Type] != typeOrder[b.Type] {
			return typeOrder[a.Type] < typeOrder[b.Type]
		}
		if a.MetricName != b.MetricName {
			return a.MetricName < b.MetricName
		}
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		return a.Summary < b.Summary
	})
}

// completeness scales confidence by how many distinct sources back an
// insight.
func (d *Detector) completeness(records []models.DataRecord) float64 {
	expected := d.thresholds.ExpectedSources
	if expected <= 0 {
		expected = 1
	}
	f := math.Min(1, float64(len(distinctSources(records)))/float64(expected))
	return math.Max(d.thresholds.CompletenessFloor, f)
}

func distinctSources(records []models.DataRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, r := range records {
		if r.Source != "" && !seen[r.Source] {
			seen[r.Source] = true
			out = append(out, r.Source)
		}
	}
	sort.Strings(out)
	return out
}

// CleanMetric turns "literacy_rate" into "Literacy Rate".
func CleanMetric(name string) string {
	words := strings.Fields(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
