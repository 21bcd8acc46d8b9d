// Package narrator builds the five-frame story for a trend insight.
package narrator

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/intelligence/detector"
	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/models"
)

// ErrInsufficientHistory is returned when the series has fewer than two
// distinct years.
var ErrInsufficientHistory = errors.New("INSUFFICIENT_HISTORY")

type Narrator struct {
	vocab  *vocabulary.Vocabulary
	logger logger.Logger
}

func New(vocab *vocabulary.Vocabulary, log logger.Logger) *Narrator {
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	return &Narrator{vocab: vocab, logger: logger.ForComponent(log, "narrator")}
}

type yearValue struct {
	year  int
	value float64
}

// arc is everything the frame builders need.
type arc struct {
	metric    string
	name      string
	region    string
	unit      string
	points    []yearValue
	change    float64
	direction models.Direction
	sentiment models.Sentiment
	sources   []string
	insight   models.Insight
}

func (a *arc) first() yearValue { return a.points[0] }
func (a *arc) last() yearValue  { return a.points[len(a.points)-1] }

// Narrate turns insight and the records behind it into a story. Only records
// of the insight's metric (and region, when set) are used.
func (n *Narrator) Narrate(insight models.Insight, series []models.DataRecord, analysis *models.QueryAnalysis) (*models.NarrativeStory, error) {
	if analysis == nil {
		analysis = &models.QueryAnalysis{}
	}

	relevant := filterSeries(series, insight.MetricName, insight.Region)
	points := yearly(relevant)
	if len(points) < 2 {
		return nil, fmt.Errorf("%w: %s has %d distinct years", ErrInsufficientHistory, insight.MetricName, len(points))
	}

	a := &arc{
		metric:  insight.MetricName,
		name:    detector.CleanMetric(insight.MetricName),
		region:  insight.Region,
		unit:    unitFor(insight.MetricName, relevant),
		points:  points,
		sources: sources(relevant),
		insight: insight,
	}
	n.classify(a)

	story := &models.NarrativeStory{
		Title:             title(a, analysis),
		Subtitle:          subtitle(a, analysis),
		Frames:            n.frames(a),
		Domain:            analysis.DomainHint,
		Sentiment:         a.sentiment,
		TimePeriod:        fmt.Sprintf("%d - %d", a.first().year, a.last().year),
		SourceAttribution: attribution(a.sources),
		Confidence:        insight.Confidence,
	}

	n.logger.Debug("story assembled", map[string]interface{}{
		"metric": insight.MetricName,
		"title":  story.Title,
		"frames": len(story.Frames),
	})
	return story, nil
}

// classify takes direction and sentiment from a trend insight, otherwise
// from the series end points.
func (n *Narrator) classify(a *arc) {
	if a.insight.IsTrend() && a.insight.ChangePercentage != nil {
		a.change = *a.insight.ChangePercentage
		a.direction = a.insight.Direction
		a.sentiment = a.insight.Sentiment
		return
	}

	first, last := a.first().value, a.last().value
	if first != 0 {
		a.change = math.Round((last-first)/first*1000) / 10
	}
	switch {
	case last > first:
		a.direction = models.DirectionUp
	case last < first:
		a.direction = models.DirectionDown
	default:
		a.direction = models.DirectionFlat
	}
	a.sentiment = n.vocab.Sentiment(a.metric, a.direction)
}

func filterSeries(records []models.DataRecord, metric, region string) []models.DataRecord {
	var out []models.DataRecord
	for _, r := range records {
		if r.MetricName != metric {
			continue
		}
		if region != "" && !strings.EqualFold(r.Region, region) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func yearly(records []models.DataRecord) []yearValue {
	sums := map[int]float64{}
	counts := map[int]int{}
	for _, r := range records {
		if r.HasYear() {
			sums[*r.Year] += r.Value
			counts[*r.Year]++
		}
	}
	out := make([]yearValue, 0, len(sums))
	for y, s := range sums {
		out = append(out, yearValue{year: y, value: s / float64(counts[y])})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].year < out[j].year })
	return out
}

func sources(records []models.DataRecord) []string {
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

var percentWords = []string{"rate", "percent", "percentage", "literacy", "share"}

// unitFor uses the first unit on the records, else infers "%" from the
// metric name.
func unitFor(metric string, records []models.DataRecord) string {
	for _, r := range records {
		if r.Unit != "" {
			return r.Unit
		}
	}
	m := strings.ToLower(metric)
	for _, w := range percentWords {
		if strings.Contains(m, w) {
			return "%"
		}
	}
	return ""
}

func formatValue(v float64, unit string) string {
	switch unit {
	case "":
		return fmt.Sprintf("%.1f", v)
	case "%":
		return fmt.Sprintf("%.1f%%", v)
	default:
		return fmt.Sprintf("%.1f %s", v, unit)
	}
}

func attribution(sources []string) string {
	if len(sources) == 0 {
		return ""
	}
	return "Source: " + strings.Join(sources, ", ")
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

var titleNoun = map[models.Sentiment]string{
	models.SentimentPositive: "Revolution",
	models.SentimentNegative: "Decline",
	models.SentimentNeutral:  "Shift",
}

func title(a *arc, analysis *models.QueryAnalysis) string {
	topic := a.name
	if len(analysis.Topics) > 0 {
		topic = titleCase(analysis.Topics[0])
	}
	noun := titleNoun[a.sentiment]

	location := a.region
	if location == "" && len(analysis.Locations) > 0 {
		location = analysis.Locations[0]
	}
	if location == "" {
		return fmt.Sprintf("The %s %s", topic, noun)
	}
	return fmt.Sprintf("%s's %s %s", location, topic, noun)
}

func subtitle(a *arc, analysis *models.QueryAnalysis) string {
	domain := "data"
	if analysis.DomainHint != "" {
		domain = titleCase(analysis.DomainHint)
	}
	return fmt.Sprintf("%s %s story from %d to %d", article(domain), domain, a.first().year, a.last().year)
}

func article(word string) string {
	if word != "" && strings.ContainsRune("AEIOUaeiou", rune(word[0])) {
		return "An"
	}
	return "A"
}
