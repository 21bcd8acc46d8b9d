// Package vocabulary holds the read-only tables the pipeline matches
// against: domain keywords, the location gazetteer, metric polarity,
// suggestion lists and detector thresholds. A Vocabulary is built once at
// start-up and shared between goroutines without locking; nothing mutates it
// after construction.
package vocabulary

import (
	"strings"

	"narrative-workers/internal/models"
)

// Domain is one entry of the domain keyword table.
type Domain struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
}

// Polarity tells whether an increase in a metric is good news.
type Polarity int

const (
	PolarityUnknown Polarity = iota
	PolarityPositive
	PolarityInverse
)

// Thresholds tune the detector and the orchestrator.
type Thresholds struct {
	StoryConfidence       float64
	ExpectedSources       int
	CompletenessFloor     float64
	AnomalyZ              float64
	AnomalyMinPoints      int
	MaxAnomaliesPerMetric int
	TrendConfidence       float64
	ComparisonConfidence  float64
	MagnitudeSmall        float64
	MagnitudeModerate     float64
	MagnitudeLarge        float64
}

type Vocabulary struct {
	domains         []Domain
	locations       []string
	metricWords     []string
	positiveMetrics []string
	inverseMetrics  []string
	suggestions     map[string][]string
	keywordDomain   map[string]string
	thresholds      Thresholds
}

// Domains returns the domain table in precedence order.
func (v *Vocabulary) Domains() []Domain {
	out := make([]Domain, len(v.domains))
	for i, d := range v.domains {
		out[i] = Domain{Name: d.Name, Keywords: append([]string(nil), d.Keywords...)}
	}
	return out
}

// Locations returns the gazetteer with canonical casing.
func (v *Vocabulary) Locations() []string {
	return append([]string(nil), v.locations...)
}

func (v *Vocabulary) MetricWords() []string {
	return append([]string(nil), v.metricWords...)
}

func (v *Vocabulary) Thresholds() Thresholds {
	return v.thresholds
}

// DomainOf returns the domain a keyword belongs to, or "".
func (v *Vocabulary) DomainOf(keyword string) string {
	return v.keywordDomain[strings.ToLower(keyword)]
}

// Polarity classifies a metric name. Inverse words are checked first so
// that "unemployment" is not read as "employment".
func (v *Vocabulary) Polarity(metric string) Polarity {
	m := strings.ToLower(metric)
	for _, w := range v.inverseMetrics {
		if strings.Contains(m, w) {
			return PolarityInverse
		}
	}
	for _, w := range v.positiveMetrics {
		if strings.Contains(m, w) {
			return PolarityPositive
		}
	}
	return PolarityUnknown
}

// Sentiment maps a metric movement to good, bad or neutral news.
func (v *Vocabulary) Sentiment(metric string, dir models.Direction) models.Sentiment {
	if dir == models.DirectionFlat {
		return models.SentimentNeutral
	}
	switch v.Polarity(metric) {
	case PolarityPositive:
		if dir == models.DirectionUp {
			return models.SentimentPositive
		}
		return models.SentimentNegative
	case PolarityInverse:
		if dir == models.DirectionUp {
			return models.SentimentNegative
		}
		return models.SentimentPositive
	default:
		return models.SentimentNeutral
	}
}

// Magnitude buckets an absolute percentage change.
func (v *Vocabulary) Magnitude(absChange float64) models.Magnitude {
	t := v.thresholds
	switch {
	case absChange < t.MagnitudeSmall:
		return models.MagnitudeSmall
	case absChange < t.MagnitudeModerate:
		return models.MagnitudeModerate
	case absChange < t.MagnitudeLarge:
		return models.MagnitudeLarge
	default:
		return models.MagnitudeDramatic
	}
}

// Suggestions returns example questions for domain. Unknown domains get a
// mix of the first two from every domain, at most eight.
func (v *Vocabulary) Suggestions(domain string) []string {
	if s, ok := v.suggestions[strings.ToLower(domain)]; ok {
		return append([]string(nil), s...)
	}

	var mixed []string
	for _, d := range v.domains {
		s := v.suggestions[d.Name]
		if len(s) > 2 {
			s = s[:2]
		}
		mixed = append(mixed, s...)
	}
	if len(mixed) > 8 {
		mixed = mixed[:8]
	}
	return mixed
}

func (v *Vocabulary) index() {
	v.keywordDomain = make(map[string]string)
	for _, d := range v.domains {
		for _, k := range d.Keywords {
			k = strings.ToLower(k)
			// first domain wins on shared keywords
			if _, seen := v.keywordDomain[k]; !seen {
				v.keywordDomain[k] = d.Name
			}
		}
	}
}
