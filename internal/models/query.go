// internal/models/query.go
package models

import "strconv"

type Intent string

const (
	IntentFact       Intent = "fact"
	IntentTrend      Intent = "trend"
	IntentComparison Intent = "comparison"
	IntentRanking    Intent = "ranking"
	IntentAnomaly    Intent = "anomaly"
	IntentGeneral    Intent = "general"
)

type OutputMode string

const (
	OutputData  OutputMode = "data"
	OutputStory OutputMode = "story"
)

// ParseOutputMode accepts "data" or "story"; anything else is not a mode.
func ParseOutputMode(s string) (OutputMode, bool) {
	switch OutputMode(s) {
	case OutputData, OutputStory:
		return OutputMode(s), true
	}
	return "", false
}

// RankOrder is the end of a ranking a superlative query asks for.
type RankOrder string

const (
	RankTop    RankOrder = "top"
	RankBottom RankOrder = "bottom"
)

// QueryAnalysis is the structured reading of one free-text question.
type QueryAnalysis struct {
	OriginalQuery      string     `json:"original_query"`
	NormalizedQuery    string     `json:"normalized_query"`
	Intent             Intent     `json:"intent"`
	IntentConfidence   float64    `json:"intent_confidence"`
	Topics             []string   `json:"topics"`
	Locations          []string   `json:"locations"`
	TimeReferences     []string   `json:"time_references"`
	Metrics            []string   `json:"metrics"`
	DomainHint         string     `json:"domain_hint,omitempty"`
	RequiresHistorical bool       `json:"requires_historical"`
	RequiresComparison bool       `json:"requires_comparison"`
	PreferredOutput    OutputMode `json:"preferred_output"`
	RankOrder          RankOrder  `json:"rank_order,omitempty"`
	SearchKeywords     []string   `json:"search_keywords"`
}

// Years returns the time references as integers, in text order.
func (a *QueryAnalysis) Years() []int {
	out := make([]int, 0, len(a.TimeReferences))
	for _, ref := range a.TimeReferences {
		if y, err := strconv.Atoi(ref); err == nil {
			out = append(out, y)
		}
	}
	return out
}

// YearRange spans the smallest and largest referenced year. A single year
// gives from == to.
func (a *QueryAnalysis) YearRange() (from, to int, ok bool) {
	years := a.Years()
	if len(years) == 0 {
		return 0, 0, false
	}
	from, to = years[0], years[0]
	for _, y := range years[1:] {
		if y < from {
			from = y
		}
		if y > to {
			to = y
		}
	}
	return from, to, true
}

// WantsBottom reports whether a ranking query asks for the lowest entry.
func (a *QueryAnalysis) WantsBottom() bool {
	return a.RankOrder == RankBottom
}
