package analyzer

import (
	"regexp"
	"strings"

	"narrative-workers/internal/models"
)

var (
	yearRangePattern   = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\s*(?:-|to|till|until)\s*(1[89]\d{2}|20\d{2})\b`)
	yearBetweenPattern = regexp.MustCompile(`\bbetween (1[89]\d{2}|20\d{2}) and (1[89]\d{2}|20\d{2})\b`)
)

type intentRule struct {
	intent     models.Intent
	confidence float64
	match      func(s *scan) bool
}

// intentRules is evaluated top to bottom; the first match wins.
var intentRules = []intentRule{
	{
		intent:     models.IntentTrend,
		confidence: 1.0,
		match: func(s *scan) bool {
			return s.hasWord("changed", "change", "changes", "changing", "trend", "trends", "since", "grew", "grown", "evolved") ||
				s.hasPhrase("over time", "over the years") ||
				yearRangePattern.MatchString(s.text) ||
				yearBetweenPattern.MatchString(s.text)
		},
	},
	{
		intent:     models.IntentComparison,
		confidence: 0.9,
		match: func(s *scan) bool {
			return s.hasWord("versus", "vs", "compare", "comparison") ||
				s.hasPhrase("compared to", "compared with") ||
				len(s.locations) >= 2
		},
	},
	{
		intent:     models.IntentRanking,
		confidence: 0.9,
		match: func(s *scan) bool {
			return s.hasWord("highest", "lowest", "top", "bottom", "best", "worst", "rank", "ranking", "ranked")
		},
	},
	{
		intent:     models.IntentAnomaly,
		confidence: 0.8,
		match: func(s *scan) bool {
			return s.hasWord("unusual", "spike", "spikes", "anomaly", "anomalies", "outlier", "outliers", "unexpected")
		},
	},
	{
		intent:     models.IntentFact,
		confidence: 0.6,
		match:      isQuestion,
	},
}

// generalRule is the fallback when nothing matched.
var generalRule = intentRule{intent: models.IntentGeneral, confidence: 0.3}

var questionWords = map[string]bool{
	"what": true, "which": true, "how": true, "who": true, "when": true, "where": true,
	"is": true, "are": true, "does": true, "do": true, "did": true, "was": true, "were": true,
}

func isQuestion(s *scan) bool {
	if strings.Contains(s.original, "?") {
		return true
	}
	return len(s.tokens) > 0 && questionWords[s.tokens[0]]
}

func classify(s *scan) intentRule {
	for _, r := range intentRules {
		if r.match(s) {
			return r
		}
	}
	return generalRule
}
