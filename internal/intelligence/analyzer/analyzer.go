// Package analyzer turns a free-text question into a models.QueryAnalysis
// using keyword tables only.
package analyzer

import (
	"errors"
	"regexp"
	"sort"
	"strings"

	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/models"
)

// ErrEmptyQuery is returned for blank or whitespace-only input.
var ErrEmptyQuery = errors.New("EMPTY_QUERY")

var (
	yearPattern  = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	punctPattern = regexp.MustCompile(`[^\p{L}\p{N}\s-]+`)
	spacePattern = regexp.MustCompile(`\s+`)
)

type locationPattern struct {
	name string
	re   *regexp.Regexp
}

type Analyzer struct {
	vocab     *vocabulary.Vocabulary
	locations []locationPattern
	logger    logger.Logger
}

func New(vocab *vocabulary.Vocabulary, log logger.Logger) *Analyzer {
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	a := &Analyzer{vocab: vocab, logger: logger.ForComponent(log, "analyzer")}
	for _, loc := range vocab.Locations() {
		a.locations = append(a.locations, locationPattern{
			name: loc,
			re:   regexp.MustCompile(`\b` + regexp.QuoteMeta(normalize(loc)) + `\b`),
		})
	}
	return a
}

// Analyze reads query. domainHint, when set, wins over the keyword vote.
func (a *Analyzer) Analyze(query, domainHint string) (*models.QueryAnalysis, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	s := newScan(query)
	s.years = extractYears(s.text)
	s.locations = a.extractLocations(s.text)

	rule := classify(s)
	topics := a.extractTopics(s)

	analysis := &models.QueryAnalysis{
		OriginalQuery:    strings.TrimSpace(query),
		NormalizedQuery:  s.text,
		Intent:           rule.intent,
		IntentConfidence: rule.confidence,
		Topics:           topics,
		Locations:        s.locations,
		TimeReferences:   s.years,
		Metrics:          matchWords(s, a.vocab.MetricWords()),
		DomainHint:       a.domainFor(topics, domainHint),
	}

	analysis.RequiresHistorical = analysis.Intent == models.IntentTrend || len(analysis.TimeReferences) >= 2
	analysis.RequiresComparison = analysis.Intent == models.IntentComparison || len(analysis.Locations) >= 2
	if analysis.RequiresHistorical {
		analysis.PreferredOutput = models.OutputStory
	} else {
		analysis.PreferredOutput = models.OutputData
	}
	analysis.RankOrder = rankOrder(s)
	analysis.SearchKeywords = searchKeywords(topics, s.locations)

	a.logger.Debug("query analyzed", map[string]interface{}{
		"intent":     analysis.Intent,
		"confidence": analysis.IntentConfidence,
		"topics":     analysis.Topics,
		"locations":  analysis.Locations,
		"years":      analysis.TimeReferences,
	})
	return analysis, nil
}

// normalize lowercases, drops punctuation except hyphens and collapses
// whitespace.
func normalize(s string) string {
	s = strings.ToLower(s)
	s = punctPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// scan is the per-query matching state.
type scan struct {
	original  string
	text      string
	tokens    []string
	tokenSet  map[string]bool
	years     []string
	locations []string
}

func newScan(query string) *scan {
	text := normalize(query)
	s := &scan{original: query, text: text, tokenSet: map[string]bool{}}
	for _, tok := range strings.FieldsFunc(text, func(r rune) bool { return r == ' ' || r == '-' }) {
		s.tokens = append(s.tokens, tok)
		s.tokenSet[tok] = true
	}
	return s
}

func (s *scan) hasWord(words ...string) bool {
	for _, w := range words {
		if s.tokenSet[w] {
			return true
		}
	}
	return false
}

func (s *scan) hasPhrase(phrases ...string) bool {
	padded := " " + s.text + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

func extractYears(text string) []string {
	var out []string
	seen := map[string]bool{}
	for _, y := range yearPattern.FindAllString(text, -1) {
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	return out
}

func (a *Analyzer) extractLocations(text string) []string {
	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for _, lp := range a.locations {
		if loc := lp.re.FindStringIndex(text); loc != nil {
			hits = append(hits, hit{name: lp.name, pos: loc[0]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	var out []string
	seen := map[string]bool{}
	for _, h := range hits {
		key := strings.ToLower(h.name)
		if !seen[key] {
			seen[key] = true
			out = append(out, h.name)
		}
	}
	return out
}

// extractTopics returns matched domain keywords ordered by first occurrence.
func (a *Analyzer) extractTopics(s *scan) []string {
	var keywords []string
	for _, d := range a.vocab.Domains() {
		keywords = append(keywords, d.Keywords...)
	}
	return matchWords(s, keywords)
}

// matchWords finds vocabulary words in the query, tolerating simple plurals.
// Multi-word entries are matched as phrases.
func matchWords(s *scan, words []string) []string {
	type hit struct {
		word string
		pos  int
	}
	var hits []hit
	seen := map[string]bool{}
	for _, w := range words {
		if seen[w] {
			continue
		}
		if pos := position(s, w); pos >= 0 {
			seen[w] = true
			hits = append(hits, hit{word: w, pos: pos})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.word)
	}
	return out
}

func position(s *scan, word string) int {
	if strings.Contains(word, " ") {
		idx := strings.Index(" "+s.text+" ", " "+word+" ")
		if idx < 0 {
			return -1
		}
		return strings.Count(s.text[:idx], " ")
	}
	for i, tok := range s.tokens {
		if sameWord(tok, word) {
			return i
		}
	}
	return -1
}

func sameWord(token, word string) bool {
	if token == word || token == word+"s" || token == word+"es" {
		return true
	}
	if strings.HasSuffix(word, "y") && token == strings.TrimSuffix(word, "y")+"ies" {
		return true
	}
	return false
}

func (a *Analyzer) domainFor(topics []string, hint string) string {
	if h := strings.ToLower(strings.TrimSpace(hint)); h != "" {
		return h
	}

	counts := map[string]int{}
	for _, t := range topics {
		if d := a.vocab.DomainOf(t); d != "" {
			counts[d]++
		}
	}
	best, bestCount := "", 0
	for _, d := range a.vocab.Domains() {
		if counts[d.Name] > bestCount {
			best, bestCount = d.Name, counts[d.Name]
		}
	}
	return best
}

func rankOrder(s *scan) models.RankOrder {
	switch {
	case s.hasWord("lowest", "bottom", "worst", "least", "poorest"):
		return models.RankBottom
	case s.hasWord("highest", "top", "best", "most", "rank", "ranking", "ranked", "leading"):
		return models.RankTop
	}
	return ""
}

func searchKeywords(topics, locations []string) []string {
	set := map[string]bool{}
	for _, t := range topics {
		set[strings.ToLower(t)] = true
	}
	for _, l := range locations {
		set[strings.ToLower(l)] = true
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
