// Package tagger assigns a domain to a sample of retrieved records.
package tagger

import (
	"context"
	"math"
	"strings"

	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/models"
)

// Tagger is the pluggable domain classification collaborator.
type Tagger interface {
	ClassifyDomain(ctx context.Context, sample []models.DataRecord) (string, error)
}

// KeywordTagger votes with the vocabulary's domain keywords. It never fails.
type KeywordTagger struct {
	vocab *vocabulary.Vocabulary
}

func NewKeywordTagger(vocab *vocabulary.Vocabulary) *KeywordTagger {
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	return &KeywordTagger{vocab: vocab}
}

func (k *KeywordTagger) ClassifyDomain(_ context.Context, sample []models.DataRecord) (string, error) {
	domain, _ := k.Tag(sample)
	return domain, nil
}

// Tag returns the best domain and a confidence of min(score/5, 1). A
// record's own Domain field counts as a keyword hit for that domain. Ties go
// to the domain listed first.
func (k *KeywordTagger) Tag(sample []models.DataRecord) (string, float64) {
	scores := map[string]int{}
	for _, r := range sample {
		if r.Domain != "" {
			scores[strings.ToLower(r.Domain)]++
		}
		for _, word := range strings.FieldsFunc(strings.ToLower(r.MetricName), isSeparator) {
			if d := k.vocab.DomainOf(word); d != "" {
				scores[d]++
			} else if d := k.vocab.DomainOf(strings.TrimSuffix(word, "s")); d != "" {
				scores[d]++
			}
		}
	}

	best, bestScore := "", 0
	for _, d := range k.vocab.Domains() {
		if scores[d.Name] > bestScore {
			best, bestScore = d.Name, scores[d.Name]
		}
	}
	return best, math.Min(float64(bestScore)/5, 1)
}

func isSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}
