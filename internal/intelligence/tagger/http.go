package tagger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"narrative-workers/internal/common/config"
	commonerrors "narrative-workers/internal/common/errors"
	httpclient "narrative-workers/internal/common/http"
	"narrative-workers/internal/common/logger"
	"narrative-workers/internal/intelligence/vocabulary"
	"narrative-workers/internal/models"
)

const classifyPath = "/api/ai/classify-domain"

type classifyRequest struct {
	Metrics    []string `json:"metrics"`
	Regions    []string `json:"regions,omitempty"`
	Candidates []string `json:"candidates"`
}

type classifyResponse struct {
	Domain     string  `json:"domain"`
	Confidence float64 `json:"confidence"`
}

// HTTPClassifier asks the GenAI service for a domain and falls back to the
// keyword tagger when the call fails or the answer is not a known domain.
type HTTPClassifier struct {
	baseURL       string
	client        *httpclient.Client
	fallback      *KeywordTagger
	known         map[string]bool
	minConfidence float64
	logger        logger.Logger
}

func NewHTTPClassifier(cfg config.GenAIConfig, vocab *vocabulary.Vocabulary, log logger.Logger) *HTTPClassifier {
	if vocab == nil {
		vocab = vocabulary.Default()
	}
	known := map[string]bool{}
	for _, d := range vocab.Domains() {
		known[d.Name] = true
	}
	client := httpclient.NewClient(time.Duration(cfg.Timeout) * time.Millisecond).
		WithRetries(cfg.MaxRetries).
		WithHeader("Authorization", bearer(cfg.APIKey))

	return &HTTPClassifier{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		client:        client,
		fallback:      NewKeywordTagger(vocab),
		known:         known,
		minConfidence: 0.3,
		logger:        logger.ForComponent(log, "tagger"),
	}
}

func bearer(key string) string {
	if key == "" {
		return ""
	}
	return "Bearer " + key
}

func (h *HTTPClassifier) ClassifyDomain(ctx context.Context, sample []models.DataRecord) (string, error) {
	if len(sample) == 0 {
		return "", nil
	}

	domain, err := h.classify(ctx, sample)
	if err == nil {
		return domain, nil
	}

	h.logger.Warn("domain classifier unavailable, using keywords", map[string]interface{}{
		"error": err.Error(),
	})
	return h.fallback.ClassifyDomain(ctx, sample)
}

func (h *HTTPClassifier) classify(ctx context.Context, sample []models.DataRecord) (string, error) {
	if h.baseURL == "" {
		return "", commonerrors.NewDomainClassificationFailedError(fmt.Errorf("no classifier url configured"))
	}

	req := classifyRequest{Candidates: make([]string, 0, len(h.known))}
	seenMetric, seenRegion := map[string]bool{}, map[string]bool{}
	for _, r := range sample {
		if !seenMetric[r.MetricName] {
			seenMetric[r.MetricName] = true
			req.Metrics = append(req.Metrics, r.MetricName)
		}
		if r.Region != "" && !seenRegion[r.Region] {
			seenRegion[r.Region] = true
			req.Regions = append(req.Regions, r.Region)
		}
	}
	for _, d := range h.fallback.vocab.Domains() {
		req.Candidates = append(req.Candidates, d.Name)
	}

	var resp classifyResponse
	if err := h.client.PostJSON(ctx, h.baseURL+classifyPath, req, &resp); err != nil {
		return "", commonerrors.NewDomainClassificationFailedError(err)
	}

	domain := strings.ToLower(strings.TrimSpace(resp.Domain))
	if !h.known[domain] {
		return "", commonerrors.NewDomainClassificationFailedError(fmt.Errorf("unknown domain %q", resp.Domain))
	}
	if resp.Confidence < h.minConfidence {
		return "", commonerrors.NewDomainClassificationFailedError(fmt.Errorf("low confidence %.2f for %s", resp.Confidence, domain))
	}
	return domain, nil
}
