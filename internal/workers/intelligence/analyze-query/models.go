// internal/workers/intelligence/analyze-query/models.go
package analyzequery

import "narrative-workers/internal/models"

type Input struct {
	Query      string `json:"query"`
	DomainHint string `json:"domainHint,omitempty"`
}

type Output struct {
	Analysis *models.QueryAnalysis `json:"analysis"`
}
