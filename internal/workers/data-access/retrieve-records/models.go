// internal/workers/data-access/retrieve-records/models.go
package retrieverecords

import (
	"narrative-workers/internal/models"
	"narrative-workers/internal/retrieval"
)

// Input either carries an analysis from analyze-query or explicit criteria.
// The analysis wins when both are present.
type Input struct {
	Analysis  *models.QueryAnalysis `json:"analysis,omitempty"`
	Keywords  []string              `json:"keywords,omitempty"`
	Domain    string                `json:"domain,omitempty"`
	Locations []string              `json:"locations,omitempty"`
	TimeRange *retrieval.TimeRange  `json:"timeRange,omitempty"`
	Limit     int                   `json:"limit,omitempty"`
}

type Output struct {
	Records   []models.DataRecord `json:"records"`
	Sources   []string            `json:"sources"`
	TotalHits int                 `json:"totalHits"`
	Took      int64               `json:"took"` // milliseconds
}
