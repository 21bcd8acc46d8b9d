// internal/workers/intelligence/generate-insight/models.go
package generateinsight

import "narrative-workers/internal/models"

type Input struct {
	Query          string `json:"query"`
	DomainHint     string `json:"domainHint,omitempty"`
	ForceMode      string `json:"forceMode,omitempty"`
	IncludeImage   bool   `json:"includeImage,omitempty"`
	SeparateImages *bool  `json:"separateImages,omitempty"`
}

type Output struct {
	Response models.Response `json:"response"`
}
