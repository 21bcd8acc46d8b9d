// internal/workers/infrastructure/select-template/models.go
package selecttemplate

type Input struct {
	OutputMode     string `json:"outputMode"`
	Intent         string `json:"intent,omitempty"`
	InsightType    string `json:"insightType,omitempty"`
	SeparateImages *bool  `json:"separateImages,omitempty"`
}

type Output struct {
	SelectedTemplateId string `json:"selectedTemplateId"`
	Overridden         bool   `json:"overridden"`
}
