// internal/workers/infrastructure/build-response/models.go
package buildresponse

type Input struct {
	TemplateId  string                 `json:"templateId"`
	RequestId   string                 `json:"requestId"`
	Data        map[string]interface{} `json:"data"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	RenderImage bool                   `json:"renderImage,omitempty"`
}

type Output struct {
	Response ResponsePayload `json:"response"`
}

type ResponsePayload struct {
	RequestId  string                 `json:"requestId"`
	Status     string                 `json:"status"` // "success" or "error"
	TemplateId string                 `json:"templateId"`
	Data       map[string]interface{} `json:"data"`
	ImageId    string                 `json:"imageId,omitempty"`
	Metadata   ResponseMetadata       `json:"metadata"`
}

type ResponseMetadata struct {
	Timestamp       string                 `json:"timestamp"` // ISO 8601
	Version         string                 `json:"version"`
	TemplateVersion string                 `json:"templateVersion,omitempty"`
	Extra           map[string]interface{} `json:"extra,omitempty"`
}
