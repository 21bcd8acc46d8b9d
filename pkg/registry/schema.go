// pkg/registry/schema.go
package registry

// Template modes.
const (
	ModeStory = "story"
	ModeData  = "data"
)

type TemplateRegistry struct {
	Version     string     `json:"version"`
	LastUpdated string     `json:"lastUpdated"`
	Templates   []Template `json:"templates"`
}

// Template describes one visual template the render layer understands.
// Schema validates the payload handed to the renderer; Sample is a payload
// that must pass it.
type Template struct {
	ID          string                 `json:"id"`
	DisplayName string                 `json:"displayName"`
	Description string                 `json:"description"`
	Mode        string                 `json:"mode"`
	Version     string                 `json:"version"`
	Status      string                 `json:"status"`
	Schema      map[string]interface{} `json:"schema"`
	Sample      map[string]interface{} `json:"sample,omitempty"`
	Tags        []string               `json:"tags"`
}
