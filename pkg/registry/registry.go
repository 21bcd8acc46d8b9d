// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

func LoadRegistry(path string) (*TemplateRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*TemplateRegistry, error) {
	var reg TemplateRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse template registry: %w", err)
	}
	return &reg, nil
}

// SaveRegistry writes reg as indented JSON, creating the directory if needed.
func SaveRegistry(reg *TemplateRegistry, path string) error {
	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write registry file: %w", err)
	}
	return nil
}

func (r *TemplateRegistry) Find(id string) (*Template, bool) {
	for i := range r.Templates {
		if r.Templates[i].ID == id {
			return &r.Templates[i], true
		}
	}
	return nil, false
}

// Check reports structural problems: missing ids, duplicates, unknown modes
// and templates without a schema.
func (r *TemplateRegistry) Check() error {
	if len(r.Templates) == 0 {
		return fmt.Errorf("registry contains no templates")
	}
	ids := make(map[string]bool)
	for _, t := range r.Templates {
		if t.ID == "" {
			return fmt.Errorf("template missing required field: id")
		}
		if ids[t.ID] {
			return fmt.Errorf("duplicate template ID: %s", t.ID)
		}
		ids[t.ID] = true

		if t.Mode != ModeStory && t.Mode != ModeData {
			return fmt.Errorf("template %s has unknown mode %q", t.ID, t.Mode)
		}
		if len(t.Schema) == 0 {
			return fmt.Errorf("template %s missing required field: schema", t.ID)
		}
	}
	return nil
}
