// Package render turns a response plan into a template payload, validates it
// against the template's JSON schema and hands it to a render dispatcher.
package render

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"sync"

	"narrative-workers/internal/common/validation"
	"narrative-workers/pkg/registry"
)

var (
	ErrTemplateNotFound         = errors.New("TEMPLATE_NOT_FOUND")
	ErrTemplateValidationFailed = errors.New("TEMPLATE_VALIDATION_FAILED")
	ErrRenderDispatchFailed     = errors.New("RENDER_DISPATCH_FAILED")
)

//go:embed templates.json
var defaultTemplates []byte

type compiledTemplate struct {
	def    registry.Template
	schema *validation.Schema
}

// Registry holds compiled template schemas. It is read-only after
// construction.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*compiledTemplate
}

// DefaultRegistry compiles the built-in templates.
func DefaultRegistry() (*Registry, error) {
	reg, err := registry.Parse(defaultTemplates)
	if err != nil {
		return nil, err
	}
	return NewRegistry(reg.Templates)
}

// LoadRegistry starts from the built-in templates and lets the file at path
// replace or add templates by id. An empty path gives the defaults.
func LoadRegistry(path string) (*Registry, error) {
	r, err := DefaultRegistry()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return r, nil
	}
	file, err := registry.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load template registry %s: %w", path, err)
	}
	for _, t := range file.Templates {
		if err := r.add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func NewRegistry(templates []registry.Template) (*Registry, error) {
	r := &Registry{templates: make(map[string]*compiledTemplate, len(templates))}
	for _, t := range templates {
		if err := r.add(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) add(t registry.Template) error {
	if t.ID == "" {
		return fmt.Errorf("template without id")
	}
	var schema *validation.Schema
	if len(t.Schema) > 0 {
		s, err := validation.CompileMap(t.Schema)
		if err != nil {
			return fmt.Errorf("template %s: %w", t.ID, err)
		}
		schema = s
	}
	r.mu.Lock()
	r.templates[t.ID] = &compiledTemplate{def: t, schema: schema}
	r.mu.Unlock()
	return nil
}

func (r *Registry) Get(id string) (registry.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return registry.Template{}, false
	}
	return t.def, true
}

func (r *Registry) Has(id string) bool {
	_, ok := r.Get(id)
	return ok
}

// IDs lists the known template ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.templates))
	for id := range r.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks payload against the template schema. Templates without a
// schema accept any payload.
func (r *Registry) Validate(id string, payload map[string]interface{}) (*validation.ValidationResult, error) {
	r.mu.RLock()
	t, ok := r.templates[id]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, id)
	}
	if t.schema == nil {
		return &validation.ValidationResult{Valid: true}, nil
	}
	result := t.schema.Validate(payload)
	if !result.Valid {
		return result, fmt.Errorf("%w: %s: %s", ErrTemplateValidationFailed, id, result.Summary())
	}
	return result, nil
}
