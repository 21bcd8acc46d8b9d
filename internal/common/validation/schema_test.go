package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const querySchema = `{
  "type": "object",
  "required": ["query"],
  "properties": {
    "query": {"type": "string", "maxLength": 20},
    "forceMode": {"type": "string", "enum": ["", "data", "story"]}
  }
}`

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name      string
		input     map[string]interface{}
		valid     bool
		badFields []string
	}{
		{
			name:  "valid",
			input: map[string]interface{}{"query": "literacy trend", "forceMode": "story"},
			valid: true,
		},
		{
			name:      "missing query",
			input:     map[string]interface{}{},
			badFields: []string{"(root)"},
		},
		{
			name:      "wrong type",
			input:     map[string]interface{}{"query": 42},
			badFields: []string{"query"},
		},
		{
			name:      "too long and bad enum",
			input:     map[string]interface{}{"query": "this query is much longer than allowed", "forceMode": "video"},
			badFields: []string{"query", "forceMode"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ValidateInput(tt.input, querySchema)
			require.NoError(t, err)
			assert.Equal(t, tt.valid, res.Valid)
			for _, f := range tt.badFields {
				assert.True(t, res.HasErrors(f), "expected error on %s, got %v", f, res.GetErrorMessages())
			}
		})
	}
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)

	_, err = ValidateInput(map[string]interface{}{}, `not json`)
	assert.Error(t, err)
}

func TestCompileMap_ValidatesStructs(t *testing.T) {
	s, err := CompileMap(map[string]interface{}{
		"type":     "object",
		"required": []interface{}{"title"},
		"properties": map[string]interface{}{
			"title": map[string]interface{}{"type": "string", "minLength": 1},
		},
	})
	require.NoError(t, err)

	type payload struct {
		Title string `json:"title"`
	}
	assert.True(t, s.Validate(payload{Title: "A"}).Valid)

	res := s.Validate(payload{})
	assert.False(t, res.Valid)
	assert.Contains(t, res.Summary(), "title")
}
