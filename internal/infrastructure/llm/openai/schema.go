package openai

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

//go:embed suggestions.yaml
var suggestionsAsset []byte

// SuggestionSpec is the fixed contract of the structured-completion request:
// a schema name, the system prompt and the JSON schema the model must fill.
type SuggestionSpec struct {
	Name         string `yaml:"name"`
	SystemPrompt string `yaml:"system_prompt"`

	// SchemaJSON is sent verbatim as the response_format json_schema body.
	SchemaJSON json.RawMessage `yaml:"-"`

	schema *openapi3.Schema
}

// LoadSuggestionSpec parses the embedded asset.
func LoadSuggestionSpec() (*SuggestionSpec, error) {
	return ParseSuggestionSpec(suggestionsAsset)
}

func ParseSuggestionSpec(raw []byte) (*SuggestionSpec, error) {
	var doc struct {
		Name         string         `yaml:"name"`
		SystemPrompt string         `yaml:"system_prompt"`
		Schema       map[string]any `yaml:"schema"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse suggestion spec yaml: %w", err)
	}
	if doc.Name == "" || doc.SystemPrompt == "" || len(doc.Schema) == 0 {
		return nil, fmt.Errorf("suggestion spec is incomplete")
	}

	schemaJSON, err := json.Marshal(doc.Schema)
	if err != nil {
		return nil, fmt.Errorf("encode schema: %w", err)
	}

	var schema openapi3.Schema
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	return &SuggestionSpec{
		Name:         doc.Name,
		SystemPrompt: doc.SystemPrompt,
		SchemaJSON:   schemaJSON,
		schema:       &schema,
	}, nil
}

// ValidatePayload checks a decoded completion payload against the schema
// before it is accepted as a suggestion set.
func (s *SuggestionSpec) ValidatePayload(payload any) error {
	if err := s.schema.VisitJSON(payload); err != nil {
		return fmt.Errorf("structured response violates schema: %w", err)
	}
	return nil
}
