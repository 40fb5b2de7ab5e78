package llm

import (
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Veraticus/digital-twin/internal/campaign"
)

// campaignSchema describes the shape of a well-formed model answer. Violations
// become issues; campaign.Normalize still coerces the near misses.
const campaignSchema = `{
  "type": "object",
  "properties": {
    "segment":          {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "sector":           {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "category":         {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "promotion":        {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "channel":          {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "product_type":     {"type": ["string", "null"]},
    "product_category": {"type": ["string", "null"]},
    "interest_type":    {"type": ["string", "null"]},
    "risk_level":       {"type": ["string", "null"]},
    "innovation_level": {"type": ["string", "null"]},
    "term":             {"type": ["integer", "null"], "minimum": 1, "maximum": 60},
    "launch_year":      {"type": ["integer", "null"]}
  },
  "additionalProperties": true
}`

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	errSchema      error
)

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, errSchema = gojsonschema.NewSchema(gojsonschema.NewStringLoader(campaignSchema))
	})
	return compiledSchema, errSchema
}

// validateShape checks raw against the campaign schema and returns one issue
// per violation.
func validateShape(raw map[string]any) ([]campaign.Issue, error) {
	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	if result.Valid() {
		return nil, nil
	}

	issues := make([]campaign.Issue, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, campaign.Issue{
			Field:  desc.Field(),
			Value:  desc.Value(),
			Reason: "schema: " + desc.Description(),
		})
	}
	return issues, nil
}
