package campaign

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"

	"github.com/Veraticus/digital-twin/internal/common"
	"github.com/Veraticus/digital-twin/internal/model"
)

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	errSchema      error
)

// optionalFields may be left empty in a valid filter.
var optionalFields = []string{FieldProductType, FieldProductCategory, FieldRiskLevel, FieldInnovationLevel}

// Schema returns the JSON schema a valid filter satisfies, built from the field catalog.
func Schema() map[string]any {
	properties := make(map[string]any, len(Fields()))
	for _, field := range Fields() {
		switch {
		case IsList(field):
			properties[field] = map[string]any{
				"type":  []any{"array", "null"},
				"items": map[string]any{"type": "string", "enum": enumOf(Domain(field))},
			}
		case field == FieldTerm:
			properties[field] = map[string]any{"type": "integer", "minimum": MinTerm, "maximum": MaxTerm}
		case field == FieldLaunchYear:
			years := make([]any, len(model.LaunchYears))
			for i, y := range model.LaunchYears {
				years[i] = y
			}
			properties[field] = map[string]any{"type": "integer", "enum": years}
		default:
			values := enumOf(Domain(field))
			if slices.Contains(optionalFields, field) {
				values = append(values, "")
			}
			properties[field] = map[string]any{"type": "string", "enum": values}
		}
	}
	return map[string]any{"type": "object", "properties": properties}
}

func loadSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, errSchema = gojsonschema.NewSchema(gojsonschema.NewGoLoader(Schema()))
	})
	return compiledSchema, errSchema
}

// Validate reports every field whose value is outside its domain. All errors
// wrap common.ErrInvalidInput and are ordered by field.
func (f Filter) Validate() error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("failed to load filter schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(f))
	if err != nil {
		return fmt.Errorf("failed to validate filter: %w", err)
	}
	if result.Valid() {
		return nil
	}

	byField := make(map[string][]error)
	for _, desc := range result.Errors() {
		field, _, _ := strings.Cut(desc.Field(), ".")
		byField[field] = append(byField[field], f.violation(field, desc.Value()))
	}

	var errs []error
	for _, field := range Fields() {
		errs = append(errs, byField[field]...)
	}
	return errors.Join(errs...)
}

func (f Filter) violation(field string, value any) error {
	if field == FieldTerm {
		return fmt.Errorf("%w: term must be between %d and %d months, got %d",
			common.ErrInvalidInput, MinTerm, MaxTerm, f.Term)
	}
	return invalidValue(field, fmt.Sprint(value))
}

func enumOf(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
