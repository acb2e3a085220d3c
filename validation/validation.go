// Package validation provides JSON-schema shaped validation for agent
// outputs and node input/output contracts.
package validation

import (
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldError describes one schema violation.
type FieldError struct {
	// Path locates the offending field ("items.0.name", or "(root)" for
	// the document itself).
	Path string `json:"path"`
	// Message describes the violation.
	Message string `json:"message"`
}

// Result is the outcome of validating a value against a schema.
type Result struct {
	// Valid reports whether the value satisfied the schema.
	Valid bool `json:"valid"`
	// Errors lists the violations when Valid is false.
	Errors []FieldError `json:"errors,omitempty"`
}

// ErrorSummary joins all violation messages into one line.
func (r Result) ErrorSummary() string {
	if r.Valid || len(r.Errors) == 0 {
		return ""
	}
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.Path + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// TypeValidator validates JSON documents against JSON schemas.
// The zero value is ready to use.
type TypeValidator struct{}

// NewTypeValidator creates a validator.
func NewTypeValidator() *TypeValidator { return &TypeValidator{} }

// ValidateAgainstSchema validates a raw JSON document string against a
// schema given as a decoded map. Non-JSON input fails validation with a
// well-formedness error rather than returning an error value.
func (v *TypeValidator) ValidateAgainstSchema(document string, schema map[string]interface{}) Result {
	if !json.Valid([]byte(document)) {
		return Result{
			Valid:  false,
			Errors: []FieldError{{Path: "(root)", Message: "document is not well-formed JSON"}},
		}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewStringLoader(document),
	)
	if err != nil {
		return Result{
			Valid:  false,
			Errors: []FieldError{{Path: "(root)", Message: "schema validation failed: " + err.Error()}},
		}
	}
	if result.Valid() {
		return Result{Valid: true}
	}

	errs := make([]FieldError, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		errs = append(errs, FieldError{
			Path:    resultErr.Field(),
			Message: resultErr.Description(),
		})
	}
	return Result{Valid: false, Errors: errs}
}

// ValidateValue validates an in-memory value (rather than a raw JSON
// string) against a schema.
func (v *TypeValidator) ValidateValue(value interface{}, schema map[string]interface{}) Result {
	encoded, err := json.Marshal(value)
	if err != nil {
		return Result{
			Valid:  false,
			Errors: []FieldError{{Path: "(root)", Message: "value is not JSON-serializable: " + err.Error()}},
		}
	}
	return v.ValidateAgainstSchema(string(encoded), schema)
}
