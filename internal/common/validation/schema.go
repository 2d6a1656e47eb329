// Package validation checks payloads against JSON schemas: the application
// sent to the admissions backend and the variables handed to workers.
package validation

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"admissions-wizard/internal/common/errors"
	"admissions-wizard/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins the errors into one line.
func (r *ValidationResult) Summary() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = e.Field + ": " + e.Message
	}
	return strings.Join(parts, "; ")
}

// Schema is a compiled JSON schema.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// Compile parses raw as a JSON schema.
func Compile(name string, raw []byte) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: s}, nil
}

// Load compiles one of the embedded schemas.
func Load(name string) (*Schema, error) {
	raw, err := schemaFiles.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return Compile(name, raw)
}

func mustLoad(name string) *Schema {
	s, err := Load(name)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) Name() string { return s.name }

// Validate checks document, any value that encodes to JSON.
func (s *Schema) Validate(document interface{}) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return &ValidationResult{Errors: []ValidationError{{
			Field:   "(root)",
			Message: err.Error(),
			Code:    "INVALID_DOCUMENT",
		}}}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if prop, ok := desc.Details()["property"].(string); ok && desc.Type() == "required" {
			field = prop
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	// stable order for messages and tests
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out
}

// ApplicationSchema checks the submission payload before it leaves the
// session.
type ApplicationSchema struct {
	schema *Schema
}

func NewApplicationSchema() *ApplicationSchema {
	return &ApplicationSchema{schema: mustLoad("application")}
}

func (a *ApplicationSchema) ValidateApplication(draft *models.ApplicationDraft) error {
	if draft == nil {
		return errors.NewSchemaViolationError("application is empty")
	}
	result := a.schema.Validate(draft)
	if result.Valid {
		return nil
	}
	stdErr := errors.NewSchemaViolationError(result.Summary())
	stdErr.Fields = make(map[string]string, len(result.Errors))
	for _, e := range result.Errors {
		if _, exists := stdErr.Fields[e.Field]; !exists {
			stdErr.Fields[e.Field] = e.Message
		}
	}
	return stdErr
}

// ConfirmationInputSchema checks the variables of a confirmation job.
func ConfirmationInputSchema() *Schema {
	return mustLoad("confirmation_input")
}

// RecordInputSchema checks the variables of a record job.
func RecordInputSchema() *Schema {
	return mustLoad("record_input")
}
