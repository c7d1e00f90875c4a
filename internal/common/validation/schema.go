package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationResult collects every violation found in one pass.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationError is a single field-specific violation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const (
	CodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	CodeInvalidType          = "INVALID_TYPE"
	CodeInvalidEnumValue     = "INVALID_ENUM_VALUE"
	CodeMinItemsViolation    = "MIN_ITEMS_VIOLATION"
	CodeInvalidDocument      = "INVALID_DOCUMENT"
	CodeConstraintViolation  = "CONSTRAINT_VIOLATION"
)

// Schema is a compiled JSON schema used to type-check raw request bodies before they are
// decoded into typed structs.
type Schema struct {
	schema *gojsonschema.Schema
}

// CompileSchema parses a JSON schema document.
func CompileSchema(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompileSchema is CompileSchema for package-level schemas.
func MustCompileSchema(schemaJSON string) *Schema {
	s, err := CompileSchema(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateDocument checks doc against the schema. A body that is not JSON at all yields a
// single INVALID_DOCUMENT error on the root.
func (s *Schema) ValidateDocument(doc []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return &ValidationResult{
			Valid: false,
			Errors: []ValidationError{{
				Field:   "body",
				Message: "request body must be a JSON object",
				Code:    CodeInvalidDocument,
			}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, re := range result.Errors() {
		out.Errors = append(out.Errors, fromSchemaError(re))
	}
	return out
}

func fromSchemaError(re gojsonschema.ResultError) ValidationError {
	field := re.Field()
	if prop, ok := re.Details()["property"].(string); ok && re.Type() == "required" {
		field = prop
	}
	field = strings.TrimPrefix(field, "(root).")

	code := CodeConstraintViolation
	switch re.Type() {
	case "required":
		code = CodeRequiredFieldMissing
	case "invalid_type":
		code = CodeInvalidType
	case "enum":
		code = CodeInvalidEnumValue
	case "array_min_items":
		code = CodeMinItemsViolation
	}

	return ValidationError{Field: field, Message: re.Description(), Code: code}
}

// First returns the first violation, if any.
func (vr *ValidationResult) First() (ValidationError, bool) {
	if vr == nil || len(vr.Errors) == 0 {
		return ValidationError{}, false
	}
	return vr.Errors[0], true
}
