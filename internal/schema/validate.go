package schema

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// ErrInvalidDocument is returned when a payload does not match the document schema
var ErrInvalidDocument = errors.New("document does not match schema")

// ValidationError is one schema violation
type ValidationError struct {
	Field       string
	Description string
}

// Error implements the error interface
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

// ValidationResult holds the outcome of a validation
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// Err returns nil for a valid result, otherwise an error wrapping ErrInvalidDocument
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%w: %s", ErrInvalidDocument, strings.Join(msgs, "; "))
}

// Validator checks JSON documents against a compiled schema
type Validator struct {
	schema *gojsonschema.Schema
}

// NewValidator compiles the generated document schema
func NewValidator() (*Validator, error) {
	data, err := JSON()
	if err != nil {
		return nil, err
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: s}, nil
}

// Validate checks raw JSON bytes
func (v *Validator) Validate(data []byte) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}
	return convertResult(result), nil
}

func convertResult(result *gojsonschema.Result) *ValidationResult {
	vr := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		vr.Errors = append(vr.Errors, ValidationError{
			Field:       e.Field(),
			Description: e.Description(),
		})
	}
	return vr
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// ValidateDocument validates data with a lazily compiled shared validator
// and returns an error wrapping ErrInvalidDocument on violations.
func ValidateDocument(data []byte) error {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	if defaultErr != nil {
		return defaultErr
	}
	result, err := defaultValidator.Validate(data)
	if err != nil {
		return err
	}
	return result.Err()
}
