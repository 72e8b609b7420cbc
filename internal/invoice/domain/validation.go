package domain

import (
	"errors"
	"strings"
)

// ValidationError describes one rejected input field. Field is the API
// (JSON) name of the field, never a storage column.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// ValidationErrors collects every problem found in one input.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Error())
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (v *ValidationErrors) Add(field, code, message string) {
	*v = append(*v, ValidationError{Field: field, Code: code, Message: message})
}

// Err returns nil when nothing was collected.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// IsValidation reports whether err carries validation errors.
func IsValidation(err error) bool {
	var many ValidationErrors
	if errors.As(err, &many) {
		return true
	}
	var one ValidationError
	return errors.As(err, &one)
}
