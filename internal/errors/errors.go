// Package errors provides shared error types for the Wikibase entity client.
package errors

import (
	"errors"
	"fmt"
)

// NotFoundError indicates an entity or page could not be resolved on the wiki.
type NotFoundError struct {
	EntityType string // "item", "property", "entity", "page"
	Identifier string // entity id or page title
	Detail     string // what was missing, e.g. "title"
}

func (e *NotFoundError) Error() string {
	kind := e.EntityType
	if kind == "" {
		kind = "entity"
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s %s not found: no %s in response", kind, e.Identifier, e.Detail)
	}
	return fmt.Sprintf("%s not found: %s", kind, e.Identifier)
}

// NewNotFoundError creates a NotFoundError for an entity id.
func NewNotFoundError(id string) *NotFoundError {
	return &NotFoundError{
		EntityType: "entity",
		Identifier: id,
	}
}

// ValidationError indicates invalid input parameters.
type ValidationError struct {
	Field   string // field name that failed validation
	Value   string // the invalid value
	Message string // human-readable error message
}

func (e *ValidationError) Error() string {
	if e.Field != "" && e.Value != "" {
		return fmt.Sprintf("validation failed for %s=%q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// IsNotFound reports whether err is or wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
