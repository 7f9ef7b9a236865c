// Package apperr defines the error kinds shared by the repository, service and API layers.
// Callers match them with errors.As and the HTTP layer maps each kind to a status code.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

// ConfigurationError reports a missing or invalid configuration value. It is fatal at startup.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("configuration error: %s is not set", e.Key)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Reason)
}

// FieldError describes one failing field of a payload.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError is returned when a payload fails schema checks. The caller must fix the input.
type ValidationError struct {
	Entity string
	Fields []FieldError
	Err    error
}

func (e *ValidationError) Error() string {
	var sb strings.Builder
	if e.Entity != "" {
		sb.WriteString(e.Entity)
		sb.WriteString(": ")
	}
	sb.WriteString("validation failed")
	for i, f := range e.Fields {
		if i == 0 {
			sb.WriteString(": ")
		} else {
			sb.WriteString("; ")
		}
		sb.WriteString(f.Message)
	}
	if len(e.Fields) == 0 && e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(entity, field, rule, message string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Fields: []FieldError{{Field: field, Rule: rule, Message: message}},
	}
}

// ProviderError wraps a failure of the external model provider.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NotFoundError reports a missing row, including a parent referenced by a foreign key.
type NotFoundError struct {
	Entity string
	ID     string
	Err    error
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Entity)
	}
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

// ConflictError reports a uniqueness violation, e.g. a second embedding for one message.
type ConflictError struct {
	Entity string
	ID     string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Entity, e.ID)
}

func (e *ConflictError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsProvider(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}

func IsConfiguration(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}
