package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

var (
	// ErrValidation marks input the client has to correct.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a missing resource.
	ErrNotFound = errors.New("not found")
)

// ValidationError carries per-field messages. It matches ErrValidation with errors.Is.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+strings.Join(e.Fields[name], " "))
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Add records a message for field.
func (e *ValidationError) Add(field, message string) *ValidationError {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

// FieldError returns a validation error with a single field message.
func FieldError(field, message string) *ValidationError {
	return (&ValidationError{Message: "Invalid input."}).Add(field, message)
}

// InvalidInput returns a validation error that is not tied to a field.
func InvalidInput(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// notFound wraps ErrNotFound with the name of the missing resource.
func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}

// lookupError turns gorm.ErrRecordNotFound into ErrNotFound and wraps other errors.
func lookupError(what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	return fmt.Errorf("load %s: %w", what, err)
}
