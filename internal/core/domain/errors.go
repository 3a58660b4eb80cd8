package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoConnection is returned when a fetch is attempted before any
	// connection profile was saved.
	ErrNoConnection = errors.New("no connection configured")

	// ErrUnknownPanel is returned for a panel name the shell does not know.
	ErrUnknownPanel = errors.New("unknown panel")

	// ErrUnreachable is returned when a profile fails the connection probe.
	ErrUnreachable = errors.New("database unreachable")
)

// FieldError is a validation problem attached to one input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field errors. It blocks submission.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Add records a problem on field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: msg})
}

// HasFields reports whether any problem was recorded.
func (e *ValidationError) HasFields() bool {
	return len(e.Fields) > 0
}

// Invalid reports whether field has a recorded problem.
func (e *ValidationError) Invalid(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// RequestError is a network or backend failure of a fetch.
type RequestError struct {
	Status  int
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil && e.Status != 0:
		return fmt.Sprintf("request failed with status %d: %v", e.Status, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("request failed: %v", e.Err)
	default:
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}
