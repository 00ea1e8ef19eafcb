package dispatch

import (
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindService    ErrorKind = "service"
)

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// Error is the only error the Dispatcher returns.
type Error struct {
	Kind    ErrorKind
	Message string
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}

	parts := make([]string, 0, len(e.Fields))
	for _, field := range e.Fields {
		parts = append(parts, field.Field+": "+field.Rule)
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(parts, ", "))
}

func (e *Error) Unwrap() error {
	return e.Err
}

func validationError(fields []FieldError) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

func serviceError(err error) *Error {
	return &Error{Kind: KindService, Message: "internal service error", Err: err}
}
