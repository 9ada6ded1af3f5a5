package utils

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("too many requests")
	ErrBadRequest      = errors.New("bad request")
)

// ValidationError maps request fields to their failed rules.
type ValidationError struct {
	Message string
	Fields  map[string][]string
}

func NewValidationError() *ValidationError {
	return &ValidationError{Fields: make(map[string][]string)}
}

// ValidationFailed builds a single-field error with an explicit message.
func ValidationFailed(field, message string) *ValidationError {
	v := NewValidationError()
	v.Add(field, message)
	v.Message = message
	return v
}

func (v *ValidationError) Add(field, message string) {
	v.Fields[field] = append(v.Fields[field], message)
}

func (v *ValidationError) Empty() bool {
	return v == nil || len(v.Fields) == 0
}

// OrNil lets callers return the accumulated error only when something failed.
func (v *ValidationError) OrNil() error {
	if v.Empty() {
		return nil
	}
	return v
}

func (v *ValidationError) Error() string {
	if v.Message != "" {
		return v.Message
	}
	fields := make([]string, 0, len(v.Fields))
	for f := range v.Fields {
		fields = append(fields, f)
	}
	if len(fields) == 0 {
		return "The given data was invalid."
	}
	sort.Strings(fields)
	first := v.Fields[fields[0]][0]
	if len(fields) == 1 && len(v.Fields[fields[0]]) == 1 {
		return first
	}
	return fmt.Sprintf("%s (and %d more errors)", first, v.count()-1)
}

func (v *ValidationError) count() int {
	n := 0
	for _, msgs := range v.Fields {
		n += len(msgs)
	}
	return n
}

// NotFound wraps ErrNotFound with the resource kind, e.g. "event 4: not found".
func NotFound(kind string, id interface{}) error {
	return fmt.Errorf("%s %v: %w", strings.ToLower(kind), id, ErrNotFound)
}

// ClientError carries a message meant for the API client, wrapping one of
// the sentinels above for status mapping.
type ClientError struct {
	Message string
	Kind    error
}

func (e *ClientError) Error() string { return e.Message }
func (e *ClientError) Unwrap() error { return e.Kind }

// Forbidden builds an authorization failure shown to the client as message.
func Forbidden(message string) error {
	return &ClientError{Message: message, Kind: ErrForbidden}
}

// Conflict builds a conflict failure shown to the client as message.
func Conflict(message string) error {
	return &ClientError{Message: message, Kind: ErrConflict}
}
