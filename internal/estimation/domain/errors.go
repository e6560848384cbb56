package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("resource not found")
	ErrUpstream          = errors.New("upstream service failed")
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// UpstreamError means the language model or extraction service was unreachable
// or answered with a non-2xx status.
type UpstreamError struct {
	Op  string
	Err error
}

func Upstream(op string, err error) *UpstreamError {
	return &UpstreamError{Op: op, Err: err}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// MalformedResponseError means an upstream answered but the content failed
// JSON parsing or schema expectations.
type MalformedResponseError struct {
	Op  string
	Raw string
	Err error
}

func Malformed(op, raw string, err error) *MalformedResponseError {
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return &MalformedResponseError{Op: op, Raw: raw, Err: err}
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
