package shared

import (
	"errors"
	"fmt"
	"maps"
)

// ErrorKind classifies a DomainError. Boundaries pattern-match on the kind
// instead of on concrete error types.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindAuthorization  ErrorKind = "authorization"
	KindIntegrity      ErrorKind = "integrity"
	KindInfrastructure ErrorKind = "infrastructure"
)

// Retryable reports whether the caller may retry after correcting input or re-reading state
func (k ErrorKind) Retryable() bool {
	return k == KindConflict || k == KindInfrastructure
}

// Opaque reports whether the message must be hidden from external callers
func (k ErrorKind) Opaque() bool {
	return k == KindIntegrity || k == KindInfrastructure
}

// Severity is the operational weight of an error
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind     ErrorKind      `json:"kind"`
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Context  map[string]any `json:"context,omitempty"`
	cause    error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches on code, so sentinels survive WithContext and wrapping
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// With returns a copy carrying an extra context key
func (e *DomainError) With(key string, value any) *DomainError {
	cp := *e
	cp.Context = make(map[string]any, len(e.Context)+1)
	maps.Copy(cp.Context, e.Context)
	cp.Context[key] = value
	return &cp
}

// WithMessage returns a copy with a more precise message
func (e *DomainError) WithMessage(message string) *DomainError {
	cp := *e
	cp.Message = message
	return &cp
}

// Wrap returns a copy that records cause
func (e *DomainError) Wrap(cause error) *DomainError {
	cp := *e
	cp.cause = cause
	return &cp
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:     kind,
		Code:     code,
		Message:  message,
		Severity: defaultSeverity(kind),
	}
}

// NewValidationError creates a validation error pointing at the offending field
func NewValidationError(code, field, message string) *DomainError {
	return NewDomainError(KindValidation, code, message).With("field", field)
}

// NewInfrastructureError wraps a storage or transport failure
func NewInfrastructureError(cause error) *DomainError {
	return ErrStorageUnavailable.Wrap(cause)
}

func defaultSeverity(kind ErrorKind) Severity {
	switch kind {
	case KindIntegrity, KindInfrastructure:
		return SeverityCritical
	case KindAuthorization, KindConflict:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// AsDomainError extracts a DomainError from err. Errors that are not domain
// errors are reported as infrastructure failures.
func AsDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return NewInfrastructureError(err)
}

// KindOf returns the kind of err
func KindOf(err error) ErrorKind {
	return AsDomainError(err).Kind
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrInvalidInput        = NewDomainError(KindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(KindConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(KindConflict, "INVALID_STATE", "Operation not allowed in current state")
	ErrForbidden           = NewDomainError(KindAuthorization, "FORBIDDEN", "Access to this resource is forbidden")
	ErrStorageUnavailable  = NewDomainError(KindInfrastructure, "STORAGE_UNAVAILABLE", "Storage is unavailable")
)
