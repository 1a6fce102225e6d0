package application

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when the caller lacks permission for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested event, user or registration does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrStoreUnavailable matches every StoreError.
	ErrStoreUnavailable = errors.New("application: store unavailable")
	// ErrTimeout is returned when a store or verification call exceeds its deadline.
	ErrTimeout = errors.New("application: operation timed out")
	// ErrVerificationUnavailable matches every ExternalServiceError.
	ErrVerificationUnavailable = errors.New("application: verification service unavailable")
	// ErrPhoneNotVerified is returned when the verification service rejects a phone number.
	ErrPhoneNotVerified = errors.New("application: phone number not registered")
	// ErrEmptyExport is returned when an export would contain no rows.
	ErrEmptyExport = errors.New("application: no registrations to export")
	// ErrSessionInvalid is returned for unknown, expired or orphaned registrant sessions.
	ErrSessionInvalid = errors.New("application: session invalid")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	// Message is the user facing summary, e.g. "Please fill in all fields."
	Message     string
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if v.Message != "" {
		return v.Message
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

// StoreError wraps a document store failure with the operation that hit it.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("application: store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStoreUnavailable) hold for every StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStoreUnavailable }

// ExternalServiceError wraps a transport or protocol failure of a remote dependency.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("application: %s failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func (e *ExternalServiceError) Is(target error) bool { return target == ErrVerificationUnavailable }

// RowImportError reports why a single imported row was not stored. Row is the
// sheet line of the row when known, else its 1-based position in the batch.
type RowImportError struct {
	Row    int
	Phone  string
	Reason string
	Err    error
}

func (e RowImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Reason, e.Err)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e RowImportError) Unwrap() error { return e.Err }
