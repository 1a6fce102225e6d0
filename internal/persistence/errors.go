package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested document does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrTimeout is returned when a store call exceeds the caller supplied deadline.
	ErrTimeout = errors.New("persistence: operation timed out")
	// ErrInvalidDocument is returned when a document cannot be stored or decoded.
	ErrInvalidDocument = errors.New("persistence: invalid document")
	// ErrInvalidKey marks a collection or key that cannot address a document.
	// It always travels together with ErrInvalidDocument.
	ErrInvalidKey = errors.New("persistence: invalid key")
)
