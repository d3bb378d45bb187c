package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline failure taxonomy.
var (
	// ErrExtraction: the byte stream could not be parsed as its declared
	// format. Distinct from a format that parses but yields empty text.
	ErrExtraction = errors.New("document extraction failed")
	// ErrEmptyInput: no usable text after normalization.
	ErrEmptyInput = errors.New("empty input")
	// ErrUnsupportedFormat: the declared document format is known but cannot
	// carry extractable text.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrEmbedding: the embedding model call failed.
	ErrEmbedding = errors.New("embedding failed")
	// ErrIndexUnavailable: the vector store is unreachable.
	ErrIndexUnavailable = errors.New("vector index unavailable")
	// ErrIndexQuery: the store is reachable but the query call failed.
	ErrIndexQuery = errors.New("vector index query failed")

	ErrInvalidLimit    = errors.New("result limit out of range")
	ErrInvalidRecord   = errors.New("invalid lab record")
	ErrInvalidMetadata = errors.New("invalid index metadata")
	ErrNotFound        = errors.New("not found")
)

// ValidationError wraps a sentinel with field context.
type ValidationError struct {
	Field   string
	Value   string
	Wrapped error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s (value=%q)", e.Wrapped, e.Field, e.Value)
}

func (e *ValidationError) Unwrap() error { return e.Wrapped }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value string, wrapped error) *ValidationError {
	return &ValidationError{Field: field, Value: value, Wrapped: wrapped}
}
