package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrValidation signals a bad input shape or a missing required field.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCoordinates signals an out-of-range longitude/latitude pair.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	// ErrInvalidName signals a name that normalizes to an empty slug.
	ErrInvalidName = errors.New("invalid name")
	// ErrNotFound signals a missing entry (by id or slug).
	ErrNotFound = errors.New("not found")
	// ErrConflict signals a slug collision detected at commit time.
	ErrConflict = errors.New("conflict")
	// ErrIndexingUnavailable signals that indexing kept failing after retries.
	ErrIndexingUnavailable = errors.New("indexing unavailable")
	// ErrNotOwner signals an update attempted by someone other than the entry author.
	ErrNotOwner = errors.New("not owner")
)

// ValidationError lists every missing or invalid field of a write request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = name + ": " + e.Fields[name]
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// IndexingDegradedError reports a write that was persisted but could not be indexed.
// The entry is durable; it is just not visible to search/near until the next rebuild.
type IndexingDegradedError struct {
	EntryID string
	Err     error
}

func (e *IndexingDegradedError) Error() string {
	return fmt.Sprintf("entry %s persisted, %s: %v", e.EntryID, ErrIndexingUnavailable.Error(), e.Err)
}

func (e *IndexingDegradedError) Unwrap() []error { return []error{ErrIndexingUnavailable, e.Err} }
