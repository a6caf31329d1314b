package storedex

import (
	"errors"

	"github.com/kailas-cloud/storedex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation          = domain.ErrValidation
	ErrInvalidCoordinates  = domain.ErrInvalidCoordinates
	ErrInvalidName         = domain.ErrInvalidName
	ErrNotFound            = domain.ErrNotFound
	ErrConflict            = domain.ErrConflict
	ErrIndexingUnavailable = domain.ErrIndexingUnavailable
	ErrNotOwner            = domain.ErrNotOwner
)

// ValidationError carries per-field messages. Use errors.As() to inspect.
type ValidationError = domain.ValidationError

// IndexingDegradedError is returned alongside a persisted store whose index update failed.
type IndexingDegradedError = domain.IndexingDegradedError

// IsIndexingDegraded reports whether err only signals a missed index update.
// The accompanying store value is valid and durable in that case.
func IsIndexingDegraded(err error) bool {
	var de *domain.IndexingDegradedError
	return errors.As(err, &de)
}
