// Package rating holds the read-only rating dataset types and the derived ranking row.
package rating

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/entry"
)

// MinValue and MaxValue bound a rating value.
const (
	MinValue = 1
	MaxValue = 5
)

// Rating is a single external score of an entry.
type Rating struct {
	EntryID string  `json:"entry_id"`
	Value   float64 `json:"value"`
}

// New validates and creates a Rating.
func New(entryID string, value float64) (Rating, error) {
	if entryID == "" {
		return Rating{}, domain.NewValidationError("entry_id", "entry_id is required")
	}
	if math.IsNaN(value) || math.IsInf(value, 0) || value < MinValue || value > MaxValue {
		return Rating{}, domain.NewValidationError("value",
			fmt.Sprintf("value must be within [%d,%d]", MinValue, MaxValue))
	}
	return Rating{EntryID: entryID, Value: value}, nil
}

// RankedEntry is a derived, never persisted ranking row.
type RankedEntry struct {
	Entry         entry.Entry
	AverageRating float64
	RatingCount   int
}
