package ranking

import (
	"context"

	"github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/domain/rating"
)

// RatingSource reads and records the rating dataset.
type RatingSource interface {
	Ratings(ctx context.Context) ([]rating.Rating, error)
	Add(ctx context.Context, ratingID string, r rating.Rating) error
}

// EntryLister provides entries to join ratings against.
type EntryLister interface {
	All(ctx context.Context) ([]entry.Entry, error)
	Get(ctx context.Context, id string) (entry.Entry, error)
}
