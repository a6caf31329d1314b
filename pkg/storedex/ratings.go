package storedex

import (
	"context"
	"fmt"
	"time"
)

// RatingService records ratings and ranks stores by them.
type RatingService struct {
	svc rankingUseCase
	obs *observer
}

// Rate records a 1..5 rating for a store and returns the rating ID.
func (s *RatingService) Rate(ctx context.Context, storeID string, value float64) (_ string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("rate", start, err) }()

	id, err := s.svc.Rate(ctx, storeID, value)
	if err != nil {
		return "", fmt.Errorf("rate store %s: %w", storeID, err)
	}
	return id, nil
}

// Top returns at most limit stores with at least minRatings ratings,
// best average first.
func (s *RatingService) Top(ctx context.Context, limit, minRatings int) (_ []RankedStore, err error) {
	start := time.Now()
	defer func() { s.obs.observe("top", start, err) }()

	rows, err := s.svc.TopRanked(ctx, limit, minRatings)
	if err != nil {
		return nil, fmt.Errorf("top stores: %w", err)
	}
	return rankedStores(rows), nil
}
