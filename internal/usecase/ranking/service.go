// Package ranking derives the top-rated entries from the rating dataset.
package ranking

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/rating"
	"github.com/kailas-cloud/storedex/internal/metrics"
)

// MaxLimit caps the number of ranked entries per call.
const MaxLimit = 50

// Service computes rankings. TopRanked never writes.
type Service struct {
	ratings RatingSource
	entries EntryLister
	newID   func() string
}

// New creates a ranking service.
func New(ratings RatingSource, entries EntryLister) *Service {
	return &Service{ratings: ratings, entries: entries, newID: uuid.NewString}
}

// TopRanked returns up to limit entries having at least minRatingCount ratings,
// ordered by average rating, then rating count, then id.
func (s *Service) TopRanked(ctx context.Context, limit, minRatingCount int) ([]rating.RankedEntry, error) {
	start := time.Now()
	defer func() { metrics.QueryDuration.WithLabelValues("top").Observe(time.Since(start).Seconds()) }()

	fields := make(map[string]string)
	if limit < 1 || limit > MaxLimit {
		fields["limit"] = fmt.Sprintf("must be within [1,%d]", MaxLimit)
	}
	if minRatingCount < 1 {
		fields["min_ratings"] = "must be at least 1"
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	ratings, err := s.ratings.Ratings(ctx)
	if err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}
	entries, err := s.entries.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("read entries: %w", err)
	}

	type acc struct {
		sum   float64
		count int
	}
	byEntry := make(map[string]*acc)
	for _, r := range ratings {
		// Skip non-finite values.
		if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
			continue
		}
		a, ok := byEntry[r.EntryID]
		if !ok {
			a = &acc{}
			byEntry[r.EntryID] = a
		}
		a.sum += r.Value
		a.count++
	}

	ranked := make([]rating.RankedEntry, 0)
	for _, e := range entries {
		a, ok := byEntry[e.ID()]
		if !ok || a.count < minRatingCount {
			continue
		}
		ranked = append(ranked, rating.RankedEntry{
			Entry:         e,
			AverageRating: a.sum / float64(a.count),
			RatingCount:   a.count,
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.AverageRating != b.AverageRating {
			return a.AverageRating > b.AverageRating
		}
		if a.RatingCount != b.RatingCount {
			return a.RatingCount > b.RatingCount
		}
		return a.Entry.ID() < b.Entry.ID()
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// Rate records a rating for an existing entry and returns the rating id.
func (s *Service) Rate(ctx context.Context, entryID string, value float64) (string, error) {
	r, err := rating.New(entryID, value)
	if err != nil {
		return "", err //nolint:wrapcheck // validation error
	}
	if _, err := s.entries.Get(ctx, entryID); err != nil {
		return "", fmt.Errorf("get entry: %w", err)
	}
	id := s.newID()
	if err := s.ratings.Add(ctx, id, r); err != nil {
		return "", fmt.Errorf("add rating: %w", err)
	}
	return id, nil
}
