package storedex

import (
	"context"
	"fmt"
	"time"
)

// SearchService runs text and radius queries against the in-process indexes.
type SearchService struct {
	svc searchUseCase
	obs *observer
}

// Text returns stores matching query, most relevant first.
// A zero limit uses the default; a blank query yields no results.
func (s *SearchService) Text(ctx context.Context, query string, limit int) (_ []SearchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search_text", start, err) }()

	hits, err := s.svc.Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return searchResults(hits), nil
}

// Near returns stores within maxDistance meters of (lng, lat), nearest first.
// A zero maxDistance uses the default radius.
func (s *SearchService) Near(
	ctx context.Context, lng, lat, maxDistance float64, limit int,
) (_ []NearResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("search_near", start, err) }()

	hits, err := s.svc.Near(ctx, lng, lat, maxDistance, limit)
	if err != nil {
		return nil, fmt.Errorf("near: %w", err)
	}
	return nearResults(hits), nil
}
