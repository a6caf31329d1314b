// Package search serves free-text and proximity queries over the entry indexes.
package search

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/geo"
	"github.com/kailas-cloud/storedex/internal/index"
)

// Limits holds query defaults and the upper bound on result counts.
type Limits struct {
	DefaultLimit       int
	MaxLimit           int
	DefaultMaxDistance float64
}

// DefaultLimits returns the catalog defaults: 10 results, at most 50, within 10km.
func DefaultLimits() Limits {
	return Limits{DefaultLimit: 10, MaxLimit: 50, DefaultMaxDistance: 10_000}
}

// Service handles text search and near queries.
type Service struct {
	idx    Index
	limits Limits
}

// New creates a search service with default limits.
func New(idx Index) *Service {
	return &Service{idx: idx, limits: DefaultLimits()}
}

// WithLimits overrides the query limits. Zero fields keep their defaults.
func (s *Service) WithLimits(l Limits) *Service {
	if l.DefaultLimit > 0 {
		s.limits.DefaultLimit = l.DefaultLimit
	}
	if l.MaxLimit > 0 {
		s.limits.MaxLimit = l.MaxLimit
	}
	if l.DefaultMaxDistance > 0 {
		s.limits.DefaultMaxDistance = l.DefaultMaxDistance
	}
	return s
}

// Search returns entries matching text, most relevant first.
// A blank query yields an empty result.
func (s *Service) Search(ctx context.Context, text string, limit int) ([]index.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	limit, err := s.limit(limit)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []index.SearchHit{}, nil
	}
	return s.idx.Search(text, limit), nil
}

// Near returns entries within maxDistance meters of (lng, lat), nearest first.
// A zero maxDistance uses the default radius.
func (s *Service) Near(
	ctx context.Context, lng, lat, maxDistance float64, limit int,
) ([]index.NearHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("near: %w", err)
	}
	center, err := geo.NewPoint(lng, lat)
	if err != nil {
		return nil, fmt.Errorf("near: %w", err)
	}
	if math.IsNaN(maxDistance) || math.IsInf(maxDistance, 0) {
		return nil, domain.NewValidationError("max_distance", "must be a finite number")
	}
	if maxDistance < 0 {
		return nil, domain.NewValidationError("max_distance", "must not be negative")
	}
	if maxDistance == 0 {
		maxDistance = s.limits.DefaultMaxDistance
	}
	limit, err = s.limit(limit)
	if err != nil {
		return nil, err
	}
	return s.idx.Near(center, maxDistance, limit), nil
}

// limit applies the default to zero and caps at the maximum.
func (s *Service) limit(n int) (int, error) {
	switch {
	case n < 0:
		return 0, domain.NewValidationError("limit", "must not be negative")
	case n == 0:
		return s.limits.DefaultLimit, nil
	case n > s.limits.MaxLimit:
		return s.limits.MaxLimit, nil
	default:
		return n, nil
	}
}
