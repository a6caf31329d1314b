// Package rating reads and records the external rating dataset.
package rating

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/kailas-cloud/storedex/internal/domain"
	domrating "github.com/kailas-cloud/storedex/internal/domain/rating"
)

const ratingsPrefix = domain.KeyPrefix + "ratings:"

func ratingsKey(entryID string) string { return ratingsPrefix + entryID }

// store is the consumer interface for ratings (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo keeps one hash per rated entry: rating id -> value.
type Repo struct {
	store store
}

// New creates a rating repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Add records a rating under ratingID. Re-adding the same id overwrites its value.
func (r *Repo) Add(ctx context.Context, ratingID string, v domrating.Rating) error {
	value := strconv.FormatFloat(v.Value, 'f', -1, 64)
	if err := r.store.HSet(ctx, ratingsKey(v.EntryID), map[string]string{ratingID: value}); err != nil {
		return fmt.Errorf("hset rating %s: %w", ratingID, err)
	}
	return nil
}

// Ratings returns every rating, grouped by entry id and ordered by rating id.
func (r *Repo) Ratings(ctx context.Context) ([]domrating.Rating, error) {
	keys, err := r.store.Scan(ctx, ratingsPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan ratings: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	hashes, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}

	var out []domrating.Rating
	for i, h := range hashes {
		entryID := strings.TrimPrefix(keys[i], ratingsPrefix)
		ids := make([]string, 0, len(h))
		for id := range h {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			v, err := strconv.ParseFloat(h[id], 64)
			if err != nil {
				return nil, fmt.Errorf("rating %s/%s: %w", entryID, id, err)
			}
			out = append(out, domrating.Rating{EntryID: entryID, Value: v})
		}
	}
	return out, nil
}
