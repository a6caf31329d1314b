package catalog

import (
	"context"

	"github.com/kailas-cloud/storedex/internal/domain/entry"
)

// Repository defines the storage contract for entries.
type Repository interface {
	// CountSlugs counts claimed slugs matching base or base-N, ignoring excludeID's claim.
	CountSlugs(ctx context.Context, base, excludeID string) (int, error)
	// Create claims the slug atomically; an existing claim fails with domain.ErrConflict.
	Create(ctx context.Context, e *entry.Entry) error
	// Update moves the slug claim when it differs from previousSlug.
	Update(ctx context.Context, previousSlug string, e *entry.Entry) error
	Get(ctx context.Context, id string) (entry.Entry, error)
	FindBySlug(ctx context.Context, slug string) (entry.Entry, error)
	GetMany(ctx context.Context, ids []string) ([]entry.Entry, error)
	All(ctx context.Context) ([]entry.Entry, error)
}

// Indexer makes persisted entries visible to text and geo queries.
type Indexer interface {
	Upsert(ctx context.Context, e entry.Entry) error
}
