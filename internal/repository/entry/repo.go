// Package entry persists catalog entries and their unique slug claims.
package entry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storedex/internal/db"
	"github.com/kailas-cloud/storedex/internal/domain"
	domentry "github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/domain/slug"
)

// store is the consumer interface for entries (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetNX(ctx context.Context, key string, value []byte) (bool, error)
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Repo implements usecase/catalog.Repository and index.Source.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates an entry repository.
func New(s store) *Repo {
	return &Repo{store: s, logger: zap.NewNop()}
}

// WithLogger sets the logger used for claims that could not be released.
func (r *Repo) WithLogger(l *zap.Logger) *Repo {
	if l != nil {
		r.logger = l
	}
	return r
}

// CountSlugs counts claimed slugs equal to base or a numbered variant of it,
// ignoring the claim held by excludeID.
func (r *Repo) CountSlugs(ctx context.Context, base, excludeID string) (int, error) {
	keys, err := r.store.Scan(ctx, slugKey(base)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan slugs %s: %w", base, err)
	}

	matching := keys[:0]
	for _, k := range keys {
		if slug.Matches(base, strings.TrimPrefix(k, slugPrefix)) {
			matching = append(matching, k)
		}
	}
	if excludeID == "" || len(matching) == 0 {
		return len(matching), nil
	}

	owners, err := r.store.MGet(ctx, matching)
	if err != nil {
		return 0, fmt.Errorf("read slug owners %s: %w", base, err)
	}
	n := 0
	for _, owner := range owners {
		if owner != nil && string(owner) != excludeID {
			n++
		}
	}
	return n, nil
}

// Create claims the entry slug and stores the entry. A slug that is already
// claimed fails with domain.ErrConflict and stores nothing.
func (r *Repo) Create(ctx context.Context, e *domentry.Entry) error {
	data, err := marshalEntry(e)
	if err != nil {
		return err
	}
	if err := r.claim(ctx, e.Slug(), e.ID()); err != nil {
		return err
	}
	if err := r.store.Set(ctx, entryKey(e.ID()), data); err != nil {
		_ = r.store.Del(ctx, slugKey(e.Slug()))
		return fmt.Errorf("set %s: %w", e.ID(), err)
	}
	return nil
}

// Update stores the new state of an entry. When the slug changed, the new slug is
// claimed first and the previous claim released only after the entry is written.
// A failed release is logged and does not fail the update.
func (r *Repo) Update(ctx context.Context, previousSlug string, e *domentry.Entry) error {
	data, err := marshalEntry(e)
	if err != nil {
		return err
	}
	slugChanged := previousSlug != e.Slug()
	if slugChanged {
		if err := r.claim(ctx, e.Slug(), e.ID()); err != nil {
			return err
		}
	}
	if err := r.store.Set(ctx, entryKey(e.ID()), data); err != nil {
		if slugChanged {
			_ = r.store.Del(ctx, slugKey(e.Slug()))
		}
		return fmt.Errorf("set %s: %w", e.ID(), err)
	}
	if slugChanged {
		// The entry already carries its new slug; a leftover claim only reserves the old one.
		if err := r.store.Del(ctx, slugKey(previousSlug)); err != nil {
			r.logger.Warn("Failed to release previous slug",
				zap.String("entry_id", e.ID()),
				zap.String("slug", previousSlug),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Get returns an entry by id.
func (r *Repo) Get(ctx context.Context, id string) (domentry.Entry, error) {
	data, err := r.store.Get(ctx, entryKey(id))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domentry.Entry{}, fmt.Errorf("entry %s: %w", id, domain.ErrNotFound)
		}
		return domentry.Entry{}, fmt.Errorf("get %s: %w", id, err)
	}
	return unmarshalEntry(data)
}

// FindBySlug resolves the slug claim and returns its entry.
func (r *Repo) FindBySlug(ctx context.Context, s string) (domentry.Entry, error) {
	id, err := r.store.Get(ctx, slugKey(s))
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domentry.Entry{}, fmt.Errorf("slug %s: %w", s, domain.ErrNotFound)
		}
		return domentry.Entry{}, fmt.Errorf("get slug %s: %w", s, err)
	}
	e, err := r.Get(ctx, string(id))
	if err != nil {
		return domentry.Entry{}, err
	}
	if e.Slug() != s {
		// Stale claim left by a rename.
		return domentry.Entry{}, fmt.Errorf("slug %s: %w", s, domain.ErrNotFound)
	}
	return e, nil
}

// GetMany returns the entries that exist among ids, in the given order.
func (r *Repo) GetMany(ctx context.Context, ids []string) ([]domentry.Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKey(id)
	}
	return r.load(ctx, keys)
}

// All returns every stored entry ordered by id.
func (r *Repo) All(ctx context.Context) ([]domentry.Entry, error) {
	keys, err := r.store.Scan(ctx, entryPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan entries: %w", err)
	}
	sort.Strings(keys)
	return r.load(ctx, keys)
}

func (r *Repo) load(ctx context.Context, keys []string) ([]domentry.Entry, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	blobs, err := r.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	out := make([]domentry.Entry, 0, len(blobs))
	for i, data := range blobs {
		if data == nil {
			continue
		}
		e, err := unmarshalEntry(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keys[i], err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repo) claim(ctx context.Context, s, id string) error {
	ok, err := r.store.SetNX(ctx, slugKey(s), []byte(id))
	if err != nil {
		return fmt.Errorf("claim slug %s: %w", s, err)
	}
	if !ok {
		return fmt.Errorf("slug %s: %w", s, domain.ErrConflict)
	}
	return nil
}
