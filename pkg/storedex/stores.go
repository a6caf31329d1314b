package storedex

import (
	"context"
	"fmt"
	"time"
)

// StoreService creates, updates and browses stores.
type StoreService struct {
	svc catalogUseCase
	obs *observer
}

// Create stores a new entry under a freshly assigned slug.
// When only indexing fails the store is returned together with an
// *IndexingDegradedError; see IsIndexingDegraded.
func (s *StoreService) Create(ctx context.Context, n NewStore) (_ Store, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_create", start, err) }()

	e, err := s.svc.Create(ctx, toDraft(n))
	if err != nil {
		if IsIndexingDegraded(err) {
			return storeFromEntry(&e), err
		}
		return Store{}, fmt.Errorf("create store: %w", err)
	}
	return storeFromEntry(&e), nil
}

// Update applies a partial update. A name change reassigns the slug.
// Indexing failures are reported as in Create.
func (s *StoreService) Update(ctx context.Context, id string, u StoreUpdate) (_ Store, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_update", start, err) }()

	e, err := s.svc.Update(ctx, id, toPatch(u))
	if err != nil {
		if IsIndexingDegraded(err) {
			return storeFromEntry(&e), err
		}
		return Store{}, fmt.Errorf("update store %s: %w", id, err)
	}
	return storeFromEntry(&e), nil
}

// Get returns a store by ID.
func (s *StoreService) Get(ctx context.Context, id string) (_ Store, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_get", start, err) }()

	e, err := s.svc.Get(ctx, id)
	if err != nil {
		return Store{}, fmt.Errorf("get store %s: %w", id, err)
	}
	return storeFromEntry(&e), nil
}

// BySlug returns a store by its URL slug.
func (s *StoreService) BySlug(ctx context.Context, slug string) (_ Store, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_by_slug", start, err) }()

	e, err := s.svc.FindBySlug(ctx, slug)
	if err != nil {
		return Store{}, fmt.Errorf("get store by slug %s: %w", slug, err)
	}
	return storeFromEntry(&e), nil
}

// GetMany returns the stores that exist among ids.
func (s *StoreService) GetMany(ctx context.Context, ids []string) (_ []Store, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_get_many", start, err) }()

	entries, err := s.svc.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get stores: %w", err)
	}
	return storesFromEntries(entries), nil
}

// List returns one page of stores, newest first. Pages are 1-based.
func (s *StoreService) List(ctx context.Context, page int) (_ StorePage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_list", start, err) }()

	p, err := s.svc.List(ctx, page)
	if err != nil {
		return StorePage{}, fmt.Errorf("list stores: %w", err)
	}
	return pageFromCatalog(p), nil
}

// ByAuthor returns the stores created by authorID, newest first.
func (s *StoreService) ByAuthor(ctx context.Context, authorID string) (_ []Store, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_by_author", start, err) }()

	entries, err := s.svc.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, fmt.Errorf("list stores by author %s: %w", authorID, err)
	}
	return storesFromEntries(entries), nil
}

// Tags returns how many stores carry each tag, most common first.
func (s *StoreService) Tags(ctx context.Context) (_ []TagCount, err error) {
	start := time.Now()
	defer func() { s.obs.observe("tags", start, err) }()

	freqs, err := s.svc.TagFrequencies(ctx)
	if err != nil {
		return nil, fmt.Errorf("tag frequencies: %w", err)
	}
	return tagCounts(freqs), nil
}

// ByTag returns the tag counts and the stores carrying t. An empty t selects
// every store that has at least one tag.
func (s *StoreService) ByTag(ctx context.Context, t string) (_ TagListing, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_by_tag", start, err) }()

	l, err := s.svc.ListByTag(ctx, t)
	if err != nil {
		return TagListing{}, fmt.Errorf("list stores by tag %q: %w", t, err)
	}
	return TagListing{Tags: tagCounts(l.Tags), Stores: storesFromEntries(l.Entries)}, nil
}
