// Package catalog is the single mutation point for entries: it sequences
// validation, slug assignment, persistence and indexing.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/domain/slug"
	"github.com/kailas-cloud/storedex/internal/domain/tag"
	"github.com/kailas-cloud/storedex/internal/metrics"
)

// Page is one page of entries, newest first.
type Page struct {
	Entries []entry.Entry
	Page    int
	Pages   int
	Total   int
}

// TagListing is the tag overview together with the entries carrying the selected tag.
type TagListing struct {
	Tags    []tag.Frequency
	Entries []entry.Entry
}

// Service handles entry writes and catalog reads.
type Service struct {
	repo         Repository
	indexer      Indexer
	locks        *keyedMutex
	newID        func() string
	now          func() time.Time
	pageSize     int
	slugAttempts int
	indexTimeout time.Duration
	logger       *zap.Logger
}

// New creates a catalog service.
func New(repo Repository, indexer Indexer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:         repo,
		indexer:      indexer,
		locks:        newKeyedMutex(),
		newID:        uuid.NewString,
		now:          time.Now,
		pageSize:     6,
		slugAttempts: 5,
		indexTimeout: 5 * time.Second,
		logger:       logger,
	}
}

// WithPageSize configures the listing page size.
func (s *Service) WithPageSize(n int) *Service {
	if n > 0 {
		s.pageSize = n
	}
	return s
}

// WithSlugAttempts configures how many slug candidates are tried before giving up.
func (s *Service) WithSlugAttempts(n int) *Service {
	if n > 0 {
		s.slugAttempts = n
	}
	return s
}

// WithIndexTimeout bounds the index update that follows a persisted write.
func (s *Service) WithIndexTimeout(d time.Duration) *Service {
	if d > 0 {
		s.indexTimeout = d
	}
	return s
}

// WithClock replaces the creation timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithIDGenerator replaces the entry id source.
func (s *Service) WithIDGenerator(newID func() string) *Service {
	s.newID = newID
	return s
}

// Create validates the draft, assigns a unique slug, persists the entry and indexes it.
//
// When the entry is persisted but indexing fails, the entry is returned together with
// a *domain.IndexingDegradedError.
func (s *Service) Create(ctx context.Context, d entry.Draft) (entry.Entry, error) {
	d = d.Normalized()
	if err := d.Validate(); err != nil {
		return entry.Entry{}, err
	}
	base := slug.Normalize(d.Name)
	if base == "" {
		return entry.Entry{}, fmt.Errorf("name %q: %w", d.Name, domain.ErrInvalidName)
	}

	id := s.newID()
	createdAt := s.now()
	var created entry.Entry

	unlock := s.locks.Lock("slug:" + base)
	_, err := s.assignSlug(ctx, d.Name, "", func(candidate string) error {
		e, err := entry.New(id, candidate, d, createdAt)
		if err != nil {
			return err
		}
		if err := s.repo.Create(ctx, &e); err != nil {
			return err
		}
		created = e
		return nil
	})
	unlock()
	if err != nil {
		return entry.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	return created, s.index(ctx, created)
}

// Update applies the patch. A name whose base no longer matches the current slug
// reassigns it, ignoring the entry's own claim. The entry is always re-indexed.
func (s *Service) Update(ctx context.Context, id string, p entry.Patch) (entry.Entry, error) {
	unlockEntry := s.locks.Lock("entry:" + id)
	defer unlockEntry()

	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	updated, nameChanged, err := current.Apply(p)
	if err != nil {
		return entry.Entry{}, err //nolint:wrapcheck // domain validation/ownership errors
	}

	base := slug.Normalize(updated.Name())
	if nameChanged && base == "" {
		return entry.Entry{}, fmt.Errorf("name %q: %w", updated.Name(), domain.ErrInvalidName)
	}
	// A rename within the same base keeps the current slug.
	if !nameChanged || slug.Matches(base, current.Slug()) {
		if err := s.repo.Update(ctx, current.Slug(), &updated); err != nil {
			return entry.Entry{}, fmt.Errorf("update entry: %w", err)
		}
		return updated, s.index(ctx, updated)
	}

	unlockSlug := s.locks.Lock("slug:" + base)
	_, err = s.assignSlug(ctx, updated.Name(), id, func(candidate string) error {
		next := updated.WithSlug(candidate)
		if err := s.repo.Update(ctx, current.Slug(), &next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	unlockSlug()
	if err != nil {
		return entry.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	return updated, s.index(ctx, updated)
}

// Get returns an entry by id.
func (s *Service) Get(ctx context.Context, id string) (entry.Entry, error) {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	return e, nil
}

// FindBySlug returns the entry holding slug.
func (s *Service) FindBySlug(ctx context.Context, slugValue string) (entry.Entry, error) {
	e, err := s.repo.FindBySlug(ctx, slugValue)
	if err != nil {
		return entry.Entry{}, fmt.Errorf("find by slug: %w", err)
	}
	return e, nil
}

// GetMany returns the existing entries among ids (e.g. a user's favorites), in order.
func (s *Service) GetMany(ctx context.Context, ids []string) ([]entry.Entry, error) {
	out, err := s.repo.GetMany(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get entries: %w", err)
	}
	return out, nil
}

// List returns a page of entries, newest first. Pages past the end are clamped to the last page.
func (s *Service) List(ctx context.Context, page int) (Page, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("list entries: %w", err)
	}
	sortNewestFirst(all)

	total := len(all)
	pages := (total + s.pageSize - 1) / s.pageSize
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}
	start := min((page-1)*s.pageSize, total)
	end := min(start+s.pageSize, total)
	return Page{Entries: all[start:end], Page: page, Pages: pages, Total: total}, nil
}

// ListByAuthor returns the entries owned by authorID, newest first.
func (s *Service) ListByAuthor(ctx context.Context, authorID string) ([]entry.Entry, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	var out []entry.Entry
	for _, e := range all {
		if e.AuthorID() == authorID {
			out = append(out, e)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

// TagFrequencies counts entries per tag, most used first.
func (s *Service) TagFrequencies(ctx context.Context) ([]tag.Frequency, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	return countTags(all), nil
}

// ListByTag returns the tag overview and the entries carrying t.
// An empty t selects every entry that has at least one tag.
func (s *Service) ListByTag(ctx context.Context, t string) (TagListing, error) {
	all, err := s.repo.All(ctx)
	if err != nil {
		return TagListing{}, fmt.Errorf("list entries: %w", err)
	}

	var selected []entry.Entry
	for _, e := range all {
		if (t == "" && len(e.Tags()) > 0) || (t != "" && e.HasTag(t)) {
			selected = append(selected, e)
		}
	}
	sortNewestFirst(selected)
	return TagListing{Tags: countTags(all), Entries: selected}, nil
}

// assignSlug derives the count-based candidate and tries it with commit. A candidate
// already claimed by someone else moves on to the next suffix.
func (s *Service) assignSlug(
	ctx context.Context, name, excludeID string, commit func(candidate string) error,
) (string, error) {
	var k int
	candidate, err := slug.Assign(ctx, name, func(ctx context.Context, base string) (int, error) {
		n, err := s.repo.CountSlugs(ctx, base, excludeID)
		k = n
		return n, err
	})
	if err != nil {
		return "", err //nolint:wrapcheck // slug errors carry context
	}
	base := slug.Normalize(name)

	for attempt := 0; attempt < s.slugAttempts; attempt++ {
		err := commit(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return "", err
		}
		metrics.SlugCollisionsTotal.Inc()
		s.logger.Debug("Slug already claimed", zap.String("slug", candidate))
		k++
		candidate = slug.WithSuffix(base, k+1)
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts: %w", base, s.slugAttempts, domain.ErrConflict)
}

// index ignores the caller's cancellation: a persisted entry is either indexed
// or reported degraded, never dropped because the client went away.
func (s *Service) index(ctx context.Context, e entry.Entry) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.indexTimeout)
	defer cancel()
	if err := s.indexer.Upsert(ctx, e); err != nil {
		s.logger.Error("Entry persisted but not indexed",
			zap.String("entry_id", e.ID()),
			zap.Error(err),
		)
		return &domain.IndexingDegradedError{EntryID: e.ID(), Err: err}
	}
	return nil
}

func sortNewestFirst(entries []entry.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].CreatedAt(), entries[j].CreatedAt()
		if !a.Equal(b) {
			return a.After(b)
		}
		return entries[i].ID() < entries[j].ID()
	})
}

func countTags(entries []entry.Entry) []tag.Frequency {
	sets := make([][]string, len(entries))
	for i, e := range entries {
		sets[i] = e.Tags()
	}
	return tag.Count(sets)
}
