// Package index coordinates the text and geo indexes so that readers only ever
// observe an entry indexed in both or in neither.
package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/entry"
	domaingeo "github.com/kailas-cloud/storedex/internal/domain/geo"
	"github.com/kailas-cloud/storedex/internal/index/geo"
	"github.com/kailas-cloud/storedex/internal/index/text"
	"github.com/kailas-cloud/storedex/internal/metrics"
)

// SearchHit is a text match with its entry.
type SearchHit struct {
	Entry entry.Entry
	Score float64
}

// NearHit is a radius match with its entry.
type NearHit struct {
	Entry    entry.Entry
	Distance float64 // meters
}

type staged struct {
	text text.Staged
	geo  geo.Staged
}

// Indexer owns the text index, the geo index and the entry snapshot they point into.
type Indexer struct {
	mu      sync.RWMutex
	text    TextIndex
	geo     GeoIndex
	entries map[string]entry.Entry

	// pending collects upserts committed while a rebuild is loading, so the
	// rebuilt indexes do not lose them.
	pending    map[string]entry.Entry
	rebuilding bool
	rebuildMu  sync.Mutex
	ready      atomic.Bool

	newText func() TextIndex
	newGeo  func() GeoIndex

	maxTries        uint
	initialInterval time.Duration
	maxInterval     time.Duration

	logger *zap.Logger
}

// New creates an Indexer over empty in-memory indexes. Call Rebuild before serving.
func New(logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	ix := &Indexer{
		entries:         make(map[string]entry.Entry),
		newText:         func() TextIndex { return text.New() },
		newGeo:          func() GeoIndex { return geo.New() },
		maxTries:        4,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     time.Second,
		logger:          logger,
	}
	ix.text = ix.newText()
	ix.geo = ix.newGeo()
	return ix
}

// WithRetry configures how staging and rebuild reads are retried.
func (ix *Indexer) WithRetry(maxTries uint, initialInterval, maxInterval time.Duration) *Indexer {
	if maxTries > 0 {
		ix.maxTries = maxTries
	}
	if initialInterval > 0 {
		ix.initialInterval = initialInterval
	}
	if maxInterval > 0 {
		ix.maxInterval = maxInterval
	}
	return ix
}

// WithIndexes replaces the index constructors used now and on every rebuild.
func (ix *Indexer) WithIndexes(newText func() TextIndex, newGeo func() GeoIndex) *Indexer {
	ix.newText = newText
	ix.newGeo = newGeo
	ix.text = newText()
	ix.geo = newGeo()
	return ix
}

// Ready reports whether at least one rebuild has completed.
func (ix *Indexer) Ready() bool { return ix.ready.Load() }

// Len returns the number of entries in the snapshot.
func (ix *Indexer) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Upsert (re)indexes e in both indexes. Text and geo are staged concurrently and
// committed together; a failed stage leaves the previous state of e untouched.
//
// Invalid coordinates fail with domain.ErrInvalidCoordinates. Staging that keeps
// failing after retries fails with domain.ErrIndexingUnavailable.
func (ix *Indexer) Upsert(ctx context.Context, e entry.Entry) error {
	ix.mu.RLock()
	t, g := ix.text, ix.geo
	ix.mu.RUnlock()

	s, err := backoff.Retry(ctx, func() (staged, error) {
		s, err := stage(ctx, t, g, e)
		if err != nil && (errors.Is(err, domain.ErrInvalidCoordinates) || ctx.Err() != nil) {
			return staged{}, backoff.Permanent(err)
		}
		return s, err
	}, ix.retryOptions("upsert", e.ID())...)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCoordinates) {
			metrics.IndexUpsertsTotal.WithLabelValues("invalid").Inc()
			return fmt.Errorf("index entry %s: %w", e.ID(), err)
		}
		metrics.IndexUpsertsTotal.WithLabelValues("unavailable").Inc()
		return fmt.Errorf("index entry %s: %w: %w", e.ID(), domain.ErrIndexingUnavailable, err)
	}

	ix.mu.Lock()
	ix.text.Apply(s.text)
	ix.geo.Apply(s.geo)
	ix.entries[e.ID()] = e
	if ix.rebuilding {
		ix.pending[e.ID()] = e
	}
	ix.observeSizesLocked()
	ix.mu.Unlock()

	metrics.IndexUpsertsTotal.WithLabelValues("ok").Inc()
	return nil
}

// Rebuild loads every entry from src, builds fresh indexes off to the side and
// swaps them in at once. Entries with invalid coordinates stay text-searchable.
func (ix *Indexer) Rebuild(ctx context.Context, src Source) error {
	ix.rebuildMu.Lock()
	defer ix.rebuildMu.Unlock()

	start := time.Now()
	ix.mu.Lock()
	ix.rebuilding = true
	ix.pending = make(map[string]entry.Entry)
	ix.mu.Unlock()

	swapped := false
	defer func() {
		if swapped {
			return
		}
		ix.mu.Lock()
		ix.rebuilding = false
		ix.pending = nil
		ix.mu.Unlock()
	}()

	all, err := backoff.Retry(ctx, func() ([]entry.Entry, error) {
		return src.All(ctx)
	}, ix.retryOptions("rebuild", "")...)
	if err != nil {
		return fmt.Errorf("load entries: %w: %w", domain.ErrIndexingUnavailable, err)
	}

	t, g := ix.newText(), ix.newGeo()
	snapshot := make(map[string]entry.Entry, len(all))
	for _, e := range all {
		if err := ix.load(ctx, t, g, e); err != nil {
			return err
		}
		snapshot[e.ID()] = e
	}

	ix.mu.Lock()
	for id, e := range ix.pending {
		if err := ix.load(ctx, t, g, e); err != nil {
			ix.mu.Unlock()
			return err
		}
		snapshot[id] = e
	}
	ix.text, ix.geo, ix.entries = t, g, snapshot
	ix.rebuilding = false
	ix.pending = nil
	swapped = true
	ix.observeSizesLocked()
	ix.mu.Unlock()

	ix.ready.Store(true)
	metrics.IndexRebuildDuration.Observe(time.Since(start).Seconds())
	ix.logger.Info("Index rebuilt",
		zap.Int("entries", len(snapshot)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

// RebuildEvery calls Rebuild from src every interval until ctx is done. It repairs
// entries whose index update failed after they were persisted. A non-positive
// interval returns immediately.
func (ix *Indexer) RebuildEvery(ctx context.Context, src Source, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ix.Rebuild(ctx, src); err != nil && ctx.Err() == nil {
				ix.logger.Error("Periodic index rebuild failed", zap.Error(err))
			}
		}
	}
}

// Search returns entries matching query, most relevant first.
func (ix *Indexer) Search(query string, limit int) []SearchHit {
	start := time.Now()
	defer func() { metrics.QueryDuration.WithLabelValues("search").Observe(time.Since(start).Seconds()) }()

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := ix.text.Search(query, limit)
	out := make([]SearchHit, 0, len(hits))
	for _, h := range hits {
		if e, ok := ix.entries[h.ID]; ok {
			out = append(out, SearchHit{Entry: e, Score: h.Score})
		}
	}
	return out
}

// Near returns entries within maxDistance meters of center, nearest first.
func (ix *Indexer) Near(center domaingeo.Point, maxDistance float64, limit int) []NearHit {
	start := time.Now()
	defer func() { metrics.QueryDuration.WithLabelValues("near").Observe(time.Since(start).Seconds()) }()

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := ix.geo.Near(center, maxDistance, limit)
	out := make([]NearHit, 0, len(hits))
	for _, h := range hits {
		if e, ok := ix.entries[h.ID]; ok {
			out = append(out, NearHit{Entry: e, Distance: h.Distance})
		}
	}
	return out
}

// load stages e into indexes that are not yet visible to readers.
func (ix *Indexer) load(ctx context.Context, t TextIndex, g GeoIndex, e entry.Entry) error {
	ts, err := t.Stage(ctx, e)
	if err != nil {
		return fmt.Errorf("stage text %s: %w", e.ID(), err)
	}
	t.Apply(ts)

	gs, err := g.Stage(ctx, e)
	if errors.Is(err, domain.ErrInvalidCoordinates) {
		ix.logger.Warn("Entry skipped by geo index", zap.String("entry_id", e.ID()), zap.Error(err))
		return nil
	}
	if err != nil {
		return fmt.Errorf("stage geo %s: %w", e.ID(), err)
	}
	g.Apply(gs)
	return nil
}

func (ix *Indexer) retryOptions(op, entryID string) []backoff.RetryOption {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = ix.initialInterval
	b.MaxInterval = ix.maxInterval
	return []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(ix.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			metrics.IndexRetriesTotal.Inc()
			ix.logger.Warn("Indexing attempt failed, retrying",
				zap.String("op", op),
				zap.String("entry_id", entryID),
				zap.Duration("next", next),
				zap.Error(err),
			)
		}),
	}
}

func (ix *Indexer) observeSizesLocked() {
	metrics.IndexedEntries.WithLabelValues("text").Set(float64(ix.text.Len()))
	metrics.IndexedEntries.WithLabelValues("geo").Set(float64(ix.geo.Len()))
}

// stage computes text and geo state for e concurrently.
func stage(ctx context.Context, t TextIndex, g GeoIndex, e entry.Entry) (staged, error) {
	var s staged
	grp, gctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		ts, err := t.Stage(gctx, e)
		if err != nil {
			return fmt.Errorf("stage text: %w", err)
		}
		s.text = ts
		return nil
	})
	grp.Go(func() error {
		gs, err := g.Stage(gctx, e)
		if err != nil {
			return fmt.Errorf("stage geo: %w", err)
		}
		s.geo = gs
		return nil
	})
	if err := grp.Wait(); err != nil {
		return staged{}, err //nolint:wrapcheck // already wrapped per stage
	}
	return s, nil
}
