package storedex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/storedex/internal/config"
	"github.com/kailas-cloud/storedex/internal/db"
	"github.com/kailas-cloud/storedex/internal/db/memory"
	dbRedis "github.com/kailas-cloud/storedex/internal/db/redis"
	"github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/domain/rating"
	"github.com/kailas-cloud/storedex/internal/domain/tag"
	"github.com/kailas-cloud/storedex/internal/index"
	entryrepo "github.com/kailas-cloud/storedex/internal/repository/entry"
	ratingrepo "github.com/kailas-cloud/storedex/internal/repository/rating"
	cataloguc "github.com/kailas-cloud/storedex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/storedex/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/storedex/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/storedex/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal seams for substitution in tests.
type catalogUseCase interface {
	Create(ctx context.Context, d entry.Draft) (entry.Entry, error)
	Update(ctx context.Context, id string, p entry.Patch) (entry.Entry, error)
	Get(ctx context.Context, id string) (entry.Entry, error)
	FindBySlug(ctx context.Context, slug string) (entry.Entry, error)
	GetMany(ctx context.Context, ids []string) ([]entry.Entry, error)
	List(ctx context.Context, page int) (cataloguc.Page, error)
	ListByAuthor(ctx context.Context, authorID string) ([]entry.Entry, error)
	TagFrequencies(ctx context.Context) ([]tag.Frequency, error)
	ListByTag(ctx context.Context, t string) (cataloguc.TagListing, error)
}

type searchUseCase interface {
	Search(ctx context.Context, text string, limit int) ([]index.SearchHit, error)
	Near(ctx context.Context, lng, lat, maxDistance float64, limit int) ([]index.NearHit, error)
}

type rankingUseCase interface {
	TopRanked(ctx context.Context, limit, minRatingCount int) ([]rating.RankedEntry, error)
	Rate(ctx context.Context, entryID string, value float64) (string, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client is the embedded storedex entry point.
type Client struct {
	store      db.Store
	stop       func()
	catalogSvc catalogUseCase
	searchSvc  searchUseCase
	rankingSvc rankingUseCase
	healthSvc  healthUseCase
	obs        *observer
}

// New creates a Client, waits for the store and loads the search indexes from it.
// The provided context bounds the readiness check and the initial rebuild.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		driver:             config.DriverMemory,
		readinessTimeout:   defaultReadinessTimeout,
		defaultLimit:       searchuc.DefaultLimits().DefaultLimit,
		maxLimit:           searchuc.DefaultLimits().MaxLimit,
		defaultMaxDistance: searchuc.DefaultLimits().DefaultMaxDistance,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("storedex: database not ready: %w", err)
	}

	c, err := wireClient(ctx, store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case config.DriverMemory:
		return memory.NewStore(), nil
	case config.DriverRedis, config.DriverValkey:
		s, err := dbRedis.NewStore(redisConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("storedex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storedex: unknown driver %q", cfg.driver)
	}
}

func redisConfig(cfg *clientConfig) dbRedis.Config {
	return dbRedis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	entries := entryrepo.New(store).WithLogger(cfg.logger)
	ratings := ratingrepo.New(store)

	indexer := index.New(cfg.logger)
	if err := indexer.Rebuild(ctx, entries); err != nil {
		return nil, fmt.Errorf("storedex: rebuild index: %w", err)
	}

	catalogSvc := cataloguc.New(entries, indexer, cfg.logger)
	if cfg.pageSize > 0 {
		catalogSvc = catalogSvc.WithPageSize(cfg.pageSize)
	}
	if cfg.slugAttempts > 0 {
		catalogSvc = catalogSvc.WithSlugAttempts(cfg.slugAttempts)
	}
	catalogSvc = catalogSvc.WithIndexTimeout(cfg.indexTimeout)

	searchSvc := searchuc.New(indexer).WithLimits(searchuc.Limits{
		DefaultLimit:       cfg.defaultLimit,
		MaxLimit:           cfg.maxLimit,
		DefaultMaxDistance: cfg.defaultMaxDistance,
	})

	stop := func() {}
	if cfg.rebuildInterval > 0 {
		rebuildCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		go indexer.RebuildEvery(rebuildCtx, entries, cfg.rebuildInterval)
		stop = cancel
	}

	return &Client{
		store:      store,
		stop:       stop,
		catalogSvc: catalogSvc,
		searchSvc:  searchSvc,
		rankingSvc: rankinguc.New(ratings, entries),
		healthSvc:  healthuc.New(store, indexer),
		obs:        obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.stop != nil {
		c.stop()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Health reports storage connectivity and index readiness.
func (c *Client) Health(ctx context.Context) HealthReport {
	start := time.Now()
	r := c.healthSvc.Check(ctx)
	var err error
	if r.Status != healthuc.Healthy {
		err = fmt.Errorf("health: %s", r.Status)
	}
	c.obs.observe("health", start, err)
	return healthFromReport(r)
}

// Stores returns the catalog write and browse service.
func (c *Client) Stores() *StoreService {
	return &StoreService{svc: c.catalogSvc, obs: c.obs}
}

// Search returns the text and radius query service.
func (c *Client) Search() *SearchService {
	return &SearchService{svc: c.searchSvc, obs: c.obs}
}

// Ratings returns the rating and ranking service.
func (c *Client) Ratings() *RatingService {
	return &RatingService{svc: c.rankingSvc, obs: c.obs}
}
