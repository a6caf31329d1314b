package storedex

import (
	"context"

	"github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/domain/rating"
	"github.com/kailas-cloud/storedex/internal/domain/tag"
	"github.com/kailas-cloud/storedex/internal/index"
	cataloguc "github.com/kailas-cloud/storedex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/storedex/internal/usecase/health"
)

// --- catalogUseCase mock ---

type mockCatalogUC struct {
	createFn func(ctx context.Context, d entry.Draft) (entry.Entry, error)
	updateFn func(ctx context.Context, id string, p entry.Patch) (entry.Entry, error)
	getFn    func(ctx context.Context, id string) (entry.Entry, error)
	listFn   func(ctx context.Context, page int) (cataloguc.Page, error)
	byTagFn  func(ctx context.Context, t string) (cataloguc.TagListing, error)
}

func (m *mockCatalogUC) Create(ctx context.Context, d entry.Draft) (entry.Entry, error) {
	return m.createFn(ctx, d)
}

func (m *mockCatalogUC) Update(ctx context.Context, id string, p entry.Patch) (entry.Entry, error) {
	return m.updateFn(ctx, id, p)
}

func (m *mockCatalogUC) Get(ctx context.Context, id string) (entry.Entry, error) {
	return m.getFn(ctx, id)
}

func (m *mockCatalogUC) FindBySlug(ctx context.Context, s string) (entry.Entry, error) {
	return m.getFn(ctx, s)
}

func (m *mockCatalogUC) GetMany(context.Context, []string) ([]entry.Entry, error) {
	return nil, nil
}

func (m *mockCatalogUC) List(ctx context.Context, page int) (cataloguc.Page, error) {
	return m.listFn(ctx, page)
}

func (m *mockCatalogUC) ListByAuthor(context.Context, string) ([]entry.Entry, error) {
	return nil, nil
}

func (m *mockCatalogUC) TagFrequencies(context.Context) ([]tag.Frequency, error) {
	return nil, nil
}

func (m *mockCatalogUC) ListByTag(ctx context.Context, t string) (cataloguc.TagListing, error) {
	return m.byTagFn(ctx, t)
}

// --- searchUseCase mock ---

type mockSearchUC struct {
	searchFn func(ctx context.Context, text string, limit int) ([]index.SearchHit, error)
	nearFn   func(ctx context.Context, lng, lat, maxDistance float64, limit int) ([]index.NearHit, error)
}

func (m *mockSearchUC) Search(ctx context.Context, text string, limit int) ([]index.SearchHit, error) {
	return m.searchFn(ctx, text, limit)
}

func (m *mockSearchUC) Near(
	ctx context.Context, lng, lat, maxDistance float64, limit int,
) ([]index.NearHit, error) {
	return m.nearFn(ctx, lng, lat, maxDistance, limit)
}

// --- rankingUseCase mock ---

type mockRankingUC struct {
	topFn  func(ctx context.Context, limit, minRatingCount int) ([]rating.RankedEntry, error)
	rateFn func(ctx context.Context, entryID string, value float64) (string, error)
}

func (m *mockRankingUC) TopRanked(ctx context.Context, limit, minRatingCount int) ([]rating.RankedEntry, error) {
	return m.topFn(ctx, limit, minRatingCount)
}

func (m *mockRankingUC) Rate(ctx context.Context, entryID string, value float64) (string, error) {
	return m.rateFn(ctx, entryID, value)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }
