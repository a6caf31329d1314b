package storedex

import (
	"time"

	"github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/domain/geo"
	"github.com/kailas-cloud/storedex/internal/domain/rating"
	"github.com/kailas-cloud/storedex/internal/domain/tag"
	"github.com/kailas-cloud/storedex/internal/index"
	cataloguc "github.com/kailas-cloud/storedex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/storedex/internal/usecase/health"
)

// Point is a WGS84 position in degrees.
type Point struct {
	Lng float64
	Lat float64
}

// Store is a catalog entry.
type Store struct {
	ID          string
	Name        string
	Slug        string
	Description string
	Tags        []string
	Address     string
	// Coordinates is nil for legacy records stored without a position.
	Coordinates *Point
	Photo       string
	AuthorID    string
	CreatedAt   time.Time
}

// NewStore is a create request.
type NewStore struct {
	Name        string
	Description string
	Tags        []string
	Address     string
	Coordinates Point
	Photo       string
	AuthorID    string
}

// StoreUpdate is a partial update. Nil fields are unchanged.
type StoreUpdate struct {
	Name        *string
	Description *string
	Tags        *[]string
	Address     *string
	Coordinates *Point
	Photo       *string
	// ActorID, when set, must match the store author.
	ActorID string
}

// StorePage is one page of the newest-first listing.
type StorePage struct {
	Stores []Store
	Page   int
	Pages  int
	Total  int
}

// TagCount is the number of stores carrying a tag.
type TagCount struct {
	Tag   string
	Count int
}

// TagListing pairs the tag counts with the stores carrying the selected tag.
type TagListing struct {
	Tags   []TagCount
	Stores []Store
}

// SearchResult is a single text hit.
type SearchResult struct {
	Store Store
	Score float64
}

// NearResult is a single radius hit.
type NearResult struct {
	Store          Store
	DistanceMeters float64
}

// RankedStore is a store with its rating aggregate.
type RankedStore struct {
	Store         Store
	AverageRating float64
	RatingCount   int
}

// HealthReport summarizes storage and index state.
type HealthReport struct {
	Status         string
	Checks         map[string]string
	IndexedEntries int
}

func storeFromEntry(e *entry.Entry) Store {
	s := Store{
		ID:          e.ID(),
		Name:        e.Name(),
		Slug:        e.Slug(),
		Description: e.Description(),
		Tags:        e.Tags(),
		Address:     e.Location().Address,
		Photo:       e.Photo(),
		AuthorID:    e.AuthorID(),
		CreatedAt:   e.CreatedAt(),
	}
	if p, ok := e.Coordinates(); ok {
		s.Coordinates = &Point{Lng: p.Lng, Lat: p.Lat}
	}
	return s
}

func storesFromEntries(entries []entry.Entry) []Store {
	out := make([]Store, len(entries))
	for i := range entries {
		out[i] = storeFromEntry(&entries[i])
	}
	return out
}

func toDraft(n NewStore) entry.Draft {
	return entry.Draft{
		Name:        n.Name,
		Description: n.Description,
		Tags:        n.Tags,
		Address:     n.Address,
		Coordinates: &geo.Point{Lng: n.Coordinates.Lng, Lat: n.Coordinates.Lat},
		Photo:       n.Photo,
		AuthorID:    n.AuthorID,
	}
}

func toPatch(u StoreUpdate) entry.Patch {
	p := entry.Patch{
		Name:        u.Name,
		Description: u.Description,
		Tags:        u.Tags,
		Address:     u.Address,
		Photo:       u.Photo,
		ActorID:     u.ActorID,
	}
	if u.Coordinates != nil {
		p.Coordinates = &geo.Point{Lng: u.Coordinates.Lng, Lat: u.Coordinates.Lat}
	}
	return p
}

func pageFromCatalog(p cataloguc.Page) StorePage {
	return StorePage{Stores: storesFromEntries(p.Entries), Page: p.Page, Pages: p.Pages, Total: p.Total}
}

func tagCounts(freqs []tag.Frequency) []TagCount {
	out := make([]TagCount, len(freqs))
	for i, f := range freqs {
		out[i] = TagCount{Tag: f.Tag, Count: f.Count}
	}
	return out
}

func searchResults(hits []index.SearchHit) []SearchResult {
	out := make([]SearchResult, len(hits))
	for i := range hits {
		out[i] = SearchResult{Store: storeFromEntry(&hits[i].Entry), Score: hits[i].Score}
	}
	return out
}

func nearResults(hits []index.NearHit) []NearResult {
	out := make([]NearResult, len(hits))
	for i := range hits {
		out[i] = NearResult{Store: storeFromEntry(&hits[i].Entry), DistanceMeters: hits[i].Distance}
	}
	return out
}

func rankedStores(rows []rating.RankedEntry) []RankedStore {
	out := make([]RankedStore, len(rows))
	for i := range rows {
		out[i] = RankedStore{
			Store:         storeFromEntry(&rows[i].Entry),
			AverageRating: rows[i].AverageRating,
			RatingCount:   rows[i].RatingCount,
		}
	}
	return out
}

func healthFromReport(r healthuc.Report) HealthReport {
	checks := make(map[string]string, len(r.Checks))
	for k, v := range r.Checks {
		checks[k] = string(v)
	}
	return HealthReport{Status: string(r.Status), Checks: checks, IndexedEntries: r.IndexedEntries}
}
