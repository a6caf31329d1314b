package chi

import (
	"time"

	"github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/domain/geo"
	"github.com/kailas-cloud/storedex/internal/domain/rating"
	"github.com/kailas-cloud/storedex/internal/domain/tag"
	"github.com/kailas-cloud/storedex/internal/index"
	"github.com/kailas-cloud/storedex/internal/usecase/catalog"
)

// ErrorResponseCode is a machine-readable error code.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest          ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed    ErrorResponseCode = "validation_failed"
	ErrorResponseCodeInvalidCoordinates  ErrorResponseCode = "invalid_coordinates"
	ErrorResponseCodeInvalidName         ErrorResponseCode = "invalid_name"
	ErrorResponseCodeUnauthorized        ErrorResponseCode = "unauthorized"
	ErrorResponseCodeNotOwner            ErrorResponseCode = "not_owner"
	ErrorResponseCodeNotFound            ErrorResponseCode = "not_found"
	ErrorResponseCodeSlugConflict        ErrorResponseCode = "slug_conflict"
	ErrorResponseCodeIndexingUnavailable ErrorResponseCode = "indexing_unavailable"
	ErrorResponseCodeInternalError       ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Location is a GeoJSON point plus a postal address.
type Location struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
	Address     string    `json:"address"`
}

// CreateStoreRequest is the body of POST /stores.
type CreateStoreRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Location    struct {
		Coordinates []float64 `json:"coordinates"`
		Address     string    `json:"address"`
	} `json:"location"`
	Photo string `json:"photo"`
}

// PatchStoreRequest is the body of PATCH /stores/{id}. Absent fields are unchanged.
type PatchStoreRequest struct {
	Name        *string   `json:"name"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
	Location    *struct {
		Coordinates []float64 `json:"coordinates"`
		Address     *string   `json:"address"`
	} `json:"location"`
	Photo *string `json:"photo"`
}

// BatchGetRequest is the body of POST /stores/batch.
type BatchGetRequest struct {
	IDs []string `json:"ids"`
}

// RateRequest is the body of POST /stores/{id}/ratings.
type RateRequest struct {
	Value float64 `json:"value"`
}

// RateResponse acknowledges a recorded rating.
type RateResponse struct {
	ID string `json:"id"`
}

// Store is the public representation of a catalog entry.
type Store struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Location    Location  `json:"location"`
	Photo       string    `json:"photo,omitempty"`
	AuthorID    string    `json:"author_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// StoreListResponse is one page of stores.
type StoreListResponse struct {
	Items []Store `json:"items"`
	Page  int     `json:"page"`
	Pages int     `json:"pages"`
	Total int     `json:"total"`
}

// StoreItemsResponse is an unpaginated list of stores.
type StoreItemsResponse struct {
	Items []Store `json:"items"`
}

// SearchResultItem is one text search hit.
type SearchResultItem struct {
	Store Store   `json:"store"`
	Score float64 `json:"score"`
}

// SearchResultListResponse wraps text search hits.
type SearchResultListResponse struct {
	Items []SearchResultItem `json:"items"`
	Total int                `json:"total"`
}

// NearResultItem is one proximity hit.
type NearResultItem struct {
	Store    Store   `json:"store"`
	Distance float64 `json:"distance_m"`
}

// NearResultListResponse wraps proximity hits.
type NearResultListResponse struct {
	Items []NearResultItem `json:"items"`
	Total int              `json:"total"`
}

// RankedStore is one row of the top-rated listing.
type RankedStore struct {
	Store         Store   `json:"store"`
	AverageRating float64 `json:"average_rating"`
	RatingCount   int     `json:"rating_count"`
}

// TopResponse wraps the top-rated listing.
type TopResponse struct {
	Items []RankedStore `json:"items"`
}

// TagCount is one tag with the number of stores carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// TagsResponse is the tag overview, optionally with the stores of a selected tag.
type TagsResponse struct {
	Tags  []TagCount `json:"tags"`
	Items []Store    `json:"items,omitempty"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status         string            `json:"status"`
	Checks         map[string]string `json:"checks"`
	IndexedEntries int               `json:"indexed_entries"`
}

func storeToAPI(e *entry.Entry) Store {
	loc := e.Location()
	out := Store{
		ID:          e.ID(),
		Name:        e.Name(),
		Slug:        e.Slug(),
		Description: e.Description(),
		Tags:        e.Tags(),
		Location:    Location{Type: "Point", Address: loc.Address},
		Photo:       e.Photo(),
		AuthorID:    e.AuthorID(),
		CreatedAt:   e.CreatedAt(),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if p, ok := e.Coordinates(); ok {
		out.Location.Coordinates = []float64{p.Lng, p.Lat}
	}
	return out
}

func storesToAPI(entries []entry.Entry) []Store {
	out := make([]Store, len(entries))
	for i := range entries {
		out[i] = storeToAPI(&entries[i])
	}
	return out
}

func searchHitsToAPI(hits []index.SearchHit) SearchResultListResponse {
	items := make([]SearchResultItem, len(hits))
	for i := range hits {
		items[i] = SearchResultItem{Store: storeToAPI(&hits[i].Entry), Score: hits[i].Score}
	}
	return SearchResultListResponse{Items: items, Total: len(items)}
}

func nearHitsToAPI(hits []index.NearHit) NearResultListResponse {
	items := make([]NearResultItem, len(hits))
	for i := range hits {
		items[i] = NearResultItem{Store: storeToAPI(&hits[i].Entry), Distance: hits[i].Distance}
	}
	return NearResultListResponse{Items: items, Total: len(items)}
}

func rankedToAPI(ranked []rating.RankedEntry) TopResponse {
	items := make([]RankedStore, len(ranked))
	for i := range ranked {
		items[i] = RankedStore{
			Store:         storeToAPI(&ranked[i].Entry),
			AverageRating: ranked[i].AverageRating,
			RatingCount:   ranked[i].RatingCount,
		}
	}
	return TopResponse{Items: items}
}

func tagsToAPI(freqs []tag.Frequency) []TagCount {
	out := make([]TagCount, len(freqs))
	for i, f := range freqs {
		out[i] = TagCount{Tag: f.Tag, Count: f.Count}
	}
	return out
}

func pageToAPI(p catalog.Page) StoreListResponse {
	return StoreListResponse{Items: storesToAPI(p.Entries), Page: p.Page, Pages: p.Pages, Total: p.Total}
}

// coordinatesFromAPI reads a GeoJSON [lng, lat] pair. Any other shape yields nil.
func coordinatesFromAPI(c []float64) *geo.Point {
	if len(c) != 2 {
		return nil
	}
	return &geo.Point{Lng: c[0], Lat: c[1]}
}

func draftFromAPI(req *CreateStoreRequest, authorID string) entry.Draft {
	return entry.Draft{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Address:     req.Location.Address,
		Coordinates: coordinatesFromAPI(req.Location.Coordinates),
		Photo:       req.Photo,
		AuthorID:    authorID,
	}
}

func patchFromAPI(req *PatchStoreRequest, actorID string) (entry.Patch, error) {
	p := entry.Patch{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Photo:       req.Photo,
		ActorID:     actorID,
	}
	if req.Location != nil {
		p.Address = req.Location.Address
		if req.Location.Coordinates != nil {
			p.Coordinates = coordinatesFromAPI(req.Location.Coordinates)
			if p.Coordinates == nil {
				return entry.Patch{}, errCoordinatesShape
			}
		}
	}
	return p, nil
}
