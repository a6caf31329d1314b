package chi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/storedex/internal/db/memory"
	"github.com/kailas-cloud/storedex/internal/domain"
	"github.com/kailas-cloud/storedex/internal/domain/entry"
	"github.com/kailas-cloud/storedex/internal/index"
	entryrepo "github.com/kailas-cloud/storedex/internal/repository/entry"
	ratingrepo "github.com/kailas-cloud/storedex/internal/repository/rating"
	cataloguc "github.com/kailas-cloud/storedex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/storedex/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/storedex/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/storedex/internal/usecase/search"
)

// --- Fixtures ---

type failingIndexer struct{}

func (failingIndexer) Upsert(context.Context, entry.Entry) error {
	return domain.ErrIndexingUnavailable
}

type testEnv struct {
	router  http.Handler
	indexer *index.Indexer
}

func newTestEnv(t *testing.T, catalogIndexer cataloguc.Indexer) testEnv {
	t.Helper()
	store := memory.NewStore()
	entries := entryrepo.New(store)
	ratings := ratingrepo.New(store)
	ix := index.New(nil)
	if err := ix.Rebuild(context.Background(), entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if catalogIndexer == nil {
		catalogIndexer = ix
	}

	srv := NewServer(
		cataloguc.New(entries, catalogIndexer, nil).WithPageSize(2),
		searchuc.New(ix),
		rankinguc.New(ratings, entries),
		healthuc.New(store, ix),
	)
	r := chi.NewRouter()
	srv.Routes(r)
	return testEnv{router: r, indexer: ix}
}

func (e testEnv) do(t *testing.T, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %s)", err, rr.Body.String())
	}
	return v
}

func storeBody(name string, lng, lat float64, tags ...string) string {
	b, _ := json.Marshal(map[string]any{
		"name":        name,
		"description": "Fresh bread and coffee",
		"tags":        tags,
		"location": map[string]any{
			"coordinates": []float64{lng, lat},
			"address":     "1 Main St",
		},
	})
	return string(b)
}

func (e testEnv) create(t *testing.T, name string, lng, lat float64, tags ...string) Store {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/stores", storeBody(name, lng, lat, tags...), AuthorHeader, "user-1")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create %q: status %d, body %s", name, rr.Code, rr.Body.String())
	}
	return decode[Store](t, rr)
}

// --- Stores ---

func TestCreateStore(t *testing.T) {
	env := newTestEnv(t, nil)

	first := env.create(t, "Joe's Cafe", 0, 0)
	second := env.create(t, "Joe's Cafe", 0, 0)

	if first.Slug != "joes-cafe" || second.Slug != "joes-cafe-2" {
		t.Fatalf("slugs = %q, %q", first.Slug, second.Slug)
	}
	if first.AuthorID != "user-1" {
		t.Errorf("author = %q", first.AuthorID)
	}
	if first.Location.Type != "Point" || len(first.Location.Coordinates) != 2 {
		t.Errorf("location = %+v", first.Location)
	}

	rr := env.do(t, http.MethodGet, "/stores/slug/joes-cafe-2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("get by slug: status %d", rr.Code)
	}
	if got := decode[Store](t, rr); got.ID != second.ID {
		t.Errorf("get by slug: id %q, want %q", got.ID, second.ID)
	}
}

func TestCreateStore_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name     string
		body     string
		wantCode ErrorResponseCode
	}{
		{"bad json", "{", ErrorResponseCodeBadRequest},
		{"missing fields", `{"name":"Cafe"}`, ErrorResponseCodeValidationFailed},
		{"coordinates out of range", storeBody("Cafe", 0, 95), ErrorResponseCodeValidationFailed},
		{"unsluggable name", storeBody("!!!", 0, 0), ErrorResponseCodeInvalidName},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPost, "/stores", tc.body, AuthorHeader, "user-1")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", rr.Code)
			}
			if got := decode[ErrorResponse](t, rr); got.Code != tc.wantCode {
				t.Errorf("code %q, want %q", got.Code, tc.wantCode)
			}
		})
	}
}

func TestCreateStore_ValidationListsFields(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodPost, "/stores", `{"name":"Cafe"}`)
	resp := decode[ErrorResponse](t, rr)
	for _, f := range []string{"address", "coordinates", "author_id"} {
		if _, ok := resp.Fields[f]; !ok {
			t.Errorf("missing field %q in %v", f, resp.Fields)
		}
	}
}

func TestCreateStore_IndexingDegraded(t *testing.T) {
	env := newTestEnv(t, failingIndexer{})

	rr := env.do(t, http.MethodPost, "/stores", storeBody("Cafe", 0, 0), AuthorHeader, "user-1")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get(IndexingHeader) != "degraded" {
		t.Errorf("%s header = %q", IndexingHeader, rr.Header().Get(IndexingHeader))
	}
	if got := decode[Store](t, rr); got.Slug != "cafe" {
		t.Errorf("slug = %q", got.Slug)
	}
}

func TestPatchStore(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.create(t, "Cafe", 0, 0)

	rr := env.do(t, http.MethodPatch, "/stores/"+s.ID, `{"name":"Tea Room"}`, AuthorHeader, "user-1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	if got := decode[Store](t, rr); got.Slug != "tea-room" || got.Name != "Tea Room" {
		t.Errorf("patched = %+v", got)
	}
	if rr := env.do(t, http.MethodGet, "/stores/slug/cafe", ""); rr.Code != http.StatusNotFound {
		t.Errorf("old slug: status %d, want 404", rr.Code)
	}
}

func TestPatchStore_Errors(t *testing.T) {
	env := newTestEnv(t, nil)
	s := env.create(t, "Cafe", 0, 0)

	tests := []struct {
		name   string
		id     string
		body   string
		author string
		want   int
	}{
		{"not owner", s.ID, `{"name":"Mine"}`, "intruder", http.StatusForbidden},
		{"not found", "missing", `{"name":"x"}`, "", http.StatusNotFound},
		{"empty patch", s.ID, `{}`, "", http.StatusBadRequest},
		{"bad coordinates shape", s.ID, `{"location":{"coordinates":[1]}}`, "", http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodPatch, "/stores/"+tc.id, tc.body, AuthorHeader, tc.author)
			if rr.Code != tc.want {
				t.Fatalf("status %d, want %d (body %s)", rr.Code, tc.want, rr.Body.String())
			}
		})
	}
}

func TestListStores(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, name := range []string{"A", "B", "C"} {
		env.create(t, name, 0, 0)
	}

	got := decode[StoreListResponse](t, env.do(t, http.MethodGet, "/stores?page=2", ""))
	if got.Page != 2 || got.Pages != 2 || got.Total != 3 || len(got.Items) != 1 {
		t.Fatalf("page = %+v", got)
	}

	if rr := env.do(t, http.MethodGet, "/stores?page=abc", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("bad page: status %d, want 400", rr.Code)
	}
}

func TestBatchAndAuthorStores(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.create(t, "A", 0, 0)
	b := env.create(t, "B", 0, 0)

	body := `{"ids":["` + b.ID + `","missing","` + a.ID + `"]}`
	got := decode[StoreItemsResponse](t, env.do(t, http.MethodPost, "/stores/batch", body))
	if len(got.Items) != 2 || got.Items[0].ID != b.ID {
		t.Fatalf("batch = %+v", got.Items)
	}

	got = decode[StoreItemsResponse](t, env.do(t, http.MethodGet, "/authors/user-1/stores", ""))
	if len(got.Items) != 2 {
		t.Fatalf("author stores = %d", len(got.Items))
	}
}

// --- Queries ---

func TestSearch(t *testing.T) {
	env := newTestEnv(t, nil)
	env.create(t, "Joe's Bakery", 0, 0)
	env.create(t, "Tea Room", 0, 0)

	got := decode[SearchResultListResponse](t, env.do(t, http.MethodGet, "/search?q=bakery", ""))
	if got.Total != 1 || got.Items[0].Store.Name != "Joe's Bakery" || got.Items[0].Score <= 0 {
		t.Fatalf("search = %+v", got)
	}

	got = decode[SearchResultListResponse](t, env.do(t, http.MethodGet, "/search?q=", ""))
	if got.Total != 0 || got.Items == nil {
		t.Fatalf("empty query = %+v", got)
	}
}

func TestNear(t *testing.T) {
	env := newTestEnv(t, nil)
	env.create(t, "Far Cafe", 0, 0.1)

	got := decode[NearResultListResponse](t, env.do(t, http.MethodGet, "/near?lng=0&lat=0&max_distance=10000", ""))
	if got.Total != 0 {
		t.Fatalf("10km: %+v", got)
	}
	got = decode[NearResultListResponse](t, env.do(t, http.MethodGet, "/near?lng=0&lat=0&max_distance=12000&limit=5", ""))
	if got.Total != 1 || got.Items[0].Distance > 12000 {
		t.Fatalf("12km: %+v", got)
	}
}

func TestNear_Errors(t *testing.T) {
	env := newTestEnv(t, nil)

	tests := []struct {
		name   string
		target string
		code   ErrorResponseCode
	}{
		{"missing lat", "/near?lng=0", ErrorResponseCodeBadRequest},
		{"malformed lng", "/near?lng=east&lat=0", ErrorResponseCodeBadRequest},
		{"out of range", "/near?lng=200&lat=0", ErrorResponseCodeInvalidCoordinates},
		{"nan distance", "/near?lng=0&lat=0&max_distance=NaN", ErrorResponseCodeValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := env.do(t, http.MethodGet, tc.target, "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status %d, want 400", rr.Code)
			}
			if got := decode[ErrorResponse](t, rr); got.Code != tc.code {
				t.Errorf("code %q, want %q", got.Code, tc.code)
			}
		})
	}
}

func TestTop(t *testing.T) {
	env := newTestEnv(t, nil)
	a := env.create(t, "A", 0, 0)
	b := env.create(t, "B", 0, 0)

	for _, r := range []struct {
		id    string
		value string
	}{{a.ID, "4"}, {a.ID, "5"}, {b.ID, "5"}} {
		rr := env.do(t, http.MethodPost, "/stores/"+r.id+"/ratings", `{"value":`+r.value+`}`)
		if rr.Code != http.StatusCreated {
			t.Fatalf("rate: status %d, body %s", rr.Code, rr.Body.String())
		}
	}

	got := decode[TopResponse](t, env.do(t, http.MethodGet, "/top?limit=10&min_ratings=2", ""))
	if len(got.Items) != 1 || got.Items[0].Store.ID != a.ID || got.Items[0].AverageRating != 4.5 {
		t.Fatalf("top = %+v", got)
	}

	if rr := env.do(t, http.MethodGet, "/top?limit=51", ""); rr.Code != http.StatusBadRequest {
		t.Errorf("limit 51: status %d, want 400", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/stores/missing/ratings", `{"value":3}`); rr.Code != http.StatusNotFound {
		t.Errorf("rate missing: status %d, want 404", rr.Code)
	}
	if rr := env.do(t, http.MethodPost, "/stores/"+a.ID+"/ratings", `{"value":9}`); rr.Code != http.StatusBadRequest {
		t.Errorf("rate 9: status %d, want 400", rr.Code)
	}
}

func TestTags(t *testing.T) {
	env := newTestEnv(t, nil)
	env.create(t, "A", 0, 0, "vegan")
	env.create(t, "B", 0, 0, "vegan", "glutenfree")

	got := decode[TagsResponse](t, env.do(t, http.MethodGet, "/tags", ""))
	want := []TagCount{{"vegan", 2}, {"glutenfree", 1}}
	if len(got.Tags) != 2 || got.Tags[0] != want[0] || got.Tags[1] != want[1] {
		t.Fatalf("tags = %+v", got.Tags)
	}

	got = decode[TagsResponse](t, env.do(t, http.MethodGet, "/tags/glutenfree", ""))
	if len(got.Items) != 1 || got.Items[0].Name != "B" {
		t.Fatalf("tag listing = %+v", got.Items)
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(t, http.MethodGet, "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rr.Code, rr.Body.String())
	}
	if got := decode[HealthResponse](t, rr); got.Status != "ok" || got.Checks["index"] != "ok" {
		t.Errorf("health = %+v", got)
	}
}

func TestHealthCheck_IndexNotBuilt(t *testing.T) {
	store := memory.NewStore()
	srv := NewServer(nil, nil, nil, healthuc.New(store, index.New(nil)))
	r := chi.NewRouter()
	srv.Routes(r)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status %d, want 503", rr.Code)
	}
}

func TestMetrics_ServesRepeatedScrapes(t *testing.T) {
	env := newTestEnv(t, nil)
	for i := 0; i < 2; i++ {
		rr := env.do(t, http.MethodGet, "/metrics", "")
		if rr.Code != http.StatusOK {
			t.Fatalf("scrape %d: status %d", i, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "go_goroutines") {
			t.Fatalf("scrape %d: missing runtime metrics", i)
		}
	}
}

func TestHandleDomainError_Mapping(t *testing.T) {
	srv := NewServer(nil, nil, nil, nil)
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrIndexingUnavailable, http.StatusServiceUnavailable},
		{domain.ErrNotOwner, http.StatusForbidden},
		{domain.ErrNotFound, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rr := httptest.NewRecorder()
		srv.handleDomainError(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody), tc.err)
		if rr.Code != tc.want {
			t.Errorf("%v: status %d, want %d", tc.err, rr.Code, tc.want)
		}
	}
}
