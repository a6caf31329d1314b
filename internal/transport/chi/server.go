package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storedex/internal/domain"
	logpkg "github.com/kailas-cloud/storedex/internal/logger"
	cataloguc "github.com/kailas-cloud/storedex/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/storedex/internal/usecase/health"
	rankinguc "github.com/kailas-cloud/storedex/internal/usecase/ranking"
	searchuc "github.com/kailas-cloud/storedex/internal/usecase/search"
)

const (
	// AuthorHeader carries the caller identity resolved by the session layer.
	AuthorHeader = "X-Author-ID"
	// IndexingHeader is set to "degraded" when a write persisted but is not yet searchable.
	IndexingHeader = "X-Indexing"

	maxBatchIDs = 100
)

var errCoordinatesShape = domain.NewValidationError("coordinates", "must be [longitude, latitude]")

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server exposes the catalog engine over JSON HTTP.
type Server struct {
	catalog       *cataloguc.Service
	search        *searchuc.Service
	ranking       *rankinguc.Service
	health        *healthuc.Service
	topLimit      int
	minRatings    int
	metrics       http.Handler
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog *cataloguc.Service,
	search *searchuc.Service,
	ranking *rankinguc.Service,
	health *healthuc.Service,
) *Server {
	s := &Server{
		catalog:    catalog,
		search:     search,
		ranking:    ranking,
		health:     health,
		topLimit:   10,
		minRatings: 2,
		metrics:    promhttp.Handler(),
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrInvalidCoordinates, http.StatusBadRequest, ErrorResponseCodeInvalidCoordinates),
		sentinelHandler(domain.ErrInvalidName, http.StatusBadRequest, ErrorResponseCodeInvalidName),
		sentinelHandler(domain.ErrValidation, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeNotFound),
		sentinelHandler(domain.ErrNotOwner, http.StatusForbidden, ErrorResponseCodeNotOwner),
		sentinelHandler(domain.ErrConflict, http.StatusConflict, ErrorResponseCodeSlugConflict),
		sentinelHandler(domain.ErrIndexingUnavailable,
			http.StatusServiceUnavailable, ErrorResponseCodeIndexingUnavailable),
	}
	return s
}

// WithTopDefaults sets the limit and minimum rating count used when /top omits them.
func (s *Server) WithTopDefaults(limit, minRatings int) *Server {
	if limit > 0 {
		s.topLimit = limit
	}
	if minRatings > 0 {
		s.minRatings = minRatings
	}
	return s
}

// Routes registers every endpoint on r.
func (s *Server) Routes(r chi.Router) {
	r.Route("/stores", func(r chi.Router) {
		r.Get("/", s.ListStores)
		r.Post("/", s.CreateStore)
		r.Post("/batch", s.BatchGetStores)
		r.Get("/slug/{slug}", s.GetStoreBySlug)
		r.Get("/{id}", s.GetStore)
		r.Patch("/{id}", s.PatchStore)
		r.Post("/{id}/ratings", s.RateStore)
	})
	r.Get("/authors/{author}/stores", s.ListAuthorStores)
	r.Get("/search", s.Search)
	r.Get("/near", s.Near)
	r.Get("/top", s.Top)
	r.Get("/tags", s.Tags)
	r.Get("/tags/{tag}", s.Tags)
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// CreateStore handles POST /stores.
func (s *Server) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	e, err := s.catalog.Create(r.Context(), draftFromAPI(&req, r.Header.Get(AuthorHeader)))
	if err != nil && !degraded(w, err) {
		s.handleDomainError(w, r, err)
		return
	}

	w.Header().Set("Location", "/stores/"+e.ID())
	writeJSON(w, http.StatusCreated, storeToAPI(&e))
}

// PatchStore handles PATCH /stores/{id}.
func (s *Server) PatchStore(w http.ResponseWriter, r *http.Request) {
	var req PatchStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	r = r.WithContext(logpkg.WithEntry(r.Context(), id))
	p, err := patchFromAPI(&req, r.Header.Get(AuthorHeader))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	e, err := s.catalog.Update(r.Context(), id, p)
	if err != nil && !degraded(w, err) {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, storeToAPI(&e))
}

// GetStore handles GET /stores/{id}.
func (s *Server) GetStore(w http.ResponseWriter, r *http.Request) {
	e, err := s.catalog.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, storeToAPI(&e))
}

// GetStoreBySlug handles GET /stores/slug/{slug}.
func (s *Server) GetStoreBySlug(w http.ResponseWriter, r *http.Request) {
	e, err := s.catalog.FindBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, storeToAPI(&e))
}

// ListStores handles GET /stores?page=.
func (s *Server) ListStores(w http.ResponseWriter, r *http.Request) {
	var page *int
	if !bindQuery(w, r, "page", false, &page) {
		return
	}

	p, err := s.catalog.List(r.Context(), deref(page, 1))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pageToAPI(p))
}

// BatchGetStores handles POST /stores/batch.
func (s *Server) BatchGetStores(w http.ResponseWriter, r *http.Request) {
	var req BatchGetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.IDs) > maxBatchIDs {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed,
			fmt.Sprintf("ids count must be at most %d", maxBatchIDs))
		return
	}

	entries, err := s.catalog.GetMany(r.Context(), req.IDs)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StoreItemsResponse{Items: storesToAPI(entries)})
}

// ListAuthorStores handles GET /authors/{author}/stores.
func (s *Server) ListAuthorStores(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.ListByAuthor(r.Context(), chi.URLParam(r, "author"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, StoreItemsResponse{Items: storesToAPI(entries)})
}

// RateStore handles POST /stores/{id}/ratings.
func (s *Server) RateStore(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	entryID := chi.URLParam(r, "id")
	r = r.WithContext(logpkg.WithEntry(r.Context(), entryID))
	id, err := s.ranking.Rate(r.Context(), entryID, req.Value)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, RateResponse{ID: id})
}

// Search handles GET /search?q=&limit=.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var limit *int
	if !bindQuery(w, r, "limit", false, &limit) {
		return
	}

	hits, err := s.search.Search(r.Context(), r.URL.Query().Get("q"), deref(limit, 0))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, searchHitsToAPI(hits))
}

// Near handles GET /near?lng=&lat=&max_distance=&limit=.
func (s *Server) Near(w http.ResponseWriter, r *http.Request) {
	var (
		lng, lat    float64
		maxDistance *float64
		limit       *int
	)
	if !bindQuery(w, r, "lng", true, &lng) ||
		!bindQuery(w, r, "lat", true, &lat) ||
		!bindQuery(w, r, "max_distance", false, &maxDistance) ||
		!bindQuery(w, r, "limit", false, &limit) {
		return
	}

	hits, err := s.search.Near(r.Context(), lng, lat, deref(maxDistance, 0), deref(limit, 0))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nearHitsToAPI(hits))
}

// Top handles GET /top?limit=&min_ratings=.
func (s *Server) Top(w http.ResponseWriter, r *http.Request) {
	var limit, minRatings *int
	if !bindQuery(w, r, "limit", false, &limit) || !bindQuery(w, r, "min_ratings", false, &minRatings) {
		return
	}

	ranked, err := s.ranking.TopRanked(r.Context(), deref(limit, s.topLimit), deref(minRatings, s.minRatings))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rankedToAPI(ranked))
}

// Tags handles GET /tags and GET /tags/{tag}.
func (s *Server) Tags(w http.ResponseWriter, r *http.Request) {
	t := chi.URLParam(r, "tag")
	if t == "" {
		freqs, err := s.catalog.TagFrequencies(r.Context())
		if err != nil {
			s.handleDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, TagsResponse{Tags: tagsToAPI(freqs)})
		return
	}

	listing, err := s.catalog.ListByTag(r.Context(), t)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TagsResponse{
		Tags:  tagsToAPI(listing.Tags),
		Items: storesToAPI(listing.Entries),
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:         string(report.Status),
		Checks:         checks,
		IndexedEntries: report.IndexedEntries,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

// degraded marks the response when err only reports lagging search visibility.
func degraded(w http.ResponseWriter, err error) bool {
	var de *domain.IndexingDegradedError
	if !errors.As(err, &de) {
		return false
	}
	w.Header().Set(IndexingHeader, "degraded")
	return true
}

// bindQuery decodes a query parameter into dest, writing a 400 on failure.
func bindQuery(w http.ResponseWriter, r *http.Request, name string, required bool, dest any) bool {
	if err := runtime.BindQueryParameter("form", true, required, name, r.URL.Query(), dest); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
			fmt.Sprintf("Invalid format for parameter %s: %s", name, err))
		return false
	}
	return true
}

func deref[T any](p *T, fallback T) T {
	if p == nil {
		return fallback
	}
	return *p
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidCoordinates,
		domain.ErrInvalidName,
		domain.ErrValidation,
		domain.ErrNotFound,
		domain.ErrNotOwner,
		domain.ErrConflict,
		domain.ErrIndexingUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, safeDomainMessage(err))
		return true
	}
}

// validationHandler reports every invalid field of a *domain.ValidationError.
func validationHandler(w http.ResponseWriter, err error) bool {
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Code:    ErrorResponseCodeValidationFailed,
		Message: domain.ErrValidation.Error(),
		Fields:  verr.Fields,
	})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logpkg.FromContext(r.Context())
	logger.Warn("domain error", zap.Error(err))
	for _, h := range s.errorHandlers {
		if h(w, err) {
			return
		}
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
