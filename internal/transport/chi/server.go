package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/shopsearch/internal/domain"
	domsearch "github.com/kailas-cloud/shopsearch/internal/domain/search"
	"github.com/kailas-cloud/shopsearch/internal/metrics"
	composeuc "github.com/kailas-cloud/shopsearch/internal/usecase/compose"
	healthuc "github.com/kailas-cloud/shopsearch/internal/usecase/health"
	searchuc "github.com/kailas-cloud/shopsearch/internal/usecase/search"
	syncuc "github.com/kailas-cloud/shopsearch/internal/usecase/sync"
)

// Error codes returned in the "code" field of error responses.
const (
	codeBadRequest       = "bad_request"
	codeValidationFailed = "validation_failed"
	codeNotFound         = "not_found"
	codeNoContent        = "no_searchable_content"
	codeUpstreamError    = "upstream_unavailable"
	codeInternalError    = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server exposes the search API over HTTP.
type Server struct {
	search        *searchuc.Service
	sync          *syncuc.Service
	compose       *composeuc.Service
	health        *healthuc.Service
	catalog       CatalogReader
	writer        CatalogWriter
	defaultLimit  int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	sync *syncuc.Service,
	compose *composeuc.Service,
	health *healthuc.Service,
	catalog CatalogReader,
	writer CatalogWriter,
	defaultLimit int,
	logger *zap.Logger,
) *Server {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	s := &Server{
		search:       search,
		sync:         sync,
		compose:      compose,
		health:       health,
		catalog:      catalog,
		writer:       writer,
		defaultLimit: defaultLimit,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInvalidPagination, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, codeNotFound),
		sentinelHandler(domain.ErrNoSearchableContent, http.StatusUnprocessableEntity, codeNoContent),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, codeUpstreamError),
	}
	return s
}

// Routes registers all API routes on the router.
func (s *Server) Routes(r chi.Router) {
	r.Post("/search", s.handleSearch)
	r.Post("/debug", s.handleDebug)
	r.Post("/sync", s.handleFullSync)
	r.Post("/sync-product", s.handleSyncProduct)
	r.Post("/delete-product", s.handleDeleteProduct)
	r.Put("/products/{id}", s.handleUpsertProduct)
	r.Delete("/products/{id}", s.handleDeleteCatalogProduct)
	r.Get("/stats", s.handleStats)
	r.Get("/test", s.handleTest)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
}

// --- search ---

type searchRequest struct {
	Query       string            `json:"query"`
	Agent       string            `json:"agent"`
	Page        int               `json:"page"`
	Limit       int               `json:"limit"`
	Filters     domsearch.Filters `json:"filters"`
	MaxDistance *float64          `json:"max_distance"`
}

type searchResponse struct {
	Products       []domain.Product      `json:"products"`
	HitsMeta       []domsearch.Candidate `json:"hits_meta"`
	AIResponse     string                `json:"ai_response"`
	AgentUsed      string                `json:"agent_used"`
	UsedFallback   bool                  `json:"used_fallback"`
	Pagination     domsearch.Pagination  `json:"pagination"`
	FiltersApplied domsearch.Filters     `json:"filters_applied"`
	Debug          searchDebug           `json:"debug"`
}

type searchDebug struct {
	OriginalQuery      string  `json:"original_query"`
	ProductsFound      int     `json:"products_found"`
	VectorSearchWorked bool    `json:"vector_search_worked"`
	MaxDistance        float64 `json:"max_distance"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Query is required")
		return
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.Limit == 0 {
		req.Limit = s.defaultLimit
	}

	ctx := r.Context()

	result, err := s.search.Search(ctx, searchuc.Request{
		Query:       req.Query,
		Page:        req.Page,
		Limit:       req.Limit,
		Filters:     req.Filters,
		MaxDistance: req.MaxDistance,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	products := result.Products
	hits := result.Hits
	total := result.Total
	usedFallback := false

	// Keyword fallback covers both a degraded vector backend and queries
	// the embedding space cannot reach.
	if len(products) == 0 {
		page, pageErr := domsearch.NewPage(req.Page, req.Limit)
		if pageErr != nil {
			s.handleDomainError(w, pageErr)
			return
		}
		products, total, err = s.catalog.Find(ctx, req.Query, req.Filters, page.Offset(), page.Limit)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		hits = nil
		usedFallback = true
	}

	switch {
	case usedFallback && len(products) > 0:
		metrics.SearchesTotal.WithLabelValues("fallback").Inc()
	case len(products) > 0:
		metrics.SearchesTotal.WithLabelValues("vector").Inc()
	default:
		metrics.SearchesTotal.WithLabelValues("empty").Inc()
	}

	answer, err := s.compose.Compose(ctx, req.Query, products, req.Agent)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	maxDistance := searchuc.DefaultMaxDistance
	if req.MaxDistance != nil {
		maxDistance = *req.MaxDistance
	}

	if products == nil {
		products = []domain.Product{}
	}
	if hits == nil {
		hits = []domsearch.Candidate{}
	}

	writeJSON(w, http.StatusOK, searchResponse{
		Products:       products,
		HitsMeta:       hits,
		AIResponse:     answer,
		AgentUsed:      req.Agent,
		UsedFallback:   usedFallback,
		Pagination:     domsearch.Paginate(domsearch.Page{Number: req.Page, Limit: req.Limit}, total),
		FiltersApplied: req.Filters,
		Debug: searchDebug{
			OriginalQuery:      req.Query,
			ProductsFound:      len(products),
			VectorSearchWorked: len(products) > 0 && !usedFallback,
			MaxDistance:        maxDistance,
		},
	})
}

// handleDebug runs a small fixed-size search and returns raw candidates
// alongside index stats.
func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query   string            `json:"query"`
		Filters domsearch.Filters `json:"filters"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		req.Query = "lip balm"
	}

	result, err := s.search.Search(r.Context(), searchuc.Request{
		Query:   req.Query,
		Page:    1,
		Limit:   5,
		Filters: req.Filters,
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	stats, err := s.sync.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"query":           req.Query,
		"filters":         req.Filters,
		"products_found":  len(result.Products),
		"total_available": result.Total,
		"products":        result.Products,
		"hits_meta":       result.Hits,
		"stats":           stats,
	})
}

// --- sync ---

func (s *Server) handleFullSync(w http.ResponseWriter, r *http.Request) {
	report, err := s.sync.FullSync(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Full sync completed successfully!",
		"report":  report,
	})
}

type productIDRequest struct {
	ProductID string `json:"product_id"`
}

func (s *Server) handleSyncProduct(w http.ResponseWriter, r *http.Request) {
	var req productIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "product_id is required")
		return
	}

	if err := s.sync.SyncOne(r.Context(), req.ProductID); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Product synced successfully!",
		"product_id": req.ProductID,
	})
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	var req productIDRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ProductID == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "product_id is required")
		return
	}

	if err := s.sync.DeleteOne(r.Context(), req.ProductID); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":    "Product deleted successfully!",
		"product_id": req.ProductID,
	})
}

// --- catalog ---

// handleUpsertProduct stores the product and reindexes it in one call.
func (s *Server) handleUpsertProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var p domain.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	p.ID = id
	if p.Name == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "Product name is required")
		return
	}

	if err := s.writer.Save(r.Context(), p); err != nil {
		s.handleDomainError(w, err)
		return
	}
	if err := s.sync.SyncOne(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeleteCatalogProduct removes the product from catalog and index.
func (s *Server) handleDeleteCatalogProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.writer.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	if err := s.sync.DeleteOne(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- stats / health ---

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.sync.Stats(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"status":  report.Status,
		"checks":  report.Checks,
		"message": "Product search service is running",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInvalidPagination,
		domain.ErrNotFound,
		domain.ErrNoSearchableContent,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			s.logger.Warn("domain error", zap.Error(err))
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
