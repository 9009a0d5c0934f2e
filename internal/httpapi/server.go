package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"tidder/internal/domain"
	"tidder/internal/market"
	"tidder/internal/store"
)

// RequestIDHeader carries the per-request id.
const RequestIDHeader = "X-Request-ID"

const maxLimit = 500

// Server serves the market data HTTP API.
type Server struct {
	svc    MarketService
	search SymbolSearcher
	log    *slog.Logger

	// Analysis records cached per symbol until ttl passes or Invalidate.
	// Entries from an older generation are ignored.
	ttl      time.Duration
	cache    sync.Map // symbol -> cachedAnalysis
	cacheGen atomic.Uint64
	now      func() time.Time
}

type cachedAnalysis struct {
	a       domain.StockAnalysis
	gen     uint64
	expires time.Time
}

// NewServer creates a Server. search may be nil, in which case symbol search
// falls back to substring matching over the stock list. cacheTTL <= 0
// disables the analysis cache.
func NewServer(svc MarketService, search SymbolSearcher, log *slog.Logger, cacheTTL time.Duration) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		svc:    svc,
		search: search,
		log:    log,
		ttl:    cacheTTL,
		now:    time.Now,
	}
}

// Invalidate drops cached analysis records, e.g. after a data refresh.
func (s *Server) Invalidate() {
	s.cacheGen.Add(1)
	s.cache.Range(func(k, _ any) bool {
		s.cache.Delete(k)
		return true
	})
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /market", s.handleMarket)
	mux.HandleFunc("GET /top-gainers", s.handleTopGainers)
	mux.HandleFunc("GET /top-losers", s.handleTopLosers)
	mux.HandleFunc("GET /sector-performance", s.handleSectorPerformance)
	mux.HandleFunc("GET /summary", s.handleSummary)
	mux.HandleFunc("GET /stocks", s.handleStocks)
	mux.HandleFunc("GET /stocks/search", s.handleSearch)
	mux.HandleFunc("GET /stock/{symbol}", s.handleStock)
}

// Handler returns an http.Handler with request-id and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return requestIDMiddleware(s.log, corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RequestIDHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestIDMiddleware echoes the caller's X-Request-ID or assigns a new one,
// and logs each request.
func requestIDMiddleware(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Debug("request",
			"id", id,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"elapsed", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: msg})
}

// parseLimit reads the "limit" query param. Missing means def; anything
// but a positive integer is an error. Values are capped at maxLimit.
func parseLimit(r *http.Request, def int) (int, bool) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxLimit), true
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, what string, err error) {
	s.log.Error(what, "path", r.URL.Path, "id", w.Header().Get(RequestIDHeader), "error", err)
	writeError(w, http.StatusInternalServerError, what)
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, MessageResponse{Message: "Welcome to the Tidder market data API"})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Market(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to load market data", err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleTopGainers(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, market.DefaultLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	list, err := s.svc.TopGainers(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, "failed to rank gainers", err)
		return
	}
	writeJSON(w, nonNil(list))
}

func (s *Server) handleTopLosers(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, market.DefaultLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	list, err := s.svc.TopLosers(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, "failed to rank losers", err)
		return
	}
	writeJSON(w, nonNil(list))
}

func (s *Server) handleSectorPerformance(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.SectorPerformance(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to compute sector performance", err)
		return
	}
	writeJSON(w, nonNil(list))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, market.DefaultLimit)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	sum, err := s.svc.Summary(r.Context(), limit)
	if err != nil {
		s.internalError(w, r, "failed to build market summary", err)
		return
	}
	writeJSON(w, sum)
}

func (s *Server) handleStocks(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.StockList(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to list stocks", err)
		return
	}
	writeJSON(w, nonNil(list))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(r, 10)
	if !ok {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, []domain.SymbolEntry{})
		return
	}

	if s.search != nil {
		hits, err := s.search.Search(q, limit)
		if err != nil {
			s.internalError(w, r, "search failed", err)
			return
		}
		writeJSON(w, nonNil(hits))
		return
	}

	list, err := s.svc.StockList(r.Context())
	if err != nil {
		s.internalError(w, r, "failed to list stocks", err)
		return
	}
	lq := strings.ToLower(q)
	hits := []domain.SymbolEntry{}
	for _, e := range list {
		if strings.Contains(strings.ToLower(e.Symbol), lq) || strings.Contains(strings.ToLower(e.Name), lq) {
			hits = append(hits, e)
			if len(hits) == limit {
				break
			}
		}
	}
	writeJSON(w, hits)
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(strings.TrimSpace(r.PathValue("symbol")))

	gen := s.cacheGen.Load()
	if s.ttl > 0 {
		if v, ok := s.cache.Load(symbol); ok {
			if c := v.(cachedAnalysis); c.gen == gen && s.now().Before(c.expires) {
				writeJSON(w, c.a)
				return
			}
		}
	}

	a, err := s.svc.Analysis(r.Context(), symbol)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "unknown symbol "+symbol)
		return
	}
	if err != nil {
		s.internalError(w, r, "failed to build analysis", err)
		return
	}
	// A record built across an Invalidate predates the refresh; don't keep it.
	if s.ttl > 0 && s.cacheGen.Load() == gen {
		s.cache.Store(symbol, cachedAnalysis{a: a, gen: gen, expires: s.now().Add(s.ttl)})
	}
	writeJSON(w, a)
}

// nonNil makes empty lists encode as [] rather than null.
func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
