// Package handler serves the search HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/report"
	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/middleware"
)

// CacheHeader reports how a search was served: hit, miss or disabled.
const CacheHeader = "X-Cache"

type SearchExecutor interface {
	Execute(ctx context.Context, query string, limit int) (*executor.SearchResult, error)
	Corpus() *index.Corpus
}

type Handler struct {
	executor     SearchExecutor
	cache        *cache.QueryCache
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

// New builds the search API. queryCache and m may be nil.
func New(exec SearchExecutor, queryCache *cache.QueryCache, m *metrics.Metrics, defaultLimit, maxResults int) *Handler {
	return &Handler{
		executor:     exec,
		cache:        queryCache,
		metrics:      m,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/terms", h.CorpusTerms)
	mux.HandleFunc("GET /api/v1/terms/query", h.QueryTerms)
	mux.HandleFunc("GET /api/v1/documents", h.Documents)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

// Search ranks every document against q. A q that contains no terms is
// answered with the all-zero result rather than an error.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	if !params.Has("q") {
		h.fail(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'q' is required"))
		return
	}
	query := params.Get("q")

	limit := h.defaultLimit
	if limitStr := params.Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.fail(w, apperrors.Newf(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer, got %q", limitStr))
			return
		}
		limit = parsed
	}
	if h.maxResults > 0 && limit > h.maxResults {
		limit = h.maxResults
	}

	var (
		result      *executor.SearchResult
		err         error
		cacheStatus = "disabled"
	)
	if h.cache != nil {
		var hit bool
		fingerprint := h.executor.Corpus().Fingerprint()
		result, hit, err = h.cache.GetOrCompute(ctx, fingerprint, query, limit, func(ctx context.Context) (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, query, limit)
		})
		cacheStatus = "miss"
		if hit {
			cacheStatus = "hit"
		}
	} else {
		result, err = h.executor.Execute(ctx, query, limit)
	}

	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.fail(w, err)
		return
	}

	elapsed := time.Since(start)
	if h.metrics != nil {
		h.metrics.SearchLatency.WithLabelValues(cacheStatus).Observe(elapsed.Seconds())
	}
	log.Info("search completed",
		"query", query,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"cache", cacheStatus,
		"request_id", middleware.GetRequestID(ctx),
		"latency_ms", elapsed.Milliseconds(),
	)
	w.Header().Set(CacheHeader, cacheStatus)
	h.writeJSON(w, http.StatusOK, result)
}

// CorpusTerms lists every indexed term with its collection and document
// frequency.
func (h *Handler) CorpusTerms(w http.ResponseWriter, r *http.Request) {
	corpus := h.executor.Corpus()
	h.writeJSON(w, http.StatusOK, map[string]any{
		"corpus":    corpus.Fingerprint(),
		"documents": corpus.DocCount(),
		"terms":     report.CorpusStats(corpus),
	})
}

// QueryTerms lists the terms of q with their query and document frequency.
func (h *Handler) QueryTerms(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	h.writeJSON(w, http.StatusOK, map[string]any{
		"query": query,
		"terms": report.QueryStats(query, h.executor.Corpus()),
	})
}

func (h *Handler) Documents(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"documents": h.executor.Corpus().Documents(),
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.fail(w, apperrors.New(apperrors.ErrInternal, http.StatusInternalServerError, "cache invalidation failed"))
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// fail answers with err's status. Only an AppError's message reaches the
// client; anything else is reported as "search failed".
func (h *Handler) fail(w http.ResponseWriter, err error) {
	message := "search failed"
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	h.writeError(w, apperrors.HTTPStatusCode(err), message)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
