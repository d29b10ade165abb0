// Package executor answers a query against the current corpus.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/ranker"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/report"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/similarity"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/tfidf"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/tracing"
)

// Result types recorded in the search_queries_total metric.
const (
	ResultMatch      = "match"
	ResultZero       = "zero_result"
	ResultEmptyQuery = "empty_query"
	ResultError      = "error"
)

type SearchResult struct {
	Query      string             `json:"query"`
	Corpus     string             `json:"corpus"`
	TotalDocs  int                `json:"total_docs"`
	TotalHits  int                `json:"total_hits"`
	Matching   []string           `json:"matching"`
	Results    []ranker.ScoredDoc `json:"results"`
	TFIDF      []tfidf.TermScore  `json:"tfidf"`
	QueryStats []report.TermStat  `json:"query_stats"`
}

// Kind classifies the result for metrics and logs.
func (r *SearchResult) Kind() string {
	switch {
	case len(r.QueryStats) == 0:
		return ResultEmptyQuery
	case r.TotalHits == 0:
		return ResultZero
	default:
		return ResultMatch
	}
}

type Option func(*Executor)

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) { e.metrics = m }
}

// Executor answers queries against the current corpus. The corpus can be
// swapped while queries are running; each query sees one corpus throughout.
type Executor struct {
	corpus  atomic.Pointer[index.Corpus]
	scorer  *similarity.Scorer
	cfg     config.SearchConfig
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func New(corpus *index.Corpus, cfg config.SearchConfig, opts ...Option) *Executor {
	e := &Executor{
		scorer: similarity.NewScorer(cfg.ScoringWorkers),
		cfg:    cfg,
		logger: slog.Default().With("component", "query-executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.SetCorpus(corpus)
	return e
}

// SetCorpus replaces the corpus used by subsequent queries.
func (e *Executor) SetCorpus(corpus *index.Corpus) {
	if corpus == nil {
		corpus = index.Empty()
	}
	e.corpus.Store(corpus)
}

func (e *Executor) Corpus() *index.Corpus {
	return e.corpus.Load()
}

// Execute scores query against every document and returns the documents
// ranked by cosine similarity, truncated to limit (limit <= 0 keeps all, up
// to MaxResults when set). An empty query is not an error: every document
// scores zero and nothing matches.
func (e *Executor) Execute(ctx context.Context, query string, limit int) (*SearchResult, error) {
	corpus := e.Corpus()
	if e.cfg.MaxResults > 0 && (limit <= 0 || limit > e.cfg.MaxResults) {
		limit = e.cfg.MaxResults
	}

	start := time.Now()
	ctx, root := tracing.Start(ctx, "search", middleware.GetRequestID(ctx))
	defer func() {
		root.End()
		root.Log(ctx, e.logger)
	}()

	var result *SearchResult
	err := resilience.WithTimeout(ctx, e.cfg.QueryTimeout, "search", func(ctx context.Context) error {
		sctx, span := tracing.StartChild(ctx, "score")
		scored, err := e.scorer.Score(sctx, query, corpus)
		span.End()
		if err != nil {
			return err
		}

		_, span = tracing.StartChild(ctx, "rank")
		ranked := ranker.Rank(scored.Scores, limit)
		span.End()

		_, span = tracing.StartChild(ctx, "tfidf")
		weights := tfidf.Sorted(query, corpus)
		stats := report.QueryStats(query, corpus)
		span.End()

		if scored.ZeroNorm > 0 {
			e.logger.Debug("zero-norm fallback applied",
				"error", apperrors.ErrZeroNormDivision,
				"query", query,
				"documents", scored.ZeroNorm,
				"score", similarity.ZeroNormScore,
			)
		}

		result = &SearchResult{
			Query:      query,
			Corpus:     corpus.Fingerprint(),
			TotalDocs:  corpus.DocCount(),
			TotalHits:  len(scored.Matching),
			Matching:   scored.Matching,
			Results:    ranked,
			TFIDF:      weights,
			QueryStats: stats,
		}
		return nil
	})
	if err != nil {
		e.record(ResultError, 0)
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("scoring query %q: %w", query, apperrors.ErrTimeout)
		}
		return nil, fmt.Errorf("scoring query %q: %w", query, err)
	}

	kind := result.Kind()
	e.record(kind, result.TotalHits)
	root.SetAttr("result", kind)
	if kind == ResultEmptyQuery {
		e.logger.Debug("empty query", "error", apperrors.ErrEmptyQuery, "query", query)
	}

	e.logger.Info("query executed",
		"query", query,
		"terms", len(result.QueryStats),
		"matching", result.TotalHits,
		"results", len(result.Results),
		"elapsed", time.Since(start),
	)
	return result, nil
}

func (e *Executor) record(kind string, hits int) {
	if e.metrics == nil {
		return
	}
	e.metrics.SearchQueriesTotal.WithLabelValues(kind).Inc()
	if kind != ResultError {
		e.metrics.SearchResultsCount.Observe(float64(hits))
	}
}
