// Package cache keeps search results in Redis, keyed by corpus and query.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/indexer/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/resilience"
)

const keyPrefix = "search:"

// Store is the subset of pkg/redis.Client the cache needs.
type Store interface {
	Lookup(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// QueryCache stores search results in Redis. Keys include the corpus
// fingerprint, so a rebuilt corpus never serves results from an old one.
// Redis failures degrade to cache misses; a circuit breaker stops calling
// Redis after repeated failures.
type QueryCache struct {
	store   Store
	cfg     config.RedisConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(store Store, cfg config.RedisConfig, m *metrics.Metrics) *QueryCache {
	breakerCfg := resilience.CircuitBreakerConfig{
		FailureThreshold: cfg.BreakerThreshold,
		ResetTimeout:     cfg.BreakerCooldown,
	}
	if m != nil {
		breakerCfg.OnStateChange = func(_ string, _, to resilience.State) {
			open := 0.0
			if to == resilience.StateOpen {
				open = 1
			}
			m.CacheBreakerOpen.Set(open)
		}
	}
	return &QueryCache{
		store:   store,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("redis-cache", breakerCfg),
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, corpus, query string, limit int) (*executor.SearchResult, bool) {
	key := buildKey(corpus, query, limit)
	var (
		data  string
		found bool
	)
	err := c.breaker.Execute(func() error {
		var err error
		data, found, err = c.store.Lookup(ctx, key)
		return err
	})
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	if !found {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, corpus, query string, limit int, result *executor.SearchResult) {
	key := buildKey(corpus, query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.store.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for query, or runs computeFn once
// for all concurrent callers with the same key and caches its result. The
// returned result always carries the caller's query string.
//
// computeFn receives a context detached from the caller's cancellation, so a
// disconnecting client does not fail the other callers sharing the work. A
// caller whose own ctx ends stops waiting and gets ctx.Err().
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	corpus string,
	query string,
	limit int,
	computeFn func(ctx context.Context) (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, corpus, query, limit); ok {
		result.Query = query
		return result, true, nil
	}
	key := buildKey(corpus, query, limit)
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		result, err := computeFn(shared)
		if err != nil {
			return nil, err
		}
		c.Set(shared, corpus, query, limit, result)
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		out := *res.Val.(*executor.SearchResult)
		out.Query = query
		return &out, false, nil
	}
}

func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	pattern := keyPrefix + "*"
	var deleted int64
	err := c.breaker.Execute(func() error {
		var err error
		deleted, err = c.store.FlushByPattern(ctx, pattern)
		return err
	})
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(corpus, query string, limit int) string {
	raw := fmt.Sprintf("%s|%s|limit=%d", corpus, normalizeQuery(query), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

// normalizeQuery reduces a query to its sorted term counts. Queries that
// tokenize to the same counts score identically, whatever their case,
// punctuation or word order.
func normalizeQuery(query string) string {
	counts := tokenizer.Count(query)
	terms := make([]string, 0, len(counts))
	for term, n := range counts {
		terms = append(terms, fmt.Sprintf("%s=%d", term, n))
	}
	sort.Strings(terms)
	return strings.Join(terms, ",")
}
