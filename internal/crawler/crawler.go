// Package crawler discovers pages by following links breadth-first from a
// seed URL. It is bounded by page count and link depth, paces its requests
// and honours robots.txt. It does not feed the index.
package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/metrics"
)

// Outcomes recorded in the crawler_pages_total metric.
const (
	OutcomeOK         = "ok"
	OutcomeError      = "error"
	OutcomeDisallowed = "disallowed"
)

// FetchError records a URL that could not be fetched.
type FetchError struct {
	URL string `json:"url"`
	Err string `json:"error"`
}

// Result lists what one crawl saw. Visited holds every URL the crawler
// attempted, in visit order, including the ones that failed.
type Result struct {
	Seed       string        `json:"seed"`
	Visited    []string      `json:"visited"`
	Pages      []*Page       `json:"pages"`
	Errors     []FetchError  `json:"errors"`
	Disallowed []string      `json:"disallowed"`
	Duration   time.Duration `json:"duration"`
}

// VisitFunc is called after every attempted URL.
type VisitFunc func(rawURL string, depth int, err error)

type Option func(*Crawler)

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Crawler) { c.metrics = m }
}

func WithVisitFunc(fn VisitFunc) Option {
	return func(c *Crawler) { c.onVisit = fn }
}

type Crawler struct {
	cfg     config.CrawlerConfig
	fetcher *Fetcher
	metrics *metrics.Metrics
	onVisit VisitFunc
	logger  *slog.Logger
}

func New(cfg config.CrawlerConfig, opts ...Option) *Crawler {
	c := &Crawler{
		cfg:     cfg,
		fetcher: NewFetcher(cfg.Timeout, cfg.UserAgent),
		logger:  slog.Default().With("component", "crawler"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type item struct {
	url   *url.URL
	depth int
}

// Crawl visits seed and the pages it links to, breadth-first. At most
// MaxPages URLs are attempted and links are followed to at most MaxDepth
// hops from the seed (a zero bound means unbounded). Fetch failures are
// recorded and skipped. Cancelling ctx stops the crawl and returns what was
// gathered so far together with the context error.
func (c *Crawler) Crawl(ctx context.Context, seed string) (*Result, error) {
	start, err := parseSeed(seed)
	if err != nil {
		return nil, err
	}
	limit := rate.Inf
	if c.cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(c.cfg.RequestsPerSecond)
	}
	limiter := rate.NewLimiter(limit, 1)
	var robots *robotsCache
	if c.cfg.RespectRobots {
		robots = newRobotsCache(c.fetcher, c.cfg.UserAgent)
	}

	began := time.Now()
	res := &Result{
		Seed:       start.String(),
		Visited:    make([]string, 0),
		Pages:      make([]*Page, 0),
		Errors:     make([]FetchError, 0),
		Disallowed: make([]string, 0),
	}
	seen := map[string]struct{}{start.String(): {}}
	queue := []item{{url: start, depth: 0}}

	for len(queue) > 0 {
		if c.cfg.MaxPages > 0 && len(res.Visited) >= c.cfg.MaxPages {
			break
		}
		next := queue[0]
		queue = queue[1:]
		target := next.url.String()

		if robots != nil && !robots.allowed(ctx, next.url) {
			res.Disallowed = append(res.Disallowed, target)
			c.record(OutcomeDisallowed)
			c.logger.Debug("disallowed by robots.txt", "url", target)
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			res.Duration = time.Since(began)
			return res, fmt.Errorf("crawl of %s interrupted: %w", res.Seed, err)
		}

		res.Visited = append(res.Visited, target)
		page, err := c.fetcher.Fetch(ctx, target)
		if c.onVisit != nil {
			c.onVisit(target, next.depth, err)
		}
		if err != nil {
			if ctx.Err() != nil {
				res.Duration = time.Since(began)
				return res, fmt.Errorf("crawl of %s interrupted: %w", res.Seed, ctx.Err())
			}
			res.Errors = append(res.Errors, FetchError{URL: target, Err: err.Error()})
			c.record(OutcomeError)
			c.logger.Warn("fetch failed", "url", target, "error", err)
			continue
		}
		res.Pages = append(res.Pages, page)
		c.record(OutcomeOK)

		if c.cfg.MaxDepth > 0 && next.depth >= c.cfg.MaxDepth {
			continue
		}
		for _, link := range page.Links {
			if _, dup := seen[link]; dup {
				continue
			}
			u, err := url.Parse(link)
			if err != nil {
				continue
			}
			if c.cfg.SameHost && u.Host != start.Host {
				continue
			}
			seen[link] = struct{}{}
			queue = append(queue, item{url: u, depth: next.depth + 1})
		}
	}

	res.Duration = time.Since(began)
	c.logger.Info("crawl finished",
		"seed", res.Seed,
		"visited", len(res.Visited),
		"errors", len(res.Errors),
		"disallowed", len(res.Disallowed),
		"elapsed", res.Duration,
	)
	return res, nil
}

func (c *Crawler) record(outcome string) {
	if c.metrics != nil {
		c.metrics.PagesCrawledTotal.WithLabelValues(outcome).Inc()
	}
}

func parseSeed(seed string) (*url.URL, error) {
	u, err := url.Parse(seed)
	if err != nil {
		return nil, fmt.Errorf("seed %q: %w", seed, apperrors.ErrInvalidInput)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("seed %q must be an absolute http(s) URL: %w", seed, apperrors.ErrInvalidInput)
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u, nil
}
