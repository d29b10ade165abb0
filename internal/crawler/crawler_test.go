package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/pkg/metrics"
)

func site(t *testing.T) *httptest.Server {
	t.Helper()
	pages := map[string]string{
		"/": `<html><head><title>Home</title></head><body>
			<a href="/a">a</a> <a href="b">b</a> <a href="#top">top</a>
			<a href="mailto:someone@example.com">mail</a> <a href="/a#section">a again</a>
			<a href="http://elsewhere.example/x">external</a></body></html>`,
		"/a":         `<a href="/c">c</a><a href="/private/p">secret</a>`,
		"/c":         `<a href="/">home</a>`,
		"/private/p": `<p>hidden</p>`,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, body)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig() config.CrawlerConfig {
	return config.CrawlerConfig{
		Timeout:       5 * time.Second,
		UserAgent:     "cosine-search-test",
		RespectRobots: true,
		SameHost:      true,
	}
}

func TestCrawlBreadthFirst(t *testing.T) {
	srv := site(t)
	m := metrics.NewWithRegistry(prometheus.NewRegistry())

	res, err := New(testConfig(), WithMetrics(m)).Crawl(context.Background(), srv.URL+"/")
	require.NoError(t, err)

	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}, res.Visited)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, srv.URL+"/b", res.Errors[0].URL)
	assert.Equal(t, []string{srv.URL + "/private/p"}, res.Disallowed)
	require.NotEmpty(t, res.Pages)
	assert.Equal(t, "Home", res.Pages[0].Title)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.PagesCrawledTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesCrawledTotal.WithLabelValues(OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PagesCrawledTotal.WithLabelValues(OutcomeDisallowed)))
}

func TestCrawlIgnoresRobotsWhenDisabled(t *testing.T) {
	srv := site(t)
	cfg := testConfig()
	cfg.RespectRobots = false

	res, err := New(cfg).Crawl(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Contains(t, res.Visited, srv.URL+"/private/p")
	assert.Empty(t, res.Disallowed)
}

func TestCrawlMaxDepth(t *testing.T) {
	srv := site(t)
	cfg := testConfig()
	cfg.MaxDepth = 1

	res, err := New(cfg).Crawl(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/a", srv.URL + "/b"}, res.Visited)
}

func TestCrawlMaxPages(t *testing.T) {
	srv := site(t)
	cfg := testConfig()
	cfg.MaxPages = 2

	var calls []string
	res, err := New(cfg, WithVisitFunc(func(u string, depth int, err error) {
		calls = append(calls, u)
	})).Crawl(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, []string{srv.URL + "/", srv.URL + "/a"}, res.Visited)
	assert.Equal(t, res.Visited, calls)
}

func TestCrawlVisitedSetIsPerCall(t *testing.T) {
	srv := site(t)
	c := New(testConfig())

	first, err := c.Crawl(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	second, err := c.Crawl(context.Background(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, first.Visited, second.Visited)
}

func TestCrawlInvalidSeed(t *testing.T) {
	for _, seed := range []string{"", "not a url", "ftp://example.com/", "/relative"} {
		_, err := New(testConfig()).Crawl(context.Background(), seed)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput, seed)
	}
}

func TestCrawlCancelled(t *testing.T) {
	srv := site(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := New(testConfig()).Crawl(ctx, srv.URL+"/")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Empty(t, res.Visited)
}

func TestResolveLink(t *testing.T) {
	base, _ := url.Parse("http://example.com/dir/page.html")
	tests := []struct {
		href string
		want string
	}{
		{"other.html", "http://example.com/dir/other.html"},
		{"/root", "http://example.com/root"},
		{"../up", "http://example.com/up"},
		{"https://x.org/p#frag", "https://x.org/p"},
		{"#only", ""},
		{"javascript:void(0)", ""},
		{"mailto:a@b.c", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, resolveLink(base, tt.href), tt.href)
	}
}
