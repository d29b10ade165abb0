// Command loadtest drives concurrent queries at a running searcher and
// reports throughput, latency percentiles, status codes and cache hit rate.
// Queries are drawn from the service's own vocabulary unless -q is given.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/cosine-search/internal/searcher/report"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Limit       int
	Queries     []string
}

type Stats struct {
	total     atomic.Int64
	success   atomic.Int64
	failed    atomic.Int64
	cacheHits atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies: make([]time.Duration, 0, 100000),
		statuses:  make(map[int]int64),
	}
}

func (s *Stats) Record(elapsed time.Duration, status int, cache string, err error) {
	s.total.Add(1)
	if err != nil {
		s.failed.Add(1)
		return
	}
	if status >= 200 && status < 300 {
		s.success.Add(1)
	} else {
		s.failed.Add(1)
	}
	if cache == "hit" {
		s.cacheHits.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, elapsed)
	s.statuses[status]++
	s.mu.Unlock()
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the searcher")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	limit := flag.Int("limit", 10, "results requested per query")
	queries := flag.String("q", "", "comma-separated queries (default: sampled from the corpus vocabulary)")
	count := flag.Int("queries", 50, "number of sampled queries when -q is empty")
	flag.Parse()

	cfg := Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Concurrency: *concurrency,
		Duration:    *duration,
		Limit:       *limit,
	}
	if *queries != "" {
		cfg.Queries = strings.Split(*queries, ",")
	} else {
		sampled, err := sampleQueries(cfg.BaseURL, *count)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sampling queries: %v\n", err)
			os.Exit(1)
		}
		cfg.Queries = sampled
	}
	if len(cfg.Queries) == 0 {
		fmt.Fprintln(os.Stderr, "no queries to run: the corpus has no terms")
		os.Exit(1)
	}

	fmt.Println("=== Cosine Search Load Test ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Queries:     %d unique\n", len(cfg.Queries))
	fmt.Println()

	stats := run(cfg)
	if !printReport(stats, cfg.Duration) {
		os.Exit(1)
	}
}

// sampleQueries builds n one- to three-term queries from /api/v1/terms.
func sampleQueries(baseURL string, n int) ([]string, error) {
	resp, err := http.Get(baseURL + "/api/v1/terms")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET /api/v1/terms: status %d", resp.StatusCode)
	}
	var body struct {
		Terms []report.TermStat `json:"terms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding terms: %w", err)
	}
	if len(body.Terms) == 0 {
		return nil, nil
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		words := make([]string, 1+rng.Intn(3))
		for j := range words {
			words[j] = body.Terms[rng.Intn(len(body.Terms))].Term
		}
		out = append(out, strings.Join(words, " "))
	}
	return out, nil
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		next := w
		g.Go(func() error {
			for ctx.Err() == nil {
				query := cfg.Queries[next%len(cfg.Queries)]
				next++
				searchOnce(ctx, client, cfg, query, stats)
			}
			return nil
		})
	}

	fmt.Print("Running")
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	g.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func searchOnce(ctx context.Context, client *http.Client, cfg Config, query string, stats *Stats) {
	searchURL := fmt.Sprintf("%s/api/v1/search?q=%s&limit=%d", cfg.BaseURL, url.QueryEscape(query), cfg.Limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		stats.Record(0, 0, "", err)
		return
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		// Requests cut off by the end of the run are not failures.
		if ctx.Err() == nil {
			stats.Record(elapsed, 0, "", err)
		}
		return
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	stats.Record(elapsed, resp.StatusCode, resp.Header.Get(handler.CacheHeader), nil)
}

func printReport(stats *Stats, duration time.Duration) bool {
	total := stats.total.Load()
	success := stats.success.Load()
	failed := stats.failed.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", failed)
	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(failed)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}
	if success > 0 {
		fmt.Printf("Cache Hit Rate:  %.2f%%\n", float64(stats.cacheHits.Load())/float64(success)*100)
	}

	stats.mu.Lock()
	latencies := append([]time.Duration(nil), stats.latencies...)
	codes := make([]int, 0, len(stats.statuses))
	for code := range stats.statuses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	counts := make([]int64, len(codes))
	for i, code := range codes {
		counts[i] = stats.statuses[code]
	}
	stats.mu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		var sq float64
		for _, l := range latencies {
			d := float64(l - avg)
			sq += d * d
		}

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
		fmt.Printf("StdDev: %s\n", time.Duration(math.Sqrt(sq/float64(len(latencies)))))
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	for i, code := range codes {
		fmt.Printf("  %d: %d\n", code, counts[i])
	}

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the searcher running?")
		return false
	}
	return true
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
