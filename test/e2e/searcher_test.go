// Package e2e runs black-box checks against a searcher that is already
// serving, for example one started with `go run ./cmd/searcher`. The target
// is E2E_SEARCHER_URL (default http://localhost:8080); every test skips when
// it does not answer.
package e2e

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"sort"
	"testing"
	"time"
)

type scoredDoc struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type searchResult struct {
	Query     string      `json:"query"`
	Corpus    string      `json:"corpus"`
	TotalDocs int         `json:"total_docs"`
	TotalHits int         `json:"total_hits"`
	Matching  []string    `json:"matching"`
	Results   []scoredDoc `json:"results"`
}

type termStat struct {
	Term string `json:"term"`
	TF   int    `json:"tf"`
	DF   int    `json:"df"`
}

var client = &http.Client{Timeout: 10 * time.Second}

func baseURL(t *testing.T) string {
	t.Helper()
	base := os.Getenv("E2E_SEARCHER_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	resp, err := client.Get(base + "/health/live")
	if err != nil {
		t.Skipf("skipping e2e test: searcher unavailable at %s: %v", base, err)
	}
	resp.Body.Close()
	return base
}

func getJSON(t *testing.T, rawURL string, out any) (int, http.Header) {
	t.Helper()
	resp, err := client.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s: %v", rawURL, err)
		}
	}
	return resp.StatusCode, resp.Header
}

func TestHealth(t *testing.T) {
	base := baseURL(t)
	var body map[string]any
	status, _ := getJSON(t, base+"/health/ready", &body)
	if status != http.StatusOK {
		t.Fatalf("expected ready 200, got %d", status)
	}
	if body["status"] == "down" {
		t.Errorf("service reports down: %v", body)
	}
}

// TestSearchAgreesWithTermStats queries the corpus's most common term and
// checks the response against /api/v1/terms.
func TestSearchAgreesWithTermStats(t *testing.T) {
	base := baseURL(t)

	var terms struct {
		Documents int        `json:"documents"`
		Terms     []termStat `json:"terms"`
	}
	if status, _ := getJSON(t, base+"/api/v1/terms", &terms); status != http.StatusOK {
		t.Fatalf("terms: status %d", status)
	}
	if len(terms.Terms) == 0 {
		t.Skip("corpus is empty")
	}
	sort.Slice(terms.Terms, func(i, j int) bool { return terms.Terms[i].DF > terms.Terms[j].DF })
	top := terms.Terms[0]

	var res searchResult
	status, hdr := getJSON(t, base+"/api/v1/search?limit=1000&q="+url.QueryEscape(top.Term), &res)
	if status != http.StatusOK {
		t.Fatalf("search: status %d", status)
	}
	if res.TotalHits != top.DF || len(res.Matching) != top.DF {
		t.Errorf("term %q has df %d but search matched %d (%v)", top.Term, top.DF, res.TotalHits, res.Matching)
	}
	if res.TotalDocs != terms.Documents {
		t.Errorf("total_docs %d != documents %d", res.TotalDocs, terms.Documents)
	}
	if hdr.Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
	for i := 1; i < len(res.Results); i++ {
		prev, cur := res.Results[i-1], res.Results[i]
		if prev.Score < cur.Score || (prev.Score == cur.Score && prev.Name > cur.Name) {
			t.Errorf("results out of order at %d: %+v then %+v", i, prev, cur)
		}
	}
}

func TestSearchValidation(t *testing.T) {
	base := baseURL(t)

	if status, _ := getJSON(t, base+"/api/v1/search", nil); status != http.StatusBadRequest {
		t.Errorf("missing q: expected 400, got %d", status)
	}
	if status, _ := getJSON(t, base+"/api/v1/search?q=x&limit=zero", nil); status != http.StatusBadRequest {
		t.Errorf("bad limit: expected 400, got %d", status)
	}

	var res searchResult
	if status, _ := getJSON(t, base+"/api/v1/search?q=+%21%21", &res); status != http.StatusOK {
		t.Fatalf("empty query: expected 200, got %d", status)
	}
	if res.TotalHits != 0 || len(res.Matching) != 0 {
		t.Errorf("empty query matched documents: %+v", res)
	}
	for _, r := range res.Results {
		if r.Score != 0 {
			t.Errorf("empty query gave %s a score of %v", r.Name, r.Score)
		}
	}
}

func TestCacheStats(t *testing.T) {
	base := baseURL(t)
	var stats map[string]any
	if status, _ := getJSON(t, base+"/api/v1/cache/stats", &stats); status != http.StatusOK {
		t.Fatalf("cache stats: status %d", status)
	}
	if stats["status"] == "disabled" {
		t.Skip("cache disabled")
	}
	if _, ok := stats["hit_rate"]; !ok {
		t.Errorf("missing hit_rate: %v", stats)
	}
}
