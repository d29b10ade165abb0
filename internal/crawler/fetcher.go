package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// maxBodyBytes caps how much of a page is parsed.
const maxBodyBytes = 4 << 20

// Page is what the crawler keeps from a fetched document.
type Page struct {
	URL        string   `json:"url"`
	StatusCode int      `json:"status_code"`
	Title      string   `json:"title,omitempty"`
	Links      []string `json:"links"`
}

type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(timeout time.Duration, userAgent string) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: userAgent,
	}
}

// Fetch downloads rawURL and extracts the absolute targets of its a[href]
// elements. Non-HTML responses yield a page without links.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	resp, err := f.get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	page := &Page{
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Links:      make([]string, 0),
	}
	if resp.StatusCode != http.StatusOK {
		return page, fmt.Errorf("received status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return page, nil
	}

	// Redirects change the base that relative links resolve against.
	base := resp.Request.URL
	if err := parseHTML(io.LimitReader(resp.Body, maxBodyBytes), base, page); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", rawURL, err)
	}
	return page, nil
}

func (f *Fetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	return resp, nil
}

func parseHTML(body io.Reader, base *url.URL, page *Page) error {
	tokenizer := html.NewTokenizer(body)
	inTitle := false
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			if tokenizer.Err() == io.EOF {
				return nil
			}
			return tokenizer.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			switch token.Data {
			case "title":
				inTitle = true
			case "a":
				for _, attr := range token.Attr {
					if attr.Key != "href" {
						continue
					}
					if link := resolveLink(base, attr.Val); link != "" {
						page.Links = append(page.Links, link)
					}
				}
			}

		case html.EndTagToken:
			if tokenizer.Token().Data == "title" {
				inTitle = false
			}

		case html.TextToken:
			if inTitle && page.Title == "" {
				page.Title = strings.TrimSpace(string(tokenizer.Text()))
			}
		}
	}
}

// resolveLink makes href absolute against base and drops its fragment.
// Anything that is not http(s) resolves to "".
func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	abs.Fragment = ""
	abs.RawFragment = ""
	return abs.String()
}
