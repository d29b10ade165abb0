package crawler

import (
	"context"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// robotsCache holds one parsed robots.txt per scheme+host for the length of
// a single crawl. A host whose robots.txt cannot be fetched or parsed is
// treated as allowing everything.
type robotsCache struct {
	fetcher *Fetcher
	agent   string
	hosts   map[string]*robotstxt.RobotsData
}

func newRobotsCache(f *Fetcher, agent string) *robotsCache {
	return &robotsCache{
		fetcher: f,
		agent:   agent,
		hosts:   make(map[string]*robotstxt.RobotsData),
	}
}

func (r *robotsCache) allowed(ctx context.Context, u *url.URL) bool {
	key := u.Scheme + "://" + u.Host
	data, ok := r.hosts[key]
	if !ok {
		data = r.load(ctx, key)
		r.hosts[key] = data
	}
	if data == nil {
		return true
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return data.TestAgent(path, r.agent)
}

func (r *robotsCache) load(ctx context.Context, origin string) *robotstxt.RobotsData {
	resp, err := r.fetcher.get(ctx, origin+"/robots.txt")
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}
