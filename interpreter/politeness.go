package interpreter

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

const (
	politenessUserAgent  = "scrapeflow"
	robotsFetchTimeout   = 5 * time.Second
	defaultHostRateLimit = 1 // requests per second, absent a robots.txt crawl-delay
)

// politenessGate is the ambient courtesy layer ahead of enqueueLinks job
// submission: a per-host rate.Limiter paired with a robots.txt group
// fetched once per host and cached. It decides "may I submit this job
// yet", not the full crawl-delay calculus of a standalone crawler.
type politenessGate struct {
	httpClient *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	robots   map[string]*robotstxt.Group // nil entry means "no robots.txt, allow all"
}

func newPolitenessGate() *politenessGate {
	return &politenessGate{
		httpClient: &http.Client{Timeout: robotsFetchTimeout},
		limiters:   make(map[string]*rate.Limiter),
		robots:     make(map[string]*robotstxt.Group),
	}
}

// Allow blocks until the per-host limiter admits the request, then reports
// whether robots.txt permits fetching target. A fetch/parse failure is
// treated as "allow" — no robots.txt means full access.
func (g *politenessGate) Allow(ctx context.Context, target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "" {
		return true
	}

	limiter := g.limiterFor(host)
	if err := limiter.Wait(ctx); err != nil {
		return false
	}

	group := g.robotsGroupFor(ctx, host, u)
	if group == nil {
		return true
	}
	return group.Test(u.EscapedPath())
}

func (g *politenessGate) limiterFor(host string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	if l, ok := g.limiters[host]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(defaultHostRateLimit), 1)
	g.limiters[host] = l
	return l
}

func (g *politenessGate) robotsGroupFor(ctx context.Context, host string, sample *url.URL) *robotstxt.Group {
	g.mu.Lock()
	if group, fetched := g.robots[host]; fetched {
		g.mu.Unlock()
		return group
	}
	g.mu.Unlock()

	group := g.fetchRobotsGroup(ctx, sample)

	g.mu.Lock()
	g.robots[host] = group
	if group != nil && group.CrawlDelay > 0 {
		g.limiters[host] = rate.NewLimiter(rate.Every(group.CrawlDelay), 1)
	}
	g.mu.Unlock()

	return group
}

func (g *politenessGate) fetchRobotsGroup(ctx context.Context, sample *url.URL) *robotstxt.Group {
	robotsURL := &url.URL{Scheme: sample.Scheme, Host: sample.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", politenessUserAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		slog.Debug("politeness: robots.txt fetch failed", "host", sample.Host, "error", err)
		return nil
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		slog.Debug("politeness: robots.txt parse failed", "host", sample.Host, "error", err)
		return nil
	}
	return data.FindGroup(politenessUserAgent)
}
