package politeness

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// cachedRobots stores parsed robots.txt data with its fetch timestamp.
// A nil data field means "allow all" (404, 5xx, or fetch error).
type cachedRobots struct {
	data      *robotstxt.RobotsData
	crawlDelay time.Duration
	fetchedAt time.Time
}

// robotsChecker fetches and TTL-caches robots.txt per host (including
// any port), coalescing concurrent misses for the same host into one
// fetch via singleflight. Generalizes the teacher's RobotsChecker
// (crawler/robots.go), which used a bare sync.Map and so raced
// multiple fetches for the same host under concurrent callers despite
// documenting single-flight intent.
type robotsChecker struct {
	client *http.Client
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]*cachedRobots

	group singleflight.Group
}

func newRobotsChecker(client *http.Client, ttl time.Duration) *robotsChecker {
	return &robotsChecker{
		client: client,
		ttl:    ttl,
		cache:  make(map[string]*cachedRobots),
	}
}

// allowed reports whether rawURL may be fetched by userAgent, along
// with any crawl-delay directive for the host. Network or parse
// errors fail open (allow all, no crawl-delay).
func (r *robotsChecker) allowed(ctx context.Context, rawURL, userAgent string) (allowed bool, crawlDelay time.Duration, err error) {
	parsed, parseErr := url.Parse(rawURL)
	if parseErr != nil {
		return true, 0, fmt.Errorf("parse URL: %w", parseErr)
	}
	host := parsed.Host
	if host == "" {
		return true, 0, nil
	}

	if cached, ok := r.lookup(host); ok {
		if cached.data == nil {
			return true, 0, nil
		}
		return cached.data.TestAgent(parsed.Path, userAgent), cached.crawlDelay, nil
	}

	result, err, _ := r.group.Do(host, func() (any, error) {
		return r.fetch(ctx, parsed.Scheme, host)
	})
	if err != nil {
		r.store(host, &cachedRobots{fetchedAt: time.Now()})
		return true, 0, err
	}

	entry := result.(*cachedRobots)
	r.store(host, entry)
	if entry.data == nil {
		return true, 0, nil
	}
	return entry.data.TestAgent(parsed.Path, userAgent), entry.crawlDelay, nil
}

func (r *robotsChecker) lookup(host string) (*cachedRobots, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[host]
	if !ok || time.Since(entry.fetchedAt) >= r.ttl {
		return nil, false
	}
	return entry, true
}

func (r *robotsChecker) store(host string, entry *cachedRobots) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[host] = entry
}

func (r *robotsChecker) fetch(ctx context.Context, scheme, host string) (*cachedRobots, error) {
	robotsURL := fmt.Sprintf("%s://%s/robots.txt", scheme, host)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create robots.txt request for host %s: %w", host, err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt for host %s: %w", host, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read robots.txt body for host %s: %w", host, err)
	}

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500 {
		return &cachedRobots{fetchedAt: time.Now()}, nil
	}

	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt for host %s: %w", host, err)
	}
	if robots == nil {
		return &cachedRobots{fetchedAt: time.Now()}, nil
	}

	delay := time.Duration(0)
	if group := robots.FindGroup("*"); group != nil {
		delay = group.CrawlDelay
	}

	return &cachedRobots{data: robots, crawlDelay: delay, fetchedAt: time.Now()}, nil
}

// evictIdle removes cache entries untouched since the given instant,
// part of the periodic maintenance sweep.
func (r *robotsChecker) evictIdle(before time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for host, entry := range r.cache {
		if entry.fetchedAt.Before(before) {
			delete(r.cache, host)
		}
	}
}
