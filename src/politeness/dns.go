package politeness

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// dnsEntry caches a resolved address set or a recent failure.
type dnsEntry struct {
	addresses []string
	err       error
	resolvedAt time.Time
	ttl       time.Duration
}

func (e *dnsEntry) expired() bool {
	return time.Since(e.resolvedAt) >= e.ttl
}

// dnsCache amortizes DNS resolution per hostname with a TTL cache and
// single-flight coalescing of concurrent misses. New component (the
// teacher does not resolve DNS itself; net/http does it internally per
// request), grounded on the same coalescing shape as robotsChecker
// above for consistency within the package.
type dnsCache struct {
	resolver  *net.Resolver
	ttl       time.Duration
	failureTTL time.Duration

	mu    sync.RWMutex
	cache map[string]*dnsEntry

	group singleflight.Group
}

func newDNSCache(ttl time.Duration) *dnsCache {
	return &dnsCache{
		resolver:   net.DefaultResolver,
		ttl:        ttl,
		failureTTL: 30 * time.Second,
		cache:      make(map[string]*dnsEntry),
	}
}

// resolve returns the cached or freshly resolved address set for host.
func (c *dnsCache) resolve(ctx context.Context, host string) ([]string, error) {
	if entry, ok := c.lookup(host); ok {
		return entry.addresses, entry.err
	}

	result, err, _ := c.group.Do(host, func() (any, error) {
		addrs, lookupErr := c.resolver.LookupHost(ctx, host)
		entry := &dnsEntry{resolvedAt: time.Now()}
		if lookupErr != nil {
			entry.err = fmt.Errorf("resolve host %s: %w", host, lookupErr)
			entry.ttl = c.failureTTL
		} else {
			entry.addresses = addrs
			entry.ttl = c.ttl
		}
		c.store(host, entry)
		return entry, nil
	})
	if err != nil {
		return nil, err
	}
	entry := result.(*dnsEntry)
	return entry.addresses, entry.err
}

func (c *dnsCache) lookup(host string) (*dnsEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[host]
	if !ok || entry.expired() {
		return nil, false
	}
	return entry, true
}

func (c *dnsCache) store(host string, entry *dnsEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache[host] = entry
}

func (c *dnsCache) evictIdle(before time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for host, entry := range c.cache {
		if entry.resolvedAt.Before(before) {
			delete(c.cache, host)
		}
	}
}
