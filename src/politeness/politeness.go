// Package politeness implements the robots.txt, rate-limiting, and
// DNS-caching subsystem: ensuring each request is allowed and
// well-timed, and amortizing DNS and robots fetches per host.
package politeness

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/task"
)

// AcquireResult is the outcome of Acquire: exactly one of Acquired
// (optionally carrying a pre-resolved address) or Blocked.
type AcquireResult struct {
	Acquired      bool
	ChosenAddress string
	BlockedReason task.BlockedReason
	CrawlDelay    time.Duration
}

// Politeness owns the per-domain state (rate limiters, robots cache,
// DNS cache) for one session. Generalizes the teacher's RobotsChecker
// (crawler/robots.go) plus AdaptiveLimiter (crawler/ratelimit.go) into
// a single registry keyed by host name, with DNS caching added
// alongside. Subdomains of one registrable domain are tracked as
// separate hosts, each with its own rate limiter.
type Politeness struct {
	cfg    config.PolicyConfig
	robots *robotsChecker
	dns    *dnsCache
	maxWait time.Duration

	mu       sync.Mutex
	limiters map[string]*domainLimiter
}

// New creates a Politeness registry for the session. robotsClient is
// a short-timeout HTTP client dedicated to robots.txt fetches,
// matching the teacher's separate robotsClient in crawler.New.
func New(cfg config.PolicyConfig, robotsClient *http.Client) *Politeness {
	if robotsClient == nil {
		robotsClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Politeness{
		cfg:      cfg,
		robots:   newRobotsChecker(robotsClient, cfg.RobotsCacheTTL),
		dns:      newDNSCache(cfg.DNSCacheTTL),
		maxWait:  30 * time.Second,
		limiters: make(map[string]*domainLimiter),
	}
}

// Acquire checks robots.txt, waits out the sliding-window rate limit,
// and resolves DNS for rawURL's host. It blocks the caller only up to
// the configured maximum wait; exceeding it yields Blocked{timeout}.
func (p *Politeness) Acquire(ctx context.Context, rawURL, userAgent string) AcquireResult {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return AcquireResult{BlockedReason: task.BlockedMalformedURL}
	}
	host := parsed.Hostname()

	allowed, crawlDelay, _ := p.robots.allowed(ctx, rawURL, userAgent)
	if !allowed {
		return AcquireResult{BlockedReason: task.BlockedRobotsDisallow}
	}

	limiter := p.limiterFor(host)
	if crawlDelay > 0 {
		limiter.setCrawlDelay(crawlDelay)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.maxWait)
	defer cancel()
	if err := limiter.limiter.Wait(waitCtx); err != nil {
		return AcquireResult{BlockedReason: task.BlockedTimeout}
	}
	limiter.touch()

	addrs, err := p.dns.resolve(ctx, host)
	if err != nil {
		return AcquireResult{BlockedReason: task.BlockedDNSFailure}
	}

	chosen := ""
	if len(addrs) > 0 {
		chosen = addrs[0]
	}
	return AcquireResult{Acquired: true, ChosenAddress: chosen, CrawlDelay: crawlDelay}
}

// ObserveRTT feeds a completed request's latency into the domain's
// adaptive rate layer, narrowing the effective rate for slow hosts.
func (p *Politeness) ObserveRTT(rawURL string, rtt time.Duration) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return
	}
	p.limiterFor(parsed.Hostname()).observeRTT(rtt)
}

func (p *Politeness) limiterFor(host string) *domainLimiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	if l, ok := p.limiters[host]; ok {
		return l
	}

	rl := p.cfg.DefaultRateLimit
	if perDomain, ok := p.cfg.PerDomainRateLimits[host]; ok {
		rl = perDomain
	}
	l := newDomainLimiter(rl)
	p.limiters[host] = l
	return l
}

// Sweep evicts domain state (rate limiters, robots cache, DNS cache)
// idle beyond idleAfter. Safe to call from a periodic maintenance
// goroutine; evictions never affect in-flight operations since state
// is keyed by value, not reused by reference once removed.
func (p *Politeness) Sweep(idleAfter time.Duration) {
	cutoff := time.Now().Add(-idleAfter)

	p.mu.Lock()
	for host, l := range p.limiters {
		if l.idleSince().Before(cutoff) {
			delete(p.limiters, host)
		}
	}
	p.mu.Unlock()

	p.robots.evictIdle(cutoff)
	p.dns.evictIdle(cutoff)
}
