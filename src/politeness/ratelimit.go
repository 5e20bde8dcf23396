package politeness

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/corrinfell/weave/src/config"
)

const (
	// adaptive rate floor/ceiling and EMA tuning, carried from the
	// teacher's AdaptiveLimiter (crawler/ratelimit.go).
	emaAlpha       = 0.2
	recoveryFactor = 1.1
	backoffFactor  = 0.5
)

// domainLimiter is a per-domain sliding-window rate limiter (via
// golang.org/x/time/rate, which implements a token-bucket equivalent
// of a sliding window at the configured rate) with an optional
// adaptive layer that narrows the rate when observed RTT exceeds a
// target, and a crawl-delay floor that overrides the configured rate
// when stricter.
type domainLimiter struct {
	mu          sync.Mutex
	limiter     *rate.Limiter
	configuredRPS float64
	crawlDelay  time.Duration
	targetRTT   time.Duration
	emaRTT      time.Duration
	currentRate float64
	lastAccess  time.Time
}

func newDomainLimiter(rl config.RateLimit) *domainLimiter {
	rps := rl.MaxRequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return &domainLimiter{
		limiter:       rate.NewLimiter(rate.Limit(rps), burst),
		configuredRPS: rps,
		currentRate:   rps,
		targetRTT:     500 * time.Millisecond,
		emaRTT:        500 * time.Millisecond,
		lastAccess:    time.Now(),
	}
}

// setCrawlDelay installs a robots.txt Crawl-delay as a floor on
// inter-request interval for this domain.
func (d *domainLimiter) setCrawlDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.crawlDelay = delay
	if delay <= 0 {
		return
	}
	floorRPS := 1.0 / delay.Seconds()
	if floorRPS < d.currentRate {
		d.applyRateLocked(floorRPS)
	}
}

// observeRTT folds a completed request's round-trip time into the EMA
// and adjusts the rate, generalizing the teacher's
// AdaptiveLimiter.ObserveRTT to be per-domain.
func (d *domainLimiter) observeRTT(rtt time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	newEMA := time.Duration(emaAlpha*float64(rtt) + (1-emaAlpha)*float64(d.emaRTT))
	d.emaRTT = newEMA

	ratio := float64(d.targetRTT) / float64(newEMA)
	var newRate float64
	if ratio < 1 {
		proposed := d.currentRate * ratio
		floor := d.currentRate * backoffFactor
		if proposed < floor {
			newRate = floor
		} else {
			newRate = proposed
		}
	} else {
		newRate = d.currentRate * recoveryFactor
	}

	// Never exceed the operator-configured rate; the adaptive layer
	// only narrows within the configured cap (SPEC_FULL.md §6).
	if newRate > d.configuredRPS {
		newRate = d.configuredRPS
	}
	if d.crawlDelay > 0 {
		floorRPS := 1.0 / d.crawlDelay.Seconds()
		if newRate > floorRPS {
			newRate = floorRPS
		}
	}

	if math.Abs(newRate-d.currentRate) > 0.05 {
		d.applyRateLocked(newRate)
	}
}

func (d *domainLimiter) applyRateLocked(rps float64) {
	d.currentRate = rps
	d.limiter.SetLimit(rate.Limit(rps))
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	d.limiter.SetBurst(burst)
}

func (d *domainLimiter) touch() {
	d.mu.Lock()
	d.lastAccess = time.Now()
	d.mu.Unlock()
}

func (d *domainLimiter) idleSince() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastAccess
}
