// Package frontier implements the scheduler/dedup/retry subsystem:
// priority-ordered admission, bloom-filter-backed duplicate
// suppression, and an exponential-backoff retry sub-queue.
package frontier

import (
	"container/heap"
	"container/list"
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/task"
	"github.com/corrinfell/weave/src/urlutil"
)

// PopStatus reports why Pop returned without a usable Task.
type PopStatus int

const (
	PopOK PopStatus = iota
	PopClosed
	PopTimeout
)

// Frontier is the admission-and-selection structure for the crawl
// queue. It generalizes the teacher's visited.go (bloom dedup) and
// retry.go (backoff) into a single scheduling component that also
// owns priority bands and the retry sub-queue.
type Frontier struct {
	cfg   config.PolicyConfig
	dedup *dedupStore

	seedHosts map[string]bool

	mu            sync.Mutex
	bands         [3]*list.List // indexed by band
	retryQueue    retryHeap
	admittedTotal int
	closed        bool
	notifyCh      chan struct{}
}

// New creates a Frontier for the given policy. The frontier owns a
// disk-backed bloom filter; callers must Close it when the session
// reaches a terminal state.
func New(cfg config.PolicyConfig) (*Frontier, error) {
	dedup, err := newDedupStore()
	if err != nil {
		return nil, err
	}

	seedHosts := make(map[string]bool, len(cfg.Seeds))
	for _, seed := range cfg.Seeds {
		if parsed, err := url.Parse(seed); err == nil {
			seedHosts[strings.ToLower(parsed.Hostname())] = true
		}
	}

	f := &Frontier{
		cfg:       cfg,
		dedup:     dedup,
		seedHosts: seedHosts,
		notifyCh:  make(chan struct{}),
	}
	for i := range f.bands {
		f.bands[i] = list.New()
	}
	heap.Init(&f.retryQueue)
	return f, nil
}

// Admit offers t to the frontier. It normalizes the URL, computes the
// fingerprint and priority, rejects tasks that violate a cap or scope
// rule, and deduplicates against previously admitted fingerprints.
func (f *Frontier) Admit(t task.Task) (task.AdmitResult, task.RejectReason) {
	normalized, err := urlutil.Normalize(t.URL)
	if err != nil {
		return task.Rejected, task.ReasonMalformedURL
	}
	t.URL = normalized

	fingerprint, err := urlutil.Fingerprint(t.URL)
	if err != nil {
		return task.Rejected, task.ReasonMalformedURL
	}

	if t.Depth > f.cfg.MaxCrawlDepth {
		return task.Rejected, task.ReasonDepthExceeded
	}

	if !f.scopeAllows(t.URL) {
		return task.Rejected, task.ReasonDomainScope
	}

	if urlutil.HasBlockedExtension(t.URL, f.cfg.Discovery.AvoidURLExtensions) {
		return task.Rejected, task.ReasonExtensionBlocked
	}

	if f.patternBlocked(t.URL) {
		return task.Rejected, task.ReasonPatternBlocked
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cfg.MaxTotalURLs > 0 && f.admittedTotal >= f.cfg.MaxTotalURLs {
		return task.Rejected, task.ReasonTotalCapExceeded
	}

	if !f.dedup.markSeen(fingerprint) {
		return task.Duplicate, ""
	}

	t.Fingerprint = fingerprint
	t.Priority = ComputePriority(t.URL, t.DiscoveryCategory, t.Depth, t.AnchorText, f.cfg.Priority)
	t.ScheduledAt = time.Now()

	f.bands[bandOf(t.Priority, f.cfg.Priority)].PushBack(t)
	f.admittedTotal++
	f.wakeLocked()

	return task.Admitted, ""
}

// Pop returns the oldest eligible task in the highest non-empty
// priority band (FIFO within a band), blocking until one is
// available, the frontier closes, or ctx is done.
func (f *Frontier) Pop(ctx context.Context) (task.Task, PopStatus) {
	for {
		f.mu.Lock()
		f.promoteReadyRetriesLocked()

		if t, ok := f.dequeueLocked(); ok {
			f.mu.Unlock()
			return t, PopOK
		}

		if f.closed {
			f.mu.Unlock()
			return task.Task{}, PopClosed
		}

		wait := f.nextWakeLocked()
		notify := f.notifyCh
		f.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return task.Task{}, PopTimeout
		case <-notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// ReturnForRetry reinserts t into the retry sub-queue with attempt
// incremented and scheduled_at computed via exponential backoff.
// Returns false (caller must record the task as permanently failed)
// when cat is not retryable or attempt would exceed max_retries.
func (f *Frontier) ReturnForRetry(t task.Task, cat task.ErrorCategory) bool {
	if !cat.Retryable() {
		return false
	}
	t.Attempt++
	if t.Attempt > f.cfg.Retry.MaxRetries {
		return false
	}
	t.ScheduledAt = time.Now().Add(backoff(t.Attempt, f.cfg.Retry))

	f.mu.Lock()
	heap.Push(&f.retryQueue, t)
	f.wakeLocked()
	f.mu.Unlock()
	return true
}

// Seen reports whether rawURL's fingerprint has already been admitted,
// without marking it seen. Callers use this to skip discovery-event
// noise for links that would be rejected as Duplicate by Admit anyway,
// rather than emitting a link-discovered event and then silently
// dropping it.
func (f *Frontier) Seen(rawURL string) bool {
	normalized, err := urlutil.Normalize(rawURL)
	if err != nil {
		return false
	}
	fingerprint, err := urlutil.Fingerprint(normalized)
	if err != nil {
		return false
	}
	return f.dedup.seenBefore(fingerprint)
}

// Close stops further admission side effects on Pop: pending tasks
// still drain, but once empty Pop returns Closed. Admit is not
// disabled by Close; callers of Admit should stop calling it once
// they observe Closed from Pop.
func (f *Frontier) Close() {
	f.mu.Lock()
	f.closed = true
	f.wakeLocked()
	f.mu.Unlock()
}

// Release releases the frontier's bloom filter backing store. Call
// once the owning session reaches a terminal state.
func (f *Frontier) Release() error {
	return f.dedup.close()
}

// PendingCount returns the number of tasks currently queued (bands
// plus retry sub-queue), useful for the orchestrator's drain check.
func (f *Frontier) PendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := f.retryQueue.Len()
	for _, b := range f.bands {
		n += b.Len()
	}
	return n
}

func (f *Frontier) dequeueLocked() (task.Task, bool) {
	for i := len(f.bands) - 1; i >= 0; i-- {
		if front := f.bands[i].Front(); front != nil {
			f.bands[i].Remove(front)
			return front.Value.(task.Task), true
		}
	}
	return task.Task{}, false
}

func (f *Frontier) promoteReadyRetriesLocked() {
	now := time.Now()
	for f.retryQueue.Len() > 0 && !f.retryQueue[0].ScheduledAt.After(now) {
		t := heap.Pop(&f.retryQueue).(task.Task)
		f.bands[bandOf(t.Priority, f.cfg.Priority)].PushBack(t)
	}
}

// nextWakeLocked bounds how long Pop sleeps before re-checking the
// retry sub-queue, in lieu of a per-item timer.
func (f *Frontier) nextWakeLocked() time.Duration {
	const maxWait = 200 * time.Millisecond
	if f.retryQueue.Len() == 0 {
		return maxWait
	}
	until := time.Until(f.retryQueue[0].ScheduledAt)
	if until <= 0 {
		return time.Millisecond
	}
	if until > maxWait {
		return maxWait
	}
	return until
}

func (f *Frontier) wakeLocked() {
	close(f.notifyCh)
	f.notifyCh = make(chan struct{})
}

func (f *Frontier) scopeAllows(rawURL string) bool {
	if !f.cfg.Discovery.Enabled {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())

	switch f.cfg.Discovery.Scope {
	case config.ScopeUnrestricted:
		return true
	case config.ScopeSameDomain:
		return f.seedHosts[host]
	case config.ScopeSubdomains:
		for seedHost := range f.seedHosts {
			if urlutil.IsSameDomain(rawURL, seedHost) {
				return true
			}
		}
		return false
	case config.ScopeAllowList:
		for _, d := range f.cfg.Discovery.ScopeList {
			if urlutil.IsSameDomain(rawURL, d) {
				return true
			}
		}
		return false
	case config.ScopeBlockList:
		for _, d := range f.cfg.Discovery.ScopeList {
			if urlutil.IsSameDomain(rawURL, d) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (f *Frontier) patternBlocked(rawURL string) bool {
	for _, pattern := range f.cfg.Discovery.BlockURLPatterns {
		if matched, _ := regexpMatch(pattern, rawURL); matched {
			return true
		}
	}
	if len(f.cfg.Discovery.AllowURLPatterns) == 0 {
		return false
	}
	for _, pattern := range f.cfg.Discovery.AllowURLPatterns {
		if matched, _ := regexpMatch(pattern, rawURL); matched {
			return false
		}
	}
	return true
}
