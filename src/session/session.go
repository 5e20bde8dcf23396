// Package session implements the Session Orchestrator: the worker
// pool that drives tasks through politeness, fetch, and content, the
// lifecycle state machine external callers observe via start/status/
// stop, and the aggregated statistics those callers poll for.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/content"
	"github.com/corrinfell/weave/src/fetch"
	"github.com/corrinfell/weave/src/frontier"
	"github.com/corrinfell/weave/src/politeness"
	"github.com/corrinfell/weave/src/task"
)

// Phase is a session's externally observable lifecycle state. The
// state machine is one-way: Idle -> Running -> (Stopping -> terminal)
// | Completed | Failed. Stopping's terminal outcome is reported as
// Completed; the contract here doesn't distinguish "drained on its
// own" from "drained because stop was requested" once a session has
// actually finished.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseStopping  Phase = "stopping"
	PhaseCompleted Phase = "completed"
	PhaseFailed    Phase = "failed"
)

// ErrUnknownSession is returned by Status and Stop for an id the
// Manager has never issued or has since forgotten.
var ErrUnknownSession = errors.New("session: unknown session id")

const (
	maxBufferedErrors  = 200
	maxBufferedResults = 100
	stopGracePeriod    = 5 * time.Second
	memoryCheckPeriod  = 500 * time.Millisecond
)

// Counters mirrors spec.md's SessionState counters: admitted,
// dequeued, succeeded, retrying, failed, skipped. Each field is read
// with Load, so a Status snapshot never observes a torn update.
type Counters struct {
	Admitted  int64
	Dequeued  int64
	Succeeded int64
	Retrying  int64
	Failed    int64
	Skipped   int64
}

type atomicCounters struct {
	admitted, dequeued, succeeded, retrying, failed, skipped atomic.Int64
}

func (c *atomicCounters) snapshot() Counters {
	return Counters{
		Admitted:  c.admitted.Load(),
		Dequeued:  c.dequeued.Load(),
		Succeeded: c.succeeded.Load(),
		Retrying:  c.retrying.Load(),
		Failed:    c.failed.Load(),
		Skipped:   c.skipped.Load(),
	}
}

// Status is a point-in-time snapshot of a session, returned by
// Manager.Status.
type Status struct {
	Phase         Phase
	Counters      Counters
	CurrentURLs   []string
	Errors        []string
	LatestResults []task.PageRecord
	StartedAt     time.Time
	EndedAt       time.Time
}

// Session drives one crawl: a worker pool pulling from its own
// Frontier/Politeness/Fetcher, feeding the content pipeline, and
// folding results back into the stats this package exposes via
// Status. Generalizes the teacher's Crawler (crawler/crawler.go),
// which ran exactly one crawl per process with no notion of a
// queryable lifecycle; here a session id lets many run concurrently
// under one Manager, each independently startable/stoppable.
type Session struct {
	id  string
	cfg config.PolicyConfig

	fr      *frontier.Frontier
	polite  *politeness.Politeness
	fetcher *fetch.Fetcher
	mem     *memoryWatcher
	bus     *eventBus

	counters    atomicCounters
	pendingWork sync.WaitGroup

	mu            sync.Mutex
	phase         Phase
	currentURLs   map[string]bool
	errs          []string
	latestResults []task.PageRecord
	startedAt     time.Time
	endedAt       time.Time

	cancel context.CancelFunc
}

func newSession(id string, cfg config.PolicyConfig, eventCh chan<- Event, log *zap.Logger) (*Session, error) {
	fr, err := frontier.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("create frontier: %w", err)
	}

	robotsClient := &http.Client{Timeout: 5 * time.Second}

	return &Session{
		id:          id,
		cfg:         cfg,
		fr:          fr,
		polite:      politeness.New(cfg, robotsClient),
		fetcher:     fetch.New(cfg),
		mem:         newMemoryWatcher(0),
		bus:         newEventBus(id, eventCh, log),
		phase:       PhaseIdle,
		currentURLs: make(map[string]bool),
	}, nil
}

// run seeds the frontier and drives the worker pool until the
// frontier drains naturally or ctx is cancelled (via Stop or an
// external deadline). It is launched once, from the Manager, in its
// own goroutine.
func (s *Session) run(ctx context.Context) {
	s.setPhase(PhaseRunning)
	s.mu.Lock()
	s.startedAt = time.Now()
	s.mu.Unlock()
	s.bus.emit(EventCrawlStart, "", fmt.Sprintf("seeds=%d", len(s.cfg.Seeds)))

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	for _, seed := range s.cfg.Seeds {
		s.admit(task.Task{URL: seed, Depth: 0, Origin: ""})
	}

	// Once every admitted task has resolved (succeeded, failed, or
	// exhausted its retries) and no new admission is pending, close the
	// frontier so blocked Pop calls return PopClosed and workers exit.
	go func() {
		s.pendingWork.Wait()
		s.fr.Close()
	}()

	workers := s.cfg.MaxConcurrentRequests
	if workers <= 0 {
		workers = 10
	}

	group, groupCtx := errgroup.WithContext(runCtx)
	for i := 0; i < workers; i++ {
		ordinal := i
		group.Go(func() error {
			s.workerLoop(groupCtx, ordinal, workers)
			return nil
		})
	}
	_ = group.Wait()

	s.mu.Lock()
	s.endedAt = time.Now()
	s.mu.Unlock()

	// Stopping and a natural drain both land here: the external phase
	// enum has no separate "terminated" value, so a stopped session is
	// reported the same as one that finished on its own.
	s.setPhase(PhaseCompleted)
	s.bus.emit(EventSessionTerminal, "", string(s.getPhase()))
}

// workerLoop is one worker slot: pop, acquire politeness, fetch, run
// content, admit discovered links, record the result. Generalizes the
// teacher's per-worker errgroup.Go closure in Crawler.Run.
func (s *Session) workerLoop(ctx context.Context, ordinal, configured int) {
	ticker := time.NewTicker(memoryCheckPeriod)
	defer ticker.Stop()

	level := ThrottleNormal
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, level = s.mem.check()
		default:
		}

		if ordinal >= effectiveWorkers(configured, level) {
			select {
			case <-ctx.Done():
				return
			case <-time.After(200 * time.Millisecond):
				continue
			}
		}

		t, status := s.fr.Pop(ctx)
		switch status {
		case frontier.PopClosed, frontier.PopTimeout:
			return
		}
		if s.getPhase() == PhaseStopping {
			// Stop drops queued tasks; only in-flight work finishes.
			return
		}

		s.counters.dequeued.Add(1)
		s.bus.emit(EventTaskPopped, t.URL, fmt.Sprintf("depth=%d attempt=%d", t.Depth, t.Attempt))
		s.trackCurrent(t.URL, true)
		s.processTask(ctx, t)
		s.trackCurrent(t.URL, false)
	}
}

func (s *Session) processTask(ctx context.Context, t task.Task) {
	acquired := s.polite.Acquire(ctx, t.URL, s.cfg.UserAgent)
	if !acquired.Acquired {
		s.recordError(fmt.Sprintf("%s: politeness blocked (%s)", t.URL, acquired.BlockedReason))
		s.finishTask(t, false)
		return
	}

	s.bus.emit(EventFetchStarted, t.URL, "")
	fetchStart := time.Now()
	outcome := s.fetcher.Get(ctx, t.URL)
	fetchDuration := time.Since(fetchStart)
	s.polite.ObserveRTT(t.URL, fetchDuration)

	switch outcome.Kind {
	case task.OutcomeSuccess:
		s.bus.emit(EventFetchCompleted, t.URL, fmt.Sprintf("status=%d bytes=%d", outcome.Status, outcome.BodySize))
		s.handleFetched(t, outcome, fetchDuration)
		s.finishTask(t, false)

	case task.OutcomeSkipped:
		s.counters.skipped.Add(1)
		s.bus.emit(EventFetchCompleted, t.URL, "skipped:"+outcome.Reason)
		s.finishTask(t, false)

	case task.OutcomeRetryable:
		s.bus.emit(EventFetchFailed, t.URL, "retryable")
		if s.fr.ReturnForRetry(t, outcome.Category) {
			s.counters.retrying.Add(1)
			s.bus.emit(EventTaskRetryScheduled, t.URL, fmt.Sprintf("attempt=%d", t.Attempt+1))
			return // still pending; pendingWork is not Done() until it resolves
		}
		s.counters.failed.Add(1)
		s.recordError(fmt.Sprintf("%s: %s: retries exhausted", t.URL, task.FormatCategory(outcome.Category)))
		s.finishTask(t, false)

	case task.OutcomeFatal:
		s.counters.failed.Add(1)
		s.bus.emit(EventFetchFailed, t.URL, "fatal")
		label := task.FormatCategory(outcome.Category)
		if outcome.Err != nil {
			s.recordError(fmt.Sprintf("%s: %s: %v", t.URL, label, outcome.Err))
		} else {
			s.recordError(fmt.Sprintf("%s: %s: %s", t.URL, label, outcome.Reason))
		}
		s.finishTask(t, false)
	}
}

func (s *Session) handleFetched(t task.Task, outcome task.FetchOutcome, fetchDuration time.Duration) {
	record, passed, err := content.Process(outcome.Body, t.URL, outcome.FinalURL, t.Depth, outcome.Status, fetchDuration, s.cfg)
	if err != nil {
		s.counters.failed.Add(1)
		s.recordError(fmt.Sprintf("%s: content parse: %v", t.URL, err))
		return
	}

	s.bus.emit(EventContentExtracted, t.URL, fmt.Sprintf("words=%d", record.WordCount))
	s.bus.emit(EventLanguageDetected, t.URL, record.DetectedLanguage.Code)
	if len(record.KeywordsMatched) > 0 {
		s.bus.emit(EventKeywordMatch, t.URL, fmt.Sprintf("%v", record.KeywordsMatched))
	}

	for _, link := range record.DiscoveredLinks {
		if s.fr.Seen(link.URL) {
			continue
		}
		s.bus.emit(EventLinkDiscovered, link.URL, string(link.Category))
		s.admit(task.Task{
			URL:               link.URL,
			Depth:             t.Depth + 1,
			Origin:            t.URL,
			DiscoveryCategory: link.Category,
			AnchorText:        link.AnchorText,
		})
	}

	if passed {
		s.counters.succeeded.Add(1)
		s.recordResult(record)
	} else {
		s.counters.skipped.Add(1)
	}
}

// admit offers t to the frontier and, on Admitted, registers one unit
// of outstanding work so the drain watcher can detect completion.
func (s *Session) admit(t task.Task) {
	t.ScheduledAt = time.Now()
	result, reason := s.fr.Admit(t)
	if result == task.Admitted {
		s.counters.admitted.Add(1)
		s.pendingWork.Add(1)
		s.bus.emit(EventTaskAdmitted, t.URL, "")
		return
	}
	if result == task.Rejected {
		s.bus.emit(EventTaskAdmitted, t.URL, "rejected:"+string(reason))
	}
}

// finishTask marks one unit of outstanding work resolved. retried
// tasks must not call this: they remain outstanding until they
// eventually succeed, fail fatally, or exhaust their retries.
func (s *Session) finishTask(_ task.Task, retried bool) {
	if retried {
		return
	}
	s.pendingWork.Done()
}

func (s *Session) trackCurrent(url string, active bool) {
	s.mu.Lock()
	if active {
		s.currentURLs[url] = true
	} else {
		delete(s.currentURLs, url)
	}
	s.mu.Unlock()
}

func (s *Session) recordError(msg string) {
	s.mu.Lock()
	s.errs = append(s.errs, msg)
	if len(s.errs) > maxBufferedErrors {
		s.errs = s.errs[len(s.errs)-maxBufferedErrors:]
	}
	s.mu.Unlock()
}

func (s *Session) recordResult(r task.PageRecord) {
	s.mu.Lock()
	s.latestResults = append(s.latestResults, r)
	if len(s.latestResults) > maxBufferedResults {
		s.latestResults = s.latestResults[len(s.latestResults)-maxBufferedResults:]
	}
	s.mu.Unlock()
}

func (s *Session) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

func (s *Session) getPhase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// requestStop flips the session to Stopping: the frontier is closed
// immediately and workers drop queued tasks instead of starting them,
// in-flight fetches are given a grace period to finish, and after
// that the run context is cancelled unconditionally.
func (s *Session) requestStop() {
	s.mu.Lock()
	if s.phase != PhaseRunning {
		s.mu.Unlock()
		return
	}
	s.phase = PhaseStopping
	cancel := s.cancel
	s.mu.Unlock()

	s.bus.emit(EventSessionStopping, "", "")
	s.fr.Close()

	if cancel != nil {
		go func() {
			time.Sleep(stopGracePeriod)
			cancel()
		}()
	}
}

func (s *Session) snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	urls := make([]string, 0, len(s.currentURLs))
	for u := range s.currentURLs {
		urls = append(urls, u)
	}
	errs := make([]string, len(s.errs))
	copy(errs, s.errs)
	results := make([]task.PageRecord, len(s.latestResults))
	copy(results, s.latestResults)

	return Status{
		Phase:         s.phase,
		Counters:      s.counters.snapshot(),
		CurrentURLs:   urls,
		Errors:        errs,
		LatestResults: results,
		StartedAt:     s.startedAt,
		EndedAt:       s.endedAt,
	}
}

// release frees the session's disk-backed dedup store. Called by the
// Manager once a session reaches a terminal phase and is evicted.
func (s *Session) release() error {
	return s.fr.Release()
}
