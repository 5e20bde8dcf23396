package session

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// EventKind names a structured session event, extending the teacher's
// single CrawlEvent shape (crawler/events.go) into the full set an
// external logging collaborator can subscribe to.
type EventKind string

const (
	EventCrawlStart           EventKind = "crawl_start"
	EventTaskAdmitted         EventKind = "task_admitted"
	EventTaskPopped           EventKind = "task_popped"
	EventFetchStarted         EventKind = "fetch_started"
	EventFetchCompleted       EventKind = "fetch_completed"
	EventFetchFailed          EventKind = "fetch_failed"
	EventContentExtracted     EventKind = "content_extracted"
	EventLanguageDetected     EventKind = "language_detected"
	EventKeywordMatch         EventKind = "keyword_match"
	EventLinkDiscovered       EventKind = "link_discovered"
	EventTaskRetryScheduled   EventKind = "task_retry_scheduled"
	EventSessionStopping      EventKind = "session_stopping"
	EventSessionTerminal      EventKind = "session_terminal"
)

// Event is one structured occurrence during a session's lifetime.
// Every event carries the owning session id and a monotonic sequence
// number, so an external collaborator can order events even if its
// transport reorders delivery.
type Event struct {
	Kind      EventKind
	SessionID string
	Sequence  uint64
	URL       string
	Detail    string
	Timestamp time.Time
}

// eventBus fans a session's events out to an optional channel and an
// optional zap sink, generalizing the teacher's bare progressCh into
// something that can feed both a UI collaborator and structured logs
// without the orchestrator caring which (or whether either) is wired
// up.
type eventBus struct {
	sessionID string
	seq       uint64
	ch        chan<- Event
	log       *zap.Logger
}

func newEventBus(sessionID string, ch chan<- Event, log *zap.Logger) *eventBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &eventBus{sessionID: sessionID, ch: ch, log: log}
}

func (b *eventBus) emit(kind EventKind, url, detail string) {
	seq := atomic.AddUint64(&b.seq, 1)
	evt := Event{
		Kind:      kind,
		SessionID: b.sessionID,
		Sequence:  seq,
		URL:       url,
		Detail:    detail,
		Timestamp: time.Now(),
	}

	b.log.Debug(string(kind),
		zap.String("session_id", b.sessionID),
		zap.Uint64("sequence", seq),
		zap.String("url", url),
		zap.String("detail", detail),
	)

	if b.ch == nil {
		return
	}
	select {
	case b.ch <- evt:
	default:
		// A slow or absent subscriber must never stall a worker; events
		// are best-effort, counters and results are authoritative.
	}
}
