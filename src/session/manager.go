package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/corrinfell/weave/src/config"
)

// Manager owns every session started in a process and implements the
// external Session API: start, status, stop. It has no teacher
// equivalent — the teacher's CLI ran exactly one crawl per process —
// so multiple sessions sharing one Manager is new, generalized from
// "one Crawler per process" to "one session registry serving however
// many concurrent crawls the UI/actor collaborator requests."
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	nextID   atomic.Uint64

	eventCh chan<- Event
	log     *zap.Logger
}

// NewManager creates an empty session registry. eventCh is optional
// (nil disables event delivery); log is optional (nil uses a no-op
// logger, matching zap.NewNop()).
func NewManager(eventCh chan<- Event, log *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		eventCh:  eventCh,
		log:      log,
	}
}

// Start validates cfg, constructs a session, and launches its worker
// pool in the background. It returns the session id synchronously; a
// *config.ConfigError is returned (unwrapped) for the caller to
// inspect the offending field, matching the teacher's validateFlags
// contract of surfacing the first violation found.
func (m *Manager) Start(cfg config.PolicyConfig) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", err
	}

	id := m.newSessionID()
	sess, err := newSession(id, cfg, m.eventCh, m.log)
	if err != nil {
		return "", fmt.Errorf("session: %w", err)
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	go sess.run(context.Background())

	return id, nil
}

// Status returns a point-in-time snapshot for id, or ErrUnknownSession.
func (m *Manager) Status(id string) (Status, error) {
	sess, ok := m.lookup(id)
	if !ok {
		return Status{}, ErrUnknownSession
	}
	return sess.snapshot(), nil
}

// Stop requests that id transition to Stopping. It returns
// immediately (Acknowledged); the session reaches its terminal phase
// asynchronously, observable via a later Status call. Returns
// ErrUnknownSession for an id Start never issued.
func (m *Manager) Stop(id string) error {
	sess, ok := m.lookup(id)
	if !ok {
		return ErrUnknownSession
	}
	sess.requestStop()
	return nil
}

// Forget releases a terminal session's resources (its disk-backed
// dedup store) and removes it from the registry. Callers should only
// call this once Status reports Completed or Failed; forgetting a
// running session leaks its worker pool.
func (m *Manager) Forget(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrUnknownSession
	}
	return sess.release()
}

func (m *Manager) lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

func (m *Manager) newSessionID() string {
	n := m.nextID.Add(1)
	return fmt.Sprintf("session-%d", n)
}
