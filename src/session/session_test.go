package session

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/corrinfell/weave/src/config"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>Home</title></head>
<body><p>Weaving a small web of example content for testing purposes here.</p>
<a href="/about">About</a></body></html>`)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><title>About</title></head>
<body><p>This page describes the test fixture in a little more detail.</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func waitForPhase(t *testing.T, mgr *Manager, id string, phase Phase, timeout time.Duration) Status {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		st, err := mgr.Status(id)
		if err != nil {
			t.Fatalf("Status(%s): %v", id, err)
		}
		if st.Phase == phase {
			return st
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("session %s did not reach phase %s within %s", id, phase, timeout)
	return Status{}
}

func TestStartStatusCompletes(t *testing.T) {
	srv := newTestServer(t)

	cfg := config.Default(srv.URL + "/")
	cfg.MinWordCount = 1
	cfg.MaxCrawlDepth = 2

	mgr := NewManager(nil, nil)
	id, err := mgr.Start(cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	st := waitForPhase(t, mgr, id, PhaseCompleted, 5*time.Second)
	if st.Counters.Succeeded < 1 {
		t.Errorf("Counters.Succeeded = %d, want >= 1", st.Counters.Succeeded)
	}
	if len(st.LatestResults) < 1 {
		t.Errorf("LatestResults empty, want at least one page")
	}
}

func TestStartRejectsInvalidConfig(t *testing.T) {
	mgr := NewManager(nil, nil)
	_, err := mgr.Start(config.PolicyConfig{})
	if err == nil {
		t.Fatal("expected ConfigError for a config with no seeds")
	}
	if _, ok := err.(*config.ConfigError); !ok {
		t.Errorf("err type = %T, want *config.ConfigError", err)
	}
}

func TestStatusUnknownSession(t *testing.T) {
	mgr := NewManager(nil, nil)
	if _, err := mgr.Status("does-not-exist"); err != ErrUnknownSession {
		t.Errorf("Status(unknown) err = %v, want ErrUnknownSession", err)
	}
}

func TestStopUnknownSession(t *testing.T) {
	mgr := NewManager(nil, nil)
	if err := mgr.Stop("does-not-exist"); err != ErrUnknownSession {
		t.Errorf("Stop(unknown) err = %v, want ErrUnknownSession", err)
	}
}

func TestStopReachesCompleted(t *testing.T) {
	srv := newTestServer(t)

	cfg := config.Default(srv.URL + "/")
	cfg.MinWordCount = 1
	cfg.MaxConcurrentRequests = 1

	mgr := NewManager(nil, nil)
	id, err := mgr.Start(cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := mgr.Stop(id); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	waitForPhase(t, mgr, id, PhaseCompleted, 10*time.Second)
}

func TestRetryableFetchEventuallySucceeds(t *testing.T) {
	var attempts int32
	mux := http.NewServeMux()
	// Serve robots.txt separately so its fetch does not consume a 503.
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `<html><head><title>Home</title></head>
<body><p>Weaving a small web of example content for testing purposes here.</p></body></html>`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	cfg := config.Default(srv.URL + "/")
	cfg.MinWordCount = 1
	cfg.Retry.BaseDelay = 10 * time.Millisecond
	cfg.Retry.MaxDelay = 50 * time.Millisecond

	mgr := NewManager(nil, nil)
	id, err := mgr.Start(cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	st := waitForPhase(t, mgr, id, PhaseCompleted, 5*time.Second)
	if st.Counters.Succeeded != 1 {
		t.Errorf("Counters.Succeeded = %d, want 1 (503, 503, 200 should retry twice then succeed)", st.Counters.Succeeded)
	}
	if st.Counters.Failed != 0 {
		t.Errorf("Counters.Failed = %d, want 0", st.Counters.Failed)
	}
	if st.Counters.Retrying != 2 {
		t.Errorf("Counters.Retrying = %d, want 2", st.Counters.Retrying)
	}
}

func TestEventsDeliveredOnStart(t *testing.T) {
	srv := newTestServer(t)

	cfg := config.Default(srv.URL + "/")
	cfg.MinWordCount = 1

	events := make(chan Event, 64)
	mgr := NewManager(events, nil)
	id, err := mgr.Start(cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case evt := <-events:
		if evt.SessionID != id {
			t.Errorf("event SessionID = %q, want %q", evt.SessionID, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event delivered within 2s")
	}

	waitForPhase(t, mgr, id, PhaseCompleted, 5*time.Second)
}
