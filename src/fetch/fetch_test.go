package fetch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/task"
)

func newTestConfig(seed string) config.PolicyConfig {
	cfg := config.Default(seed)
	cfg.UserAgent = "weave-test/1.0"
	return cfg
}

func TestGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body>hi</body></html>"))
	}))
	defer server.Close()

	f := New(newTestConfig(server.URL))
	outcome := f.Get(t.Context(), server.URL)

	if outcome.Kind != task.OutcomeSuccess {
		t.Fatalf("Kind = %v, want OutcomeSuccess", outcome.Kind)
	}
	if outcome.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", outcome.Status)
	}
	if string(outcome.Body) != "<html><body>hi</body></html>" {
		t.Errorf("unexpected body: %q", outcome.Body)
	}
}

func TestGetSkipsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer server.Close()

	f := New(newTestConfig(server.URL))
	outcome := f.Get(t.Context(), server.URL)

	if outcome.Kind != task.OutcomeSkipped {
		t.Fatalf("Kind = %v, want OutcomeSkipped", outcome.Kind)
	}
	if outcome.Reason != "non-html" {
		t.Errorf("Reason = %q, want non-html", outcome.Reason)
	}
}

func Test5xxIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := New(newTestConfig(server.URL))
	outcome := f.Get(t.Context(), server.URL)

	if outcome.Kind != task.OutcomeRetryable {
		t.Fatalf("Kind = %v, want OutcomeRetryable", outcome.Kind)
	}
	if !outcome.Category.Retryable() {
		t.Errorf("Category = %v, want a retryable category", outcome.Category)
	}
}

func Test404IsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := New(newTestConfig(server.URL))
	outcome := f.Get(t.Context(), server.URL)

	if outcome.Kind != task.OutcomeFatal {
		t.Fatalf("Kind = %v, want OutcomeFatal", outcome.Kind)
	}
}

func Test429IsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	f := New(newTestConfig(server.URL))
	outcome := f.Get(t.Context(), server.URL)

	if outcome.Kind != task.OutcomeRetryable {
		t.Fatalf("Kind = %v, want OutcomeRetryable", outcome.Kind)
	}
	if !outcome.Category.Retryable() {
		t.Errorf("Category = %v, want a retryable category", outcome.Category)
	}
}

func TestGetDetectsRedirectLoop(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/a" {
			http.Redirect(w, r, server.URL+"/b", http.StatusFound)
			return
		}
		http.Redirect(w, r, server.URL+"/a", http.StatusFound)
	}))
	defer server.Close()

	f := New(newTestConfig(server.URL))
	outcome := f.Get(t.Context(), server.URL+"/a")

	if outcome.Kind != task.OutcomeFatal {
		t.Fatalf("Kind = %v, want OutcomeFatal for redirect loop", outcome.Kind)
	}
	if outcome.Reason != "redirect-loop" {
		t.Errorf("Reason = %q, want redirect-loop", outcome.Reason)
	}
}

func TestGetBodyTooLarge(t *testing.T) {
	big := make([]byte, defaultMaxBodyBytes+1024)
	for i := range big {
		big[i] = 'a'
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write(big)
	}))
	defer server.Close()

	f := New(newTestConfig(server.URL))
	outcome := f.Get(t.Context(), server.URL)

	if outcome.Kind != task.OutcomeFatal {
		t.Fatalf("Kind = %v, want OutcomeFatal for oversized body", outcome.Kind)
	}
}

func TestBuildAcceptLanguageDescendingQValues(t *testing.T) {
	got := buildAcceptLanguage([]string{"en", "fr", "de"})
	want := "en;q=1.0,fr;q=0.9,de;q=0.8"
	if got != want {
		t.Errorf("buildAcceptLanguage = %q, want %q", got, want)
	}
}

func TestBuildAcceptLanguageEmpty(t *testing.T) {
	if got := buildAcceptLanguage(nil); got != "" {
		t.Errorf("buildAcceptLanguage(nil) = %q, want empty", got)
	}
}

func TestUserAgentRotation(t *testing.T) {
	cfg := newTestConfig("http://example.com")
	cfg.UserAgentPool = []string{"agent-a", "agent-b"}
	f := New(cfg)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		seen[f.userAgentFor()] = true
	}
	if !seen["agent-a"] && !seen["agent-b"] {
		t.Errorf("userAgentFor never returned a pool entry: %v", seen)
	}
}
