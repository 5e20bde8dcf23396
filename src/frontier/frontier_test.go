package frontier_test

import (
	"context"
	"testing"
	"time"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/frontier"
	"github.com/corrinfell/weave/src/task"
)

func newTestFrontier(t *testing.T, cfg config.PolicyConfig) *frontier.Frontier {
	t.Helper()
	f, err := frontier.New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() {
		if err := f.Release(); err != nil {
			t.Errorf("Release() error: %v", err)
		}
	})
	return f
}

func TestAdmitDepthCap(t *testing.T) {
	cfg := config.Default("https://example.com/")
	cfg.MaxCrawlDepth = 1
	f := newTestFrontier(t, cfg)

	result, _ := f.Admit(task.Task{URL: "https://example.com/a", Depth: 1, DiscoveryCategory: task.CategoryInDomain})
	if result != task.Admitted {
		t.Fatalf("depth 1 should admit, got %v", result)
	}

	result, reason := f.Admit(task.Task{URL: "https://example.com/b", Depth: 2, DiscoveryCategory: task.CategoryInDomain})
	if result != task.Rejected || reason != task.ReasonDepthExceeded {
		t.Fatalf("depth 2 should be rejected with depth-exceeded, got %v/%v", result, reason)
	}
}

func TestAdmitDuplicate(t *testing.T) {
	cfg := config.Default("https://example.com/")
	f := newTestFrontier(t, cfg)

	t1 := task.Task{URL: "https://example.com/a", DiscoveryCategory: task.CategoryInDomain}
	if result, _ := f.Admit(t1); result != task.Admitted {
		t.Fatalf("first admit should succeed, got %v", result)
	}
	if result, _ := f.Admit(t1); result != task.Duplicate {
		t.Fatalf("second admit of same fingerprint should be Duplicate, got %v", result)
	}
	// "/a/" normalizes to "/a", so both share one fingerprint.
	t2 := task.Task{URL: "https://example.com/a/", DiscoveryCategory: task.CategoryInDomain}
	if result, _ := f.Admit(t2); result != task.Duplicate {
		t.Fatalf("trailing-slash variant should be Duplicate, got %v", result)
	}
}

func TestAdmitDomainScope(t *testing.T) {
	cfg := config.Default("https://example.com/")
	cfg.Discovery.Scope = config.ScopeSameDomain
	f := newTestFrontier(t, cfg)

	result, reason := f.Admit(task.Task{URL: "https://other.test/page", DiscoveryCategory: task.CategoryCrossDomain})
	if result != task.Rejected || reason != task.ReasonDomainScope {
		t.Fatalf("cross-domain URL should be rejected under same-domain scope, got %v/%v", result, reason)
	}
}

func TestPopOrdersByPriority(t *testing.T) {
	cfg := config.Default("https://example.com/")
	cfg.Discovery.Scope = config.ScopeUnrestricted
	// The asset scores 45 and the anchored in-domain link 65; bands are
	// FIFO, so the high threshold is lowered to put them in different bands.
	cfg.Priority.ThresholdHigh = 60
	f := newTestFrontier(t, cfg)

	if result, _ := f.Admit(task.Task{URL: "https://example.com/low", DiscoveryCategory: task.CategoryAsset}); result != task.Admitted {
		t.Fatal("expected asset admit to succeed")
	}
	if result, _ := f.Admit(task.Task{URL: "https://example.com/high", DiscoveryCategory: task.CategoryInDomain, AnchorText: "click here"}); result != task.Admitted {
		t.Fatal("expected in-domain admit to succeed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	first, status := f.Pop(ctx)
	if status != frontier.PopOK {
		t.Fatalf("Pop() status = %v, want PopOK", status)
	}
	if first.URL != "https://example.com/high" {
		t.Errorf("expected higher-priority task popped first, got %s", first.URL)
	}
}

func TestPopClosedAfterDrain(t *testing.T) {
	cfg := config.Default("https://example.com/")
	f := newTestFrontier(t, cfg)

	if result, _ := f.Admit(task.Task{URL: "https://example.com/a", DiscoveryCategory: task.CategoryInDomain}); result != task.Admitted {
		t.Fatal("admit should succeed")
	}
	f.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, status := f.Pop(ctx); status != frontier.PopOK {
		t.Fatalf("expected pending task before Closed, got %v", status)
	}
	if _, status := f.Pop(ctx); status != frontier.PopClosed {
		t.Fatalf("expected Closed after drain, got %v", status)
	}
}

func TestSeenReflectsAdmittedFingerprints(t *testing.T) {
	cfg := config.Default("https://example.com/")
	f := newTestFrontier(t, cfg)

	if f.Seen("https://example.com/a") {
		t.Fatal("unadmitted URL should not be Seen")
	}

	if result, _ := f.Admit(task.Task{URL: "https://example.com/a", DiscoveryCategory: task.CategoryInDomain}); result != task.Admitted {
		t.Fatal("admit should succeed")
	}

	if !f.Seen("https://example.com/a") {
		t.Error("admitted URL should be Seen")
	}
	if !f.Seen("https://example.com/a/") {
		t.Error("trailing-slash variant should be Seen (same fingerprint)")
	}
}

func TestReturnForRetryBackoffAndExhaustion(t *testing.T) {
	cfg := config.Default("https://example.com/")
	cfg.Retry.MaxRetries = 1
	cfg.Retry.BaseDelay = 10 * time.Millisecond
	cfg.Retry.JitterFactor = 0
	f := newTestFrontier(t, cfg)

	tk := task.Task{URL: "https://example.com/a", DiscoveryCategory: task.CategoryInDomain}
	ok := f.ReturnForRetry(tk, task.Category5xx)
	if !ok {
		t.Fatal("first retry should be accepted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	retried, status := f.Pop(ctx)
	if status != frontier.PopOK {
		t.Fatalf("expected retried task to become eligible, got %v", status)
	}
	if retried.Attempt != 1 {
		t.Errorf("expected attempt=1 after first retry, got %d", retried.Attempt)
	}

	// Second retry exceeds MaxRetries=1.
	if ok := f.ReturnForRetry(retried, task.Category5xx); ok {
		t.Error("expected retry beyond max_retries to be rejected")
	}

	// Non-retryable categories are rejected outright.
	if ok := f.ReturnForRetry(tk, task.Category4xx); ok {
		t.Error("expected non-retryable category to be rejected")
	}
}
