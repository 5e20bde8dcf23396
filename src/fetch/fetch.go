package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"

	"golang.org/x/text/language"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/task"
)

// defaultAllowedContentTypes is the Content-Type allow-list for pages
// worth parsing.
var defaultAllowedContentTypes = []string{"text/html", "application/xhtml+xml"}

// defaultMaxBodyBytes bounds decoded body size; above this a fetch is
// classified Fatal{too-large}.
const defaultMaxBodyBytes = 10 * 1024 * 1024

// Fetcher performs HTTP requests with proxy rotation, header shaping,
// and outcome classification. Generalizes the teacher's CheckURL
// (crawler/worker.go), which used one shared client and one hardcoded
// header set, into a policy-driven fetcher with a client pool.
type Fetcher struct {
	pool                *clientPool
	userAgent           string
	userAgentPool       []string
	acceptLanguage      string
	maxRedirects        int
	maxBodyBytes        int64
	allowedContentTypes []string
}

// New creates a Fetcher from policy. Accept-Language is built once
// from the session's accepted languages with descending q-values,
// using golang.org/x/text/language to canonicalize each tag.
func New(cfg config.PolicyConfig) *Fetcher {
	maxRedirects := cfg.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}

	return &Fetcher{
		pool:                newClientPool(cfg),
		userAgent:           cfg.UserAgent,
		userAgentPool:       cfg.UserAgentPool,
		acceptLanguage:      buildAcceptLanguage(cfg.AcceptedLanguages),
		maxRedirects:        maxRedirects,
		maxBodyBytes:        defaultMaxBodyBytes,
		allowedContentTypes: defaultAllowedContentTypes,
	}
}

func buildAcceptLanguage(codes []string) string {
	if len(codes) == 0 {
		return ""
	}
	var b []byte
	q := 1.0
	for i, code := range codes {
		tag, err := language.Parse(code)
		canonical := code
		if err == nil {
			canonical = tag.String()
		}
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, []byte(fmt.Sprintf("%s;q=%.1f", canonical, q))...)
		q -= 0.1
		if q < 0.1 {
			q = 0.1
		}
	}
	return string(b)
}

func (f *Fetcher) userAgentFor() string {
	if len(f.userAgentPool) > 0 {
		return f.userAgentPool[rand.Intn(len(f.userAgentPool))]
	}
	return f.userAgent
}

// Get performs one fetch attempt for rawURL and classifies the
// outcome. It does not retry; retry scheduling is the frontier's
// responsibility.
func (f *Fetcher) Get(ctx context.Context, rawURL string) task.FetchOutcome {
	var isRedirectLoop, hitRedirectLimit bool
	var chain []string

	client := f.pool.pick()
	loopClient := &http.Client{
		Transport: client.Transport,
		Timeout:   client.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			current := req.URL.String()
			for _, seen := range chain {
				if seen == current {
					isRedirectLoop = true
					return http.ErrUseLastResponse
				}
			}
			chain = append(chain, current)
			if len(via) >= f.maxRedirects {
				hitRedirectLimit = true
				return errors.New("redirect limit exceeded")
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return task.NewFatal(fmt.Errorf("build request: %w", err), task.CategoryUnknown)
	}
	f.shapeHeaders(req)

	resp, err := loopClient.Do(req)
	if err != nil {
		if hitRedirectLimit {
			return task.FetchOutcome{Kind: task.OutcomeRetryable, Reason: "redirect-limit", Err: err, Category: task.CategoryRedirectLimit}
		}
		return task.NewRetryable(err, ClassifyNetError(err))
	}
	defer func() { _ = resp.Body.Close() }()

	if isRedirectLoop {
		return task.FetchOutcome{Kind: task.OutcomeFatal, Reason: "redirect-loop", Err: errors.New("redirect loop detected"), Category: task.CategoryRedirectLoop}
	}

	status := resp.StatusCode
	if status >= 400 {
		statusErr := fmt.Errorf("http status %d", status)
		cat := task.ClassifyError(statusErr, status, false)
		if cat.Retryable() {
			return task.NewRetryable(statusErr, cat)
		}
		return task.NewFatal(statusErr, cat)
	}

	contentType := resp.Header.Get("Content-Type")
	if !contentTypeAllowed(contentType, f.allowedContentTypes) {
		return task.NewSkipped("non-html")
	}

	limited := io.LimitReader(resp.Body, f.maxBodyBytes+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		return task.NewRetryable(fmt.Errorf("read body: %w", err), ClassifyNetError(err))
	}
	if int64(len(body)) > f.maxBodyBytes {
		return task.NewFatal(errors.New("body exceeds size cap"), task.CategoryTooLarge)
	}

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	return task.NewSuccess(status, resp.Header, body, finalURL)
}

func (f *Fetcher) shapeHeaders(req *http.Request) {
	req.Header.Set("User-Agent", f.userAgentFor())
	if f.acceptLanguage != "" {
		req.Header.Set("Accept-Language", f.acceptLanguage)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	if contentType == "" {
		return true
	}
	for _, a := range allowed {
		if len(contentType) >= len(a) && contentType[:len(a)] == a {
			return true
		}
	}
	return false
}

// ClassifyNetError maps a transport-level error (no HTTP status) to
// the error taxonomy, for callers that need the category rather than
// just the retryable/fatal split in FetchOutcome.
func ClassifyNetError(err error) task.ErrorCategory {
	if err == nil {
		return task.CategoryUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return task.CategoryTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return task.CategoryDNSFailure
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return task.CategoryTimeout
		}
	}
	return task.CategoryUnknown
}
