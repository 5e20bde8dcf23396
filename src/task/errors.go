package task

import (
	"context"
	"errors"
	"net"
	"strings"
)

// ErrorCategory classifies a failed fetch or session-level error for
// reporting and retry decisions. Generalizes the teacher's
// result.ErrorCategory with added content-pipeline and session-level
// categories.
type ErrorCategory string

const (
	CategoryTimeout           ErrorCategory = "timeout"
	CategoryDNSFailure        ErrorCategory = "dns_failure"
	CategoryConnectionRefused ErrorCategory = "connection_refused"
	Category4xx               ErrorCategory = "4xx"
	Category5xx               ErrorCategory = "5xx"
	CategoryRedirectLoop      ErrorCategory = "redirect_loop"
	CategoryRedirectLimit     ErrorCategory = "redirect_limit"
	CategoryTooLarge          ErrorCategory = "too_large"
	CategoryNonHTML           ErrorCategory = "non_html"
	CategoryRobotsDisallow    ErrorCategory = "robots_disallow"
	CategoryConfig            ErrorCategory = "config"
	CategorySession           ErrorCategory = "session"
	CategoryUnknown           ErrorCategory = "unknown"
)

// Retryable reports whether a category re-enters the frontier's retry
// sub-queue (transient network errors and redirect-limit) versus
// being recorded as permanent.
func (c ErrorCategory) Retryable() bool {
	switch c {
	case CategoryTimeout, CategoryDNSFailure, CategoryConnectionRefused, Category5xx, CategoryRedirectLimit:
		return true
	default:
		return false
	}
}

// ClassifyError determines the error category from an error, an HTTP
// status code, and whether a redirect loop was detected. Generalizes
// the teacher's result.ClassifyError with 408/429 retryable handling,
// too-large and non-html terminal categories.
func ClassifyError(err error, statusCode int, isRedirectLoop bool) ErrorCategory {
	if isRedirectLoop {
		return CategoryRedirectLoop
	}

	if statusCode > 0 {
		switch {
		case statusCode == 408 || statusCode == 429:
			return Category5xx // treated as transient
		case statusCode >= 400 && statusCode <= 499:
			return Category4xx
		case statusCode >= 500:
			return Category5xx
		}
	}

	if err == nil {
		return CategoryUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CategoryDNSFailure
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Op == "dial" && strings.Contains(opErr.Error(), "connection refused") {
			return CategoryConnectionRefused
		}
		if opErr.Timeout() {
			return CategoryTimeout
		}
	}

	return CategoryUnknown
}

// FormatCategory returns a human-readable label for an error category.
func FormatCategory(cat ErrorCategory) string {
	switch cat {
	case CategoryTimeout:
		return "Timeouts"
	case CategoryDNSFailure:
		return "DNS Failures"
	case CategoryConnectionRefused:
		return "Connection Refused"
	case Category4xx:
		return "Client Errors (4xx)"
	case Category5xx:
		return "Server Errors (5xx)"
	case CategoryRedirectLoop:
		return "Redirect Loops"
	case CategoryRedirectLimit:
		return "Redirect Limit Exceeded"
	case CategoryTooLarge:
		return "Body Too Large"
	case CategoryNonHTML:
		return "Non-HTML Content"
	case CategoryRobotsDisallow:
		return "Robots Disallowed"
	default:
		return "Other Errors"
	}
}

// AdmitResult is the outcome of offering a Task to the frontier.
type AdmitResult int

const (
	Admitted AdmitResult = iota
	Duplicate
	Rejected
)

// RejectReason explains why the frontier refused to admit a task.
type RejectReason string

const (
	ReasonDepthExceeded    RejectReason = "depth-exceeded"
	ReasonTotalCapExceeded RejectReason = "total-cap-exceeded"
	ReasonExtensionBlocked RejectReason = "extension-blocked"
	ReasonDomainScope      RejectReason = "domain-scope-violation"
	ReasonMalformedURL     RejectReason = "malformed-url"
	ReasonPatternBlocked   RejectReason = "pattern-blocked"
)

// BlockedReason explains why politeness refused to admit a fetch.
type BlockedReason string

const (
	BlockedRobotsDisallow BlockedReason = "robots-disallow"
	BlockedDNSFailure     BlockedReason = "dns-permanent-failure"
	BlockedTimeout        BlockedReason = "timeout"
	BlockedMalformedURL   BlockedReason = "malformed-url"
)
