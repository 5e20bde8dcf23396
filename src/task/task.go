// Package task defines the shared data model that flows between the
// frontier, politeness, fetch, content, and session packages: the unit
// of work (Task), the canonical result of fetching it (FetchOutcome),
// and the record produced once a page is parsed (PageRecord).
package task

import (
	"net/http"
	"time"
)

// DiscoveryCategory classifies a link relative to the page it was found on.
type DiscoveryCategory string

const (
	CategoryInDomain    DiscoveryCategory = "in-domain"
	CategorySubdomain   DiscoveryCategory = "subdomain"
	CategoryCrossDomain DiscoveryCategory = "cross-domain"
	CategoryAsset       DiscoveryCategory = "asset"
	CategoryDocument    DiscoveryCategory = "document"
)

// Task is a unit of crawl work admitted to the frontier.
type Task struct {
	URL                string
	Depth              int
	Priority           int
	Attempt            int
	ScheduledAt        time.Time
	Origin             string
	DiscoveryCategory  DiscoveryCategory
	AnchorText         string
	Fingerprint        string // set by the frontier at admission time
}

// OutcomeKind is the top-level classification of a fetch attempt.
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeSkipped
	OutcomeRetryable
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// FetchOutcome is the result of one fetch attempt: exactly one of
// Success, Skipped, Retryable, or Fatal, selected by Kind. Always
// construct one via the New* helpers below, never the zero value
// (whose Kind would misleadingly read as OutcomeSuccess).
type FetchOutcome struct {
	Kind OutcomeKind

	// Success fields.
	Status   int
	Headers  http.Header
	BodySize int64
	FinalURL string
	Body     []byte

	// Skipped/Retryable/Fatal fields.
	Reason   string
	Err      error
	Category ErrorCategory
}

// NewSuccess builds a successful FetchOutcome.
func NewSuccess(status int, headers http.Header, body []byte, finalURL string) FetchOutcome {
	return FetchOutcome{Kind: OutcomeSuccess, Status: status, Headers: headers, Body: body, BodySize: int64(len(body)), FinalURL: finalURL}
}

// NewSkipped builds a Skipped FetchOutcome with the given reason.
func NewSkipped(reason string) FetchOutcome {
	return FetchOutcome{Kind: OutcomeSkipped, Reason: reason}
}

// NewRetryable builds a Retryable FetchOutcome wrapping err, tagged
// with the category the frontier's ReturnForRetry decides on. The
// Fetcher determines cat at the point of classification (from the
// real HTTP status or transport error) since by the time the outcome
// reaches the session the status is no longer available.
func NewRetryable(err error, cat ErrorCategory) FetchOutcome {
	return FetchOutcome{Kind: OutcomeRetryable, Err: err, Category: cat}
}

// NewFatal builds a Fatal FetchOutcome wrapping err, tagged with cat
// for error reporting (see FormatCategory).
func NewFatal(err error, cat ErrorCategory) FetchOutcome {
	return FetchOutcome{Kind: OutcomeFatal, Err: err, Category: cat}
}

// DetectedLanguage is a language code plus the detector's confidence.
type DetectedLanguage struct {
	Code       string
	Confidence float64
}

// DiscoveredLink is an outbound link found during content extraction.
type DiscoveredLink struct {
	URL              string
	AnchorText       string
	Category         DiscoveryCategory
	ComputedPriority int
}

// MatchStats summarizes keyword matching for one page. Context and
// Highlighted are populated only when the keyword filter requests
// them (IncludeContext / Highlight).
type MatchStats struct {
	Counts      map[string]int
	FirstOffset map[string]int
	Passed      bool
	Context     map[string]string
	Highlighted map[string]string
}

// PageRecord is the successful, fully processed result of one crawled page.
type PageRecord struct {
	URL              string
	FinalURL         string
	Title            string
	ExtractedText    string
	WordCount        int
	DetectedLanguage DetectedLanguage
	KeywordsMatched  []string
	MatchStats       MatchStats
	DiscoveredLinks  []DiscoveredLink
	FetchDuration    time.Duration
	StatusCode       int
	Timestamp        time.Time
}
