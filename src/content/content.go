// Package content turns a fetched HTML body into a PageRecord: parsed
// title and text, cleaned and language-checked, scored against keyword
// targets, with outbound links discovered and prioritized.
package content

import (
	"time"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/frontier"
	"github.com/corrinfell/weave/src/task"
)

// Process runs the full content pipeline over one fetched page. The
// bool return reports whether the page passed every configured
// filter (word count, language, keywords); a PageRecord is still
// returned on failure so callers can inspect what tripped the filter
// and still admit its DiscoveredLinks, but it should not be surfaced
// as a crawl result.
func Process(body []byte, originURL, finalURL string, depth int, statusCode int, fetchDuration time.Duration, cfg config.PolicyConfig) (task.PageRecord, bool, error) {
	doc, err := parseDocument(body, finalURL, cfg.Discovery.AvoidURLExtensions)
	if err != nil {
		return task.PageRecord{}, false, err
	}

	cleaned := cleanText(doc.text, cfg.Cleaning)
	wordCount := countWords(cleaned)
	detectedLang := detectLanguage(cleaned)
	stats, matched := matchKeywords(cleaned, cfg.KeywordFilter)
	links := discoverLinks(doc.links, depth, cfg)

	record := task.PageRecord{
		URL:              originURL,
		FinalURL:         finalURL,
		Title:            doc.title,
		ExtractedText:    cleaned,
		WordCount:        wordCount,
		DetectedLanguage: detectedLang,
		KeywordsMatched:  matched,
		MatchStats:       stats,
		DiscoveredLinks:  links,
		FetchDuration:    fetchDuration,
		StatusCode:       statusCode,
		Timestamp:        time.Now(),
	}
	passed := wordCount >= cfg.MinWordCount &&
		languageAccepted(detectedLang, cfg.AcceptedLanguages, cfg.LanguageConfidenceThreshold) &&
		(!cfg.KeywordFilter.Enabled || stats.Passed)
	return record, passed, nil
}

// discoverLinks scores each raw link's priority (as a task admitted
// one level deeper than the current page) and applies the outbound
// link cap.
func discoverLinks(raw []rawLink, depth int, cfg config.PolicyConfig) []task.DiscoveredLink {
	limit := cfg.MaxLinksPerPage
	if limit <= 0 || limit > len(raw) {
		limit = len(raw)
	}

	links := make([]task.DiscoveredLink, 0, limit)
	for _, rl := range raw[:limit] {
		if !discoveryAllowed(rl.url, cfg.Discovery) {
			continue
		}
		priority := frontier.ComputePriority(rl.url, rl.category, depth+1, rl.anchorText, cfg.Priority)
		links = append(links, task.DiscoveredLink{
			URL:              rl.url,
			AnchorText:       rl.anchorText,
			Category:         rl.category,
			ComputedPriority: priority,
		})
	}
	return links
}

func discoveryAllowed(rawURL string, d config.DiscoveryConfig) bool {
	if !d.Enabled {
		return false
	}
	for _, pattern := range d.BlockURLPatterns {
		if ok, err := regexpMatch(pattern, rawURL); err == nil && ok {
			return false
		}
	}
	if len(d.AllowURLPatterns) == 0 {
		return true
	}
	for _, pattern := range d.AllowURLPatterns {
		if ok, err := regexpMatch(pattern, rawURL); err == nil && ok {
			return true
		}
	}
	return false
}
