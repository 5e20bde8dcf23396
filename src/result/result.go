// Package result writes crawl output for the storage and
// status-reporting collaborators: JSON/CSV serialization of
// PageRecords and a human-readable summary of a session's final
// status. Generalizes the teacher's LinkResult/CrawlStats (one flat
// report per process) into a writer over the richer PageRecord model
// and a session's polled Status.
package result

import "github.com/corrinfell/weave/src/task"

// PageRow is the flattened, serialization-friendly projection of a
// task.PageRecord used by WriteJSON/WriteCSV. DiscoveredLinks and
// MatchStats are summarized rather than nested, matching the
// teacher's flat-array-for-CI-friendliness choice in WriteJSON.
type PageRow struct {
	URL             string  `json:"url"`
	FinalURL        string  `json:"final_url"`
	Title           string  `json:"title"`
	WordCount       int     `json:"word_count"`
	Language        string  `json:"language,omitempty"`
	LanguageConf    float64 `json:"language_confidence,omitempty"`
	KeywordsMatched int     `json:"keywords_matched"`
	LinksDiscovered int     `json:"links_discovered"`
	StatusCode      int     `json:"status_code"`
	FetchDurationMS int64   `json:"fetch_duration_ms"`
	Timestamp       string  `json:"timestamp"`
}

// RowsFromRecords projects PageRecords into their flattened row form.
func RowsFromRecords(records []task.PageRecord) []PageRow {
	rows := make([]PageRow, len(records))
	for i, r := range records {
		rows[i] = PageRow{
			URL:             r.URL,
			FinalURL:        r.FinalURL,
			Title:           r.Title,
			WordCount:       r.WordCount,
			Language:        r.DetectedLanguage.Code,
			LanguageConf:    r.DetectedLanguage.Confidence,
			KeywordsMatched: len(r.KeywordsMatched),
			LinksDiscovered: len(r.DiscoveredLinks),
			StatusCode:      r.StatusCode,
			FetchDurationMS: r.FetchDuration.Milliseconds(),
			Timestamp:       r.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
	}
	return rows
}
