package result

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// WriteJSON writes rows as a formatted JSON array to w. Uses a flat
// array (not wrapped with metadata) for simpler CI integration,
// matching the teacher's WriteJSON.
func WriteJSON(w io.Writer, rows []PageRow) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return fmt.Errorf("write json output: %w", err)
	}
	return nil
}

// WriteCSV writes rows as CSV to w, always including a header row
// even when rows is empty.
func WriteCSV(w io.Writer, rows []PageRow) error {
	cw := csv.NewWriter(w)

	header := []string{"url", "final_url", "title", "word_count", "language", "keywords_matched", "links_discovered", "status_code", "fetch_duration_ms", "timestamp"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.URL,
			row.FinalURL,
			row.Title,
			strconv.Itoa(row.WordCount),
			row.Language,
			strconv.Itoa(row.KeywordsMatched),
			strconv.Itoa(row.LinksDiscovered),
			statusCodeStr(row.StatusCode),
			strconv.FormatInt(row.FetchDurationMS, 10),
			row.Timestamp,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record for %s: %w", row.URL, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv output: %w", err)
	}
	return nil
}

// statusCodeStr converts an HTTP status code to a string, returning
// empty string for 0 (no HTTP status recorded).
func statusCodeStr(code int) string {
	if code == 0 {
		return ""
	}
	return strconv.Itoa(code)
}
