package result

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/corrinfell/weave/src/task"
)

func sampleRows() []PageRow {
	records := []task.PageRecord{
		{
			URL:              "https://example.com/",
			FinalURL:         "https://example.com/",
			Title:            "Example",
			WordCount:        42,
			StatusCode:       200,
			DetectedLanguage: task.DetectedLanguage{Code: "en", Confidence: 0.9},
			KeywordsMatched:  []string{"alpha"},
			DiscoveredLinks:  []task.DiscoveredLink{{URL: "https://example.com/about"}},
		},
		{
			URL:        "https://example.com/missing",
			StatusCode: 0,
		},
	}
	return RowsFromRecords(records)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}

	var decoded []PageRow
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(decoded) != 2 {
		t.Errorf("len(decoded) = %d, want 2", len(decoded))
	}

	var raw []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &raw); err != nil {
		t.Fatalf("failed to unmarshal to map: %v", err)
	}
	for _, field := range []string{"url", "final_url", "title", "word_count", "status_code"} {
		if _, ok := raw[0][field]; !ok {
			t.Errorf("expected %q field in JSON output", field)
		}
	}

	if !strings.Contains(buf.String(), "https://example.com/") {
		t.Error("URLs should not be HTML-escaped")
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, []PageRow{}); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), []byte("[]\n")) {
		t.Errorf("got %q, want \"[]\\n\"", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sampleRows()); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	reader := csv.NewReader(strings.NewReader(buf.String()))
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}

	expectedHeader := []string{"url", "final_url", "title", "word_count", "language", "keywords_matched", "links_discovered", "status_code", "fetch_duration_ms", "timestamp"}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3 (header + 2 rows)", len(records))
	}
	for i, col := range expectedHeader {
		if records[0][i] != col {
			t.Errorf("header column %d = %q, want %q", i, records[0][i], col)
		}
	}
	if records[1][0] != "https://example.com/" {
		t.Errorf("row 1 url = %q", records[1][0])
	}
	if records[2][7] != "" {
		t.Errorf("row 2 status_code = %q, want empty for status 0", records[2][7])
	}
}

func TestWriteCSVEmptyWithHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, []PageRow{}); err != nil {
		t.Fatalf("WriteCSV returned error: %v", err)
	}

	reader := csv.NewReader(strings.NewReader(buf.String()))
	records, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("failed to parse CSV output: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len(records) = %d, want 1 (header only)", len(records))
	}
}

func TestStatusCodeStr(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{0, ""},
		{200, "200"},
		{404, "404"},
		{500, "500"},
	}
	for _, tt := range tests {
		if got := statusCodeStr(tt.code); got != tt.expected {
			t.Errorf("statusCodeStr(%d) = %q, want %q", tt.code, got, tt.expected)
		}
	}
}
