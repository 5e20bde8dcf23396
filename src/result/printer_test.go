package result

import (
	"bytes"
	"testing"
	"time"

	"github.com/corrinfell/weave/src/session"
	"github.com/corrinfell/weave/src/task"
)

func TestPrintSummaryNoPages(t *testing.T) {
	var buf bytes.Buffer
	st := session.Status{
		Phase:    session.PhaseCompleted,
		Counters: session.Counters{Admitted: 10, Dequeued: 10, Succeeded: 8, Skipped: 2},
	}

	PrintSummary(&buf, "session-1", st)

	got := buf.String()
	if !bytes.Contains([]byte(got), []byte("Session session-1 (completed)")) {
		t.Error("missing session header line")
	}
	if !bytes.Contains([]byte(got), []byte("Succeeded: 8")) {
		t.Error("missing succeeded counter")
	}
	if bytes.Contains([]byte(got), []byte("Pages:")) {
		t.Error("unexpected Pages section with no results")
	}
}

func TestPrintSummaryWithPagesAndErrors(t *testing.T) {
	var buf bytes.Buffer
	now := time.Now()
	st := session.Status{
		Phase:     session.PhaseCompleted,
		Counters:  session.Counters{Admitted: 2, Dequeued: 2, Succeeded: 1, Failed: 1},
		LatestResults: []task.PageRecord{
			{URL: "https://example.com/", Title: "Example", WordCount: 120},
		},
		Errors:    []string{"https://example.com/missing: http status 404"},
		StartedAt: now,
		EndedAt:   now.Add(5 * time.Second),
	}

	PrintSummary(&buf, "session-2", st)

	got := buf.String()
	if !bytes.Contains([]byte(got), []byte("Pages:")) {
		t.Error("missing Pages section")
	}
	if !bytes.Contains([]byte(got), []byte("https://example.com/")) {
		t.Error("missing page URL")
	}
	if !bytes.Contains([]byte(got), []byte("Errors:")) {
		t.Error("missing Errors section")
	}
	if !bytes.Contains([]byte(got), []byte("Duration:")) {
		t.Error("missing Duration line")
	}
}
