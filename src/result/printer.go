package result

import (
	"fmt"
	"io"

	"github.com/corrinfell/weave/src/session"
)

// PrintSummary writes a session's final status to w: per-outcome
// counters, a page listing, and any recorded errors. Generalizes the
// teacher's PrintResults (one broken-link report) to the full
// admitted/dequeued/succeeded/retrying/failed/skipped counter set.
func PrintSummary(w io.Writer, sessionID string, st session.Status) {
	writef := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	writef("Session %s (%s)\n", sessionID, st.Phase)
	writef("  Admitted:  %d\n", st.Counters.Admitted)
	writef("  Dequeued:  %d\n", st.Counters.Dequeued)
	writef("  Succeeded: %d\n", st.Counters.Succeeded)
	writef("  Retrying:  %d\n", st.Counters.Retrying)
	writef("  Failed:    %d\n", st.Counters.Failed)
	writef("  Skipped:   %d\n", st.Counters.Skipped)

	if len(st.LatestResults) > 0 {
		writef("\nPages:\n")
		for _, r := range st.LatestResults {
			writef("  %s — %q (%d words)\n", r.URL, r.Title, r.WordCount)
		}
	}

	if len(st.Errors) > 0 {
		writef("\nErrors:\n")
		for _, e := range st.Errors {
			writef("  %s\n", e)
		}
	}

	if !st.StartedAt.IsZero() && !st.EndedAt.IsZero() {
		writef("\nDuration: %s\n", st.EndedAt.Sub(st.StartedAt))
	}
}
