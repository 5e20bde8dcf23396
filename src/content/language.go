package content

import (
	"github.com/RadhiFadlillah/whatlanggo"

	"github.com/corrinfell/weave/src/task"
)

// languageSampleBytes bounds the prefix sample handed to the detector
// so cost does not scale with document size.
const languageSampleBytes = 4096

// detectLanguage runs language identification on a bounded prefix of
// text and maps the result onto the ISO 639-1 code plus confidence
// PageRecord expects.
func detectLanguage(text string) task.DetectedLanguage {
	sample := text
	if len(sample) > languageSampleBytes {
		sample = sample[:languageSampleBytes]
	}

	info := whatlanggo.Detect(sample)
	code := info.Lang.Iso6391()
	if code == "" {
		return task.DetectedLanguage{Code: "unknown", Confidence: 0}
	}
	return task.DetectedLanguage{Code: code, Confidence: info.Confidence}
}

// languageAccepted reports whether detected satisfies the configured
// accepted-languages list and confidence threshold. No language filter
// is configured when accepted is empty, in which case every page
// passes regardless of detected confidence.
func languageAccepted(detected task.DetectedLanguage, accepted []string, threshold float64) bool {
	if len(accepted) == 0 {
		return true
	}
	if detected.Confidence < threshold {
		return false
	}
	for _, code := range accepted {
		if code == detected.Code {
			return true
		}
	}
	return false
}
