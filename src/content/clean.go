package content

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/clipperhouse/uax29/v2/words"

	"github.com/corrinfell/weave/src/config"
)

// cleanText applies the configured cleaning rules in order: length
// filters, character filters, word filters. Each step is a pure
// text → text transform and is safe to run again on its own output.
func cleanText(text string, cfg config.CleaningConfig) string {
	text = applyLengthFilter(text, cfg.Length)
	text = applyCharacterFilter(text, cfg.Character)
	text = applyWordFilter(text, cfg.Word)
	return text
}

// applyLengthFilter drops words, sentences, and paragraphs outside the
// configured bounds. A zero bound is treated as unbounded.
func applyLengthFilter(text string, f config.LengthFilter) string {
	paragraphs := strings.Split(text, "\n\n")
	keptParagraphs := make([]string, 0, len(paragraphs))

	for _, para := range paragraphs {
		if !withinBounds(len([]rune(para)), f.MinParagraphLen, f.MaxParagraphLen) {
			continue
		}

		sentences := splitSentences(para)
		keptSentences := make([]string, 0, len(sentences))
		for _, sentence := range sentences {
			if !withinBounds(len([]rune(sentence)), f.MinSentenceLen, f.MaxSentenceLen) {
				continue
			}
			keptSentences = append(keptSentences, filterWordsByLength(sentence, f.MinWordLen, f.MaxWordLen))
		}
		if len(keptSentences) > 0 {
			keptParagraphs = append(keptParagraphs, strings.Join(keptSentences, " "))
		}
	}

	return strings.Join(keptParagraphs, "\n\n")
}

func withinBounds(n, min, max int) bool {
	if min > 0 && n < min {
		return false
	}
	if max > 0 && n > max {
		return false
	}
	return true
}

func filterWordsByLength(sentence string, min, max int) string {
	if min <= 0 && max <= 0 {
		return sentence
	}
	fields := strings.Fields(sentence)
	kept := fields[:0]
	for _, w := range fields {
		if withinBounds(len([]rune(w)), min, max) {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			out = append(out, strings.TrimSpace(b.String()))
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, strings.TrimSpace(b.String()))
	}
	return out
}

// applyCharacterFilter strips configured characters and Unicode
// ranges, and optionally restricts to ASCII or alphanumeric content.
func applyCharacterFilter(text string, f config.CharacterFilter) string {
	if f.RemoveChars == "" && len(f.RemoveRanges) == 0 && !f.ASCIIOnly && !f.AlphanumericOnly {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(f.RemoveChars, r) {
			continue
		}
		if inAnyRange(r, f.RemoveRanges) {
			continue
		}
		if f.ASCIIOnly && r > unicode.MaxASCII {
			continue
		}
		if f.AlphanumericOnly && !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func inAnyRange(r rune, ranges [][2]rune) bool {
	for _, rg := range ranges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}

// applyWordFilter removes literal words, regex-matched words, and
// (when enabled) a stop-word list for the configured language.
func applyWordFilter(text string, f config.WordFilter) string {
	if len(f.RemoveWords) == 0 && len(f.RemovePatterns) == 0 && !f.RemoveStopWords {
		return text
	}

	removeSet := make(map[string]bool, len(f.RemoveWords))
	for _, w := range f.RemoveWords {
		removeSet[strings.ToLower(w)] = true
	}

	var patterns []*regexp.Regexp
	for _, p := range f.RemovePatterns {
		if re, err := regexp.Compile(p); err == nil {
			patterns = append(patterns, re)
		}
	}

	var stopWords map[string]bool
	if f.RemoveStopWords {
		stopWords = stopWordsFor(f.StopWordLang)
	}

	fields := strings.Fields(text)
	kept := fields[:0]
	for _, w := range fields {
		lower := strings.ToLower(w)
		if removeSet[lower] {
			continue
		}
		if stopWords != nil && stopWords[lower] {
			continue
		}
		matched := false
		for _, re := range patterns {
			if re.MatchString(w) {
				matched = true
				break
			}
		}
		if matched {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// stopWordsFor returns a minimal built-in stop-word list for the given
// language code. Only English is carried today; unrecognized codes
// yield an empty set (no words removed).
func stopWordsFor(lang string) map[string]bool {
	if lang != "" && lang != "en" {
		return nil
	}
	words := []string{
		"a", "an", "the", "and", "or", "but", "is", "are", "was", "were",
		"of", "to", "in", "on", "at", "for", "with", "as", "by", "it",
		"this", "that", "be", "have", "has", "had", "not",
	}
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}

// countWords performs Unicode-aware word segmentation so CJK text is
// counted correctly instead of relying on whitespace splitting.
func countWords(text string) int {
	count := 0
	for word := range words.FromBytes([]byte(text)) {
		if hasLetterOrDigit(word) {
			count++
		}
	}
	return count
}

func hasLetterOrDigit(word []byte) bool {
	for _, r := range string(word) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
