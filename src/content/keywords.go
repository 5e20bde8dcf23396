package content

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/corrinfell/weave/src/config"
	"github.com/corrinfell/weave/src/task"
)

// matchKeywords scores text against the configured keyword filter,
// producing per-target counts, first-token offsets, and a pass/fail
// verdict. Disabled filters always pass with an empty MatchStats.
func matchKeywords(text string, f config.KeywordFilter) (task.MatchStats, []string) {
	if !f.Enabled || len(f.Targets) == 0 {
		return task.MatchStats{Passed: true}, nil
	}

	tokens := strings.Fields(text)
	counts := make(map[string]int, len(f.Targets))
	firstOffset := make(map[string]int, len(f.Targets))
	positions := make(map[string][]int)

	for _, target := range f.Targets {
		c, offsets := countTarget(tokens, text, target, f.Mode)
		counts[target] = c
		if len(offsets) > 0 {
			firstOffset[target] = offsets[0]
			positions[target] = offsets
		}
	}

	matched := make([]string, 0, len(f.Targets))
	for _, target := range f.Targets {
		if counts[target] > 0 {
			matched = append(matched, target)
		}
	}

	passed := evaluateMode(counts, f)
	if passed && f.ProximityDistance > 0 && len(f.Targets) > 1 {
		passed = withinProximity(positions, f.ProximityDistance)
	}
	if passed && f.MinMatches > 0 {
		total := 0
		for _, c := range counts {
			total += c
		}
		passed = total >= f.MinMatches
	}

	stats := task.MatchStats{Counts: counts, FirstOffset: firstOffset, Passed: passed}
	if f.IncludeContext {
		stats.Context = make(map[string]string, len(matched))
		for _, target := range matched {
			offsets := positions[target]
			if len(offsets) == 0 {
				continue
			}
			stats.Context[target] = extractContext(tokens, offsets[0], f.ContextWindow)
		}
	}
	if f.Highlight {
		stats.Highlighted = make(map[string]string, len(matched))
		for _, target := range matched {
			stats.Highlighted[target] = "**" + target + "**"
		}
	}

	return stats, matched
}

func countTarget(tokens []string, text, target string, mode config.KeywordMode) (int, []int) {
	switch mode {
	case config.KeywordRegex:
		re, err := regexp.Compile(target)
		if err != nil {
			return 0, nil
		}
		matches := re.FindAllStringIndex(text, -1)
		offsets := make([]int, 0, len(matches))
		// Translate each match's byte offset into the index of the
		// whitespace-separated token it starts in, so every mode reports
		// offsets in tokens.
		tokenIdx, inToken, pos := -1, false, 0
		for _, m := range matches {
			for _, r := range text[pos:m[0]] {
				space := unicode.IsSpace(r)
				if !space && !inToken {
					tokenIdx++
				}
				inToken = !space
			}
			pos = m[0]
			idx := tokenIdx
			if r, _ := utf8.DecodeRuneInString(text[m[0]:]); !inToken && !unicode.IsSpace(r) {
				idx++
			}
			offsets = append(offsets, max(idx, 0))
		}
		return len(matches), offsets
	case config.KeywordExact:
		return countTokenOccurrences(tokens, target, false)
	default: // KeywordCaseInsensitive, KeywordAny, KeywordAll
		return countTokenOccurrences(tokens, target, true)
	}
}

func countTokenOccurrences(tokens []string, target string, caseInsensitive bool) (int, []int) {
	needle := target
	if caseInsensitive {
		needle = strings.ToLower(needle)
	}
	var offsets []int
	for i, tok := range tokens {
		candidate := tok
		if caseInsensitive {
			candidate = strings.ToLower(candidate)
		}
		if candidate == needle {
			offsets = append(offsets, i)
		}
	}
	return len(offsets), offsets
}

func evaluateMode(counts map[string]int, f config.KeywordFilter) bool {
	switch f.Mode {
	case config.KeywordAll:
		for _, target := range f.Targets {
			if counts[target] == 0 {
				return false
			}
		}
		return true
	default: // Any, Exact, CaseInsensitive, Regex all default to "any target present"
		for _, target := range f.Targets {
			if counts[target] > 0 {
				return true
			}
		}
		return false
	}
}

// withinProximity reports whether some pair of distinct targets has
// occurrences within distance tokens of each other.
func withinProximity(positions map[string][]int, distance int) bool {
	var all []struct {
		target string
		pos    int
	}
	for target, offsets := range positions {
		for _, p := range offsets {
			all = append(all, struct {
				target string
				pos    int
			}{target, p})
		}
	}
	for i := range all {
		for j := range all {
			if i == j || all[i].target == all[j].target {
				continue
			}
			d := all[i].pos - all[j].pos
			if d < 0 {
				d = -d
			}
			if d <= distance {
				return true
			}
		}
	}
	return false
}

// extractContext returns a window of words around the first match of
// target in tokens, for optional result highlighting.
func extractContext(tokens []string, offset, window int) string {
	start := offset - window
	if start < 0 {
		start = 0
	}
	end := offset + window + 1
	if end > len(tokens) {
		end = len(tokens)
	}
	return strings.Join(tokens[start:end], " ")
}
