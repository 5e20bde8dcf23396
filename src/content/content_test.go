package content

import (
	"strings"
	"testing"
	"time"

	"github.com/corrinfell/weave/src/config"
)

func TestProcessBasicPage(t *testing.T) {
	html := `<html><head><title>Example Domain</title></head>
<body>
<nav>skip this nav text entirely</nav>
<p>Example Domain is used for illustrative examples in documents.</p>
<a href="/about">About Us</a>
<a href="https://other.example.com/page">External</a>
</body></html>`

	cfg := config.Default("https://example.com/")
	cfg.MinWordCount = 1

	record, passed, err := Process([]byte(html), "https://example.com/", "https://example.com/", 0, 200, 10*time.Millisecond, cfg)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !passed {
		t.Fatal("expected page to pass filters")
	}
	if record.Title != "Example Domain" {
		t.Errorf("Title = %q, want %q", record.Title, "Example Domain")
	}
	if strings.Contains(record.ExtractedText, "skip this nav") {
		t.Errorf("nav text leaked into extracted text: %q", record.ExtractedText)
	}
	if len(record.DiscoveredLinks) != 2 {
		t.Fatalf("len(DiscoveredLinks) = %d, want 2", len(record.DiscoveredLinks))
	}
}

func TestProcessRejectsBelowMinWordCount(t *testing.T) {
	html := `<html><body><p>Hi.</p></body></html>`

	cfg := config.Default("https://example.com/")
	cfg.MinWordCount = 50

	_, passed, err := Process([]byte(html), "https://example.com/", "https://example.com/", 0, 200, time.Millisecond, cfg)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if passed {
		t.Fatal("expected page below MinWordCount to fail")
	}
}

func TestProcessTitleFallsBackToH1(t *testing.T) {
	html := `<html><body><h1>Fallback Heading</h1><p>Some body content for the page here.</p></body></html>`

	cfg := config.Default("https://example.com/")
	cfg.MinWordCount = 1

	record, _, err := Process([]byte(html), "https://example.com/", "https://example.com/", 0, 200, time.Millisecond, cfg)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if record.Title != "Fallback Heading" {
		t.Errorf("Title = %q, want fallback to h1", record.Title)
	}
}

func TestProcessKeywordFilterRejectsMissingTarget(t *testing.T) {
	html := `<html><body><p>This page discusses gardening and cooking.</p></body></html>`

	cfg := config.Default("https://example.com/")
	cfg.MinWordCount = 1
	cfg.KeywordFilter = config.KeywordFilter{
		Enabled: true,
		Targets: []string{"astronomy"},
		Mode:    config.KeywordAny,
	}

	_, passed, err := Process([]byte(html), "https://example.com/", "https://example.com/", 0, 200, time.Millisecond, cfg)
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if passed {
		t.Fatal("expected page without the target keyword to fail")
	}
}

func TestCleanTextLengthFilter(t *testing.T) {
	cfg := config.CleaningConfig{Length: config.LengthFilter{MinWordLen: 3}}
	out := cleanText("a bb ccc dddd", cfg)
	if strings.Contains(out, " a ") || strings.HasPrefix(out, "a ") {
		t.Errorf("expected single-letter word removed, got %q", out)
	}
}

func TestCountWordsUnicodeAware(t *testing.T) {
	if n := countWords("hello world"); n != 2 {
		t.Errorf("countWords(ascii) = %d, want 2", n)
	}
	if n := countWords("你好世界"); n == 0 {
		t.Errorf("countWords(cjk) = %d, want > 0", n)
	}
}

func TestMatchKeywordsAllMode(t *testing.T) {
	f := config.KeywordFilter{Enabled: true, Targets: []string{"alpha", "beta"}, Mode: config.KeywordAll}
	stats, matched := matchKeywords("alpha appears here but beta does not", f)
	if !stats.Passed {
		t.Fatal("expected All mode to pass when every target present")
	}
	if len(matched) != 2 {
		t.Errorf("matched = %v, want both targets", matched)
	}
}

func TestMatchKeywordsAllModeFailsOnPartial(t *testing.T) {
	f := config.KeywordFilter{Enabled: true, Targets: []string{"alpha", "gamma"}, Mode: config.KeywordAll}
	stats, _ := matchKeywords("only alpha appears here", f)
	if stats.Passed {
		t.Fatal("expected All mode to fail when a target is missing")
	}
}
