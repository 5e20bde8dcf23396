package content

import (
	"bytes"
	"net/url"

	"github.com/PuerkitoBio/goquery"

	"github.com/corrinfell/weave/src/task"
	"github.com/corrinfell/weave/src/urlutil"
)

// dropSelectors lists the subtrees excluded from extracted text: they
// carry no page content, only chrome, scripting, or markup.
const dropSelectors = "script, style, noscript, nav, header, footer, form"

// rawLink is a link as discovered on the page, before priority
// scoring (which depends on the crawling page's own depth).
type rawLink struct {
	url        string
	anchorText string
	category   task.DiscoveryCategory
}

// parsedDocument is the result of one DOM pass over a page body.
type parsedDocument struct {
	title string
	text  string
	links []rawLink
}

// parseDocument builds a goquery tree from body, drops non-content
// subtrees, and pulls out the title (falling back to the first <h1>),
// the remaining visible text, and every outbound link with its anchor
// text and domain-relationship category relative to finalURL's host.
func parseDocument(body []byte, finalURL string, blockedExt []string) (parsedDocument, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return parsedDocument{}, err
	}

	base, err := url.Parse(finalURL)
	if err != nil {
		return parsedDocument{}, err
	}

	links := collectLinks(doc, base, blockedExt)

	title := doc.Find("title").First().Text()
	if title == "" {
		title = doc.Find("h1").First().Text()
	}

	doc.Find(dropSelectors).Remove()
	text := doc.Find("body").Text()
	if text == "" {
		text = doc.Text()
	}

	return parsedDocument{title: cleanWhitespace(title), text: text, links: links}, nil
}

func collectLinks(doc *goquery.Document, base *url.URL, blockedExt []string) []rawLink {
	var links []rawLink
	seen := make(map[string]bool)
	baseStr := base.String()

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || href == "" {
			return
		}

		resolved, err := urlutil.ResolveReference(baseStr, href)
		if err != nil || !urlutil.IsHTTPScheme(resolved) {
			return
		}

		if urlutil.HasBlockedExtension(resolved, blockedExt) {
			return
		}
		if seen[resolved] {
			return
		}
		seen[resolved] = true

		category := categoryFor(resolved, base.Hostname())
		links = append(links, rawLink{
			url:        resolved,
			anchorText: cleanWhitespace(s.Text()),
			category:   category,
		})
	})

	return links
}

func categoryFor(resolved, baseHost string) task.DiscoveryCategory {
	switch urlutil.Category(resolved, baseHost) {
	case "asset":
		return task.CategoryAsset
	case "document":
		return task.CategoryDocument
	case "subdomain":
		return task.CategorySubdomain
	case "cross-domain":
		return task.CategoryCrossDomain
	default:
		return task.CategoryInDomain
	}
}

func cleanWhitespace(s string) string {
	var b []byte
	lastWasSpace := false
	for _, r := range s {
		isSpace := r == ' ' || r == '\t' || r == '\n' || r == '\r'
		if isSpace {
			if lastWasSpace {
				continue
			}
			lastWasSpace = true
			b = append(b, ' ')
			continue
		}
		lastWasSpace = false
		b = append(b, []byte(string(r))...)
	}
	return string(bytes.TrimSpace(b))
}
