package urlutil

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// IsSameDomain checks if targetURL belongs to the same domain as baseHost.
// Subdomains are considered same-domain (e.g., blog.example.com matches example.com).
func IsSameDomain(targetURL string, baseHost string) bool {
	parsed, err := url.Parse(targetURL)
	if err != nil {
		return false
	}

	host := parsed.Hostname()
	baseHost = strings.ToLower(baseHost)
	host = strings.ToLower(host)

	return host == baseHost || strings.HasSuffix(host, "."+baseHost)
}

// IsHTTPScheme returns true if the URL has an http or https scheme.
// Returns false for empty strings, non-HTTP schemes, or unparseable URLs.
func IsHTTPScheme(rawURL string) bool {
	if rawURL == "" {
		return false
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "http" || scheme == "https"
}

// ResolveReference resolves a possibly-relative ref URL against a base URL.
// If ref is absolute, it is returned as-is. Otherwise it is resolved
// relative to base using net/url.URL.ResolveReference.
func ResolveReference(base string, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base URL %q: %w", base, err)
	}

	refURL, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse ref URL %q: %w", ref, err)
	}

	resolved := baseURL.ResolveReference(refURL)
	return resolved.String(), nil
}

// assetExtensions are treated as non-crawlable binary assets.
var assetExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".css": true, ".js": true, ".woff": true,
	".woff2": true, ".ttf": true, ".eot": true, ".mp4": true, ".mp3": true,
	".zip": true, ".gz": true,
}

// documentExtensions are crawlable but treated as documents rather
// than HTML pages for discovery-category purposes.
var documentExtensions = map[string]bool{
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".txt": true, ".csv": true,
}

// Category classifies targetURL relative to baseHost:
// asset/document extensions take priority over the domain relationship.
func Category(targetURL, baseHost string) string {
	ext := strings.ToLower(path.Ext(extPath(targetURL)))
	if assetExtensions[ext] {
		return "asset"
	}
	if documentExtensions[ext] {
		return "document"
	}

	parsed, err := url.Parse(targetURL)
	if err != nil {
		return "cross-domain"
	}
	host := strings.ToLower(parsed.Hostname())
	base := strings.ToLower(baseHost)

	switch {
	case host == base:
		return "in-domain"
	case strings.HasSuffix(host, "."+base):
		return "subdomain"
	default:
		return "cross-domain"
	}
}

// extPath returns the path component of rawURL, or rawURL itself if it
// fails to parse, so Category degrades gracefully on malformed input.
func extPath(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return parsed.Path
}

// HasBlockedExtension reports whether targetURL's path extension
// appears in the blocked extension list (case-insensitive, with or
// without a leading dot).
func HasBlockedExtension(targetURL string, blocked []string) bool {
	ext := strings.ToLower(path.Ext(extPath(targetURL)))
	if ext == "" {
		return false
	}
	for _, b := range blocked {
		b = strings.ToLower(b)
		if !strings.HasPrefix(b, ".") {
			b = "." + b
		}
		if ext == b {
			return true
		}
	}
	return false
}
