package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// trackingParams are stripped from the query string when computing a
// fingerprint.
var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true,
	"utm_term": true, "utm_content": true, "gclid": true, "fbclid": true,
	"ref": true, "mc_cid": true, "mc_eid": true,
}

// Fingerprint computes the canonical dedup key for rawURL: lowercase
// scheme+host, percent-decoded path, sorted query parameters with
// tracking parameters stripped, fragment removed. Fingerprint is
// idempotent: Fingerprint(Fingerprint(u)) == Fingerprint(u).
func Fingerprint(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	scheme := strings.ToLower(parsed.Scheme)
	host := strings.ToLower(parsed.Host)

	path, err := url.PathUnescape(parsed.Path)
	if err != nil {
		path = parsed.Path
	}
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}
	if path == "" {
		path = "/"
	}

	query := parsed.Query()
	keys := make([]string, 0, len(query))
	for k := range query {
		if trackingParams[strings.ToLower(k)] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(path)
	if len(keys) > 0 {
		b.WriteByte('?')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte('&')
			}
			values := query[k]
			sort.Strings(values)
			for j, v := range values {
				if j > 0 {
					b.WriteByte('&')
				}
				b.WriteString(k)
				b.WriteByte('=')
				b.WriteString(v)
			}
		}
	}

	return b.String(), nil
}
