package content

import (
	"regexp"
	"sync"
)

var (
	regexCacheMu sync.Mutex
	regexCache   = make(map[string]*regexp.Regexp)
)

// regexpMatch compiles pattern once and caches it, mirroring the
// frontier package's own cache for the same reason: discovery
// patterns are evaluated per link, and repeated compilation would
// dominate the cost of filtering a large link set.
func regexpMatch(pattern, s string) (bool, error) {
	regexCacheMu.Lock()
	re, ok := regexCache[pattern]
	regexCacheMu.Unlock()
	if ok {
		return re.MatchString(s), nil
	}

	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}

	regexCacheMu.Lock()
	regexCache[pattern] = compiled
	regexCacheMu.Unlock()

	return compiled.MatchString(s), nil
}
