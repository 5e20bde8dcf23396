package frontier

import (
	"regexp"
	"sync"
)

// regexCache avoids recompiling user-supplied patterns on every
// Admit call; patterns are validated once at config.Validate time, so
// a compile failure here is treated as a non-match rather than an error.
var (
	regexCacheMu sync.Mutex
	regexCache   = make(map[string]*regexp.Regexp)
)

func regexpMatch(pattern, s string) (bool, error) {
	regexCacheMu.Lock()
	re, ok := regexCache[pattern]
	if !ok {
		var err error
		re, err = regexp.Compile(pattern)
		if err != nil {
			regexCacheMu.Unlock()
			return false, err
		}
		regexCache[pattern] = re
	}
	regexCacheMu.Unlock()
	return re.MatchString(s), nil
}
