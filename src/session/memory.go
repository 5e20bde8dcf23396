package session

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// ThrottleLevel indicates memory pressure severity, adapted from the
// teacher's crawler/memory.go MemoryWatcher.
type ThrottleLevel int

const (
	ThrottleNormal ThrottleLevel = iota
	ThrottleWarning
	ThrottleCritical
)

// memoryWatcher monitors heap pressure against a soft limit and
// reports the throttle level on each check. Unlike the teacher's
// version there is no level-change callback: workers call check
// directly and use the level to shrink the effective worker count at
// Critical rather than letting the session run into GC thrashing or
// an OOM kill.
type memoryWatcher struct {
	mu         sync.RWMutex
	limitBytes int64
	lastLevel  ThrottleLevel
}

// newMemoryWatcher creates a memory watcher with the given limit in
// MB and installs it as the process's soft memory limit, matching the
// teacher's NewMemoryWatcher. limitMB <= 0 disables the soft limit and
// Check always reports Normal.
func newMemoryWatcher(limitMB int64) *memoryWatcher {
	var limitBytes int64
	if limitMB > 0 {
		limitBytes = limitMB * 1024 * 1024
		debug.SetMemoryLimit(limitBytes)
	}
	return &memoryWatcher{limitBytes: limitBytes, lastLevel: ThrottleNormal}
}

// check returns the current heap-use percentage of the configured
// limit and the resulting throttle level.
func (m *memoryWatcher) check() (usedPercent float64, level ThrottleLevel) {
	m.mu.RLock()
	limitBytes := m.limitBytes
	m.mu.RUnlock()
	if limitBytes <= 0 {
		return 0, ThrottleNormal
	}

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	usedPercent = (float64(stats.HeapAlloc) / float64(limitBytes)) * 100

	switch {
	case usedPercent >= 90:
		level = ThrottleCritical
	case usedPercent >= 75:
		level = ThrottleWarning
	default:
		level = ThrottleNormal
	}

	m.mu.Lock()
	m.lastLevel = level
	m.mu.Unlock()
	return usedPercent, level
}

// effectiveWorkers scales configured down under memory pressure:
// Critical halves it (floor 1), Warning leaves it as-is since a
// warning alone isn't worth disrupting in-flight work over.
func effectiveWorkers(configured int, level ThrottleLevel) int {
	if level != ThrottleCritical {
		return configured
	}
	half := configured / 2
	if half < 1 {
		half = 1
	}
	return half
}
