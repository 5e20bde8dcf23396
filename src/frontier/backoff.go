package frontier

import (
	"math"
	"math/rand"
	"time"

	"github.com/corrinfell/weave/src/config"
)

// backoff computes the retry delay for the given attempt number:
// delay = min(base*multiplier^(attempt-1), max), jittered by
// +/- jitterFactor. Generalizes the teacher's CheckURLWithRetry, which
// doubled a local variable inline instead of returning a pure function
// of attempt.
func backoff(attempt int, cfg config.RetryConfig) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	multiplier := cfg.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	raw := float64(cfg.BaseDelay) * math.Pow(multiplier, float64(attempt-1))
	if max := float64(cfg.MaxDelay); max > 0 && raw > max {
		raw = max
	}

	jitter := cfg.JitterFactor
	if jitter > 0 {
		low := raw * (1 - jitter)
		high := raw * (1 + jitter)
		raw = low + rand.Float64()*(high-low)
	}

	return time.Duration(raw)
}
