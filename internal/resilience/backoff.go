package resilience

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/maheshrc27/crosspost/internal/models"
)

const (
	defaultQueueBaseDelay = time.Minute
	defaultQueueMaxDelay  = time.Hour
)

// QueueBackoff returns how long a queue entry waits before its next attempt:
// RetryBaseDelay * 2^retryCount capped at RetryMaxDelay. Rate limited entries
// never wait less than the category's own base delay.
func QueueBackoff(cfg models.PlatformConfig, retryCount int, category ErrorCategory, strategies StrategyTable) time.Duration {
	base := cfg.RetryBaseDelay
	if base <= 0 {
		base = defaultQueueBaseDelay
	}
	maxDelay := cfg.RetryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultQueueMaxDelay
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = maxDelay
	b.MaxElapsedTime = 0
	b.Reset()

	delay := b.NextBackOff()
	for i := 0; i < retryCount; i++ {
		delay = b.NextBackOff()
	}

	if category == CategoryRateLimit {
		if floor := strategies.For(CategoryRateLimit).BaseDelay; delay < floor {
			delay = floor
		}
	}
	return delay
}
