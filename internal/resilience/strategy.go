package resilience

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Strategy struct {
	MaxRetries  int
	BaseDelay   time.Duration
	Exponential bool
}

// BackOff builds the in-call retry policy for this strategy. Linear strategies
// wait BaseDelay, 2*BaseDelay, ...
func (s Strategy) BackOff() backoff.BackOff {
	var b backoff.BackOff
	if s.Exponential {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = s.BaseDelay
		eb.RandomizationFactor = 0
		eb.Multiplier = 2
		eb.MaxElapsedTime = 0
		eb.Reset()
		b = eb
	} else {
		b = &linearBackOff{base: s.BaseDelay}
	}
	return backoff.WithMaxRetries(b, uint64(max(s.MaxRetries, 0)))
}

type linearBackOff struct {
	base    time.Duration
	attempt int
}

func (l *linearBackOff) NextBackOff() time.Duration {
	l.attempt++
	return time.Duration(l.attempt) * l.base
}

func (l *linearBackOff) Reset() {
	l.attempt = 0
}

type StrategyTable map[ErrorCategory]Strategy

// DefaultStrategies: authentication errors barely retry since credentials won't
// fix themselves; DOM timing issues get quick linear retries; validation is terminal.
func DefaultStrategies() StrategyTable {
	return StrategyTable{
		CategoryAuthentication:  {MaxRetries: 1, BaseDelay: 5 * time.Second},
		CategoryNetwork:         {MaxRetries: 3, BaseDelay: 2 * time.Second, Exponential: true},
		CategoryTimeout:         {MaxRetries: 3, BaseDelay: 5 * time.Second, Exponential: true},
		CategoryElementNotFound: {MaxRetries: 3, BaseDelay: time.Second},
		CategoryRateLimit:       {MaxRetries: 3, BaseDelay: 30 * time.Second, Exponential: true},
		CategoryPlatform:        {MaxRetries: 3, BaseDelay: 10 * time.Second, Exponential: true},
		CategoryValidation:      {MaxRetries: 0},
		CategoryUnknown:         {MaxRetries: 2, BaseDelay: 5 * time.Second, Exponential: true},
	}
}

func (t StrategyTable) For(category ErrorCategory) Strategy {
	if s, ok := t[category]; ok {
		return s
	}
	if s, ok := t[CategoryUnknown]; ok {
		return s
	}
	return Strategy{}
}

// Retryable reports whether a failure of this category may ever be retried.
func (t StrategyTable) Retryable(category ErrorCategory) bool {
	return t.For(category).MaxRetries > 0
}
