package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/sony/gobreaker"
)

var ErrCircuitOpen = errors.New("circuit open")

// ErrNotCounted marks an outcome that says nothing about the platform's
// health. It neither trips nor resets the breaker.
var ErrNotCounted = errors.New("outcome not counted")

// BreakerSet keeps one circuit breaker per platform. Breakers live for the
// whole process; only a successful half-open probe or Reset closes an open one.
type BreakerSet struct {
	mu        sync.Mutex
	threshold uint32
	recovery  time.Duration
	breakers  map[models.Platform]*breaker
}

type breaker struct {
	cb       *gobreaker.TwoStepCircuitBreaker
	mu       sync.Mutex
	failures uint32
	openedAt *time.Time
}

func NewBreakerSet(failureThreshold int, recoveryTimeout time.Duration) *BreakerSet {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if recoveryTimeout <= 0 {
		recoveryTimeout = time.Minute
	}
	return &BreakerSet{
		threshold: uint32(failureThreshold),
		recovery:  recoveryTimeout,
		breakers:  make(map[models.Platform]*breaker),
	}
}

func (s *BreakerSet) get(platform models.Platform) *breaker {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.breakers[platform]; ok {
		return b
	}

	b := &breaker{}
	threshold := s.threshold
	b.cb = gobreaker.NewTwoStepCircuitBreaker(gobreaker.Settings{
		Name:        string(platform),
		MaxRequests: 1,
		Timeout:     s.recovery,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.transition(name, from, to)
		},
	})
	s.breakers[platform] = b
	return b
}

func (b *breaker) transition(name string, from, to gobreaker.State) {
	b.mu.Lock()
	switch to {
	case gobreaker.StateOpen:
		now := time.Now()
		b.openedAt = &now
	case gobreaker.StateClosed:
		b.failures = 0
		b.openedAt = nil
	}
	b.mu.Unlock()

	if to == gobreaker.StateOpen {
		slog.Warn("circuit opened", "platform", name, "from", from.String())
		return
	}
	slog.Info("circuit state changed", "platform", name, "from", from.String(), "to", to.String())
}

func (b *breaker) record(failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if failed {
		b.failures++
	} else {
		b.failures = 0
	}
}

// Execute runs fn through the platform's breaker. A non-nil error from fn
// counts as a failure unless it wraps ErrNotCounted. When the breaker rejects
// the call fn is not invoked and the returned error wraps ErrCircuitOpen.
func (s *BreakerSet) Execute(platform models.Platform, fn func() error) error {
	b := s.get(platform)
	done, err := b.cb.Allow()
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		slog.Debug("circuit rejected call", "platform", platform)
		return fmt.Errorf("%s: %w", platform, ErrCircuitOpen)
	}
	if err != nil {
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			b.record(true)
			done(false)
			panic(r)
		}
	}()

	err = fn()
	switch {
	case err == nil:
		b.record(false)
		done(true)
	case errors.Is(err, ErrNotCounted):
		b.skip(done)
	default:
		b.record(true)
		done(false)
	}
	return err
}

// skip leaves the counts untouched. A closed breaker never hears of the call.
// A half-open call holds the only slot and must be reported, so the breaker
// re-opens instead of closing.
func (b *breaker) skip(done func(success bool)) {
	if b.cb.State() == gobreaker.StateHalfOpen {
		done(false)
	}
}

func (s *BreakerSet) State(platform models.Platform) models.CircuitStatus {
	return toStatus(s.get(platform).cb.State())
}

func (s *BreakerSet) Snapshot(platform models.Platform) models.CircuitState {
	b := s.get(platform)
	status := toStatus(b.cb.State())

	b.mu.Lock()
	defer b.mu.Unlock()
	state := models.CircuitState{
		Platform:            platform,
		Status:              status,
		ConsecutiveFailures: b.failures,
	}
	if b.openedAt != nil {
		t := *b.openedAt
		state.OpenedAt = &t
	}
	return state
}

func (s *BreakerSet) Snapshots() []models.CircuitState {
	s.mu.Lock()
	platforms := make([]models.Platform, 0, len(s.breakers))
	for p := range s.breakers {
		platforms = append(platforms, p)
	}
	s.mu.Unlock()

	sort.Slice(platforms, func(i, j int) bool { return platforms[i] < platforms[j] })
	out := make([]models.CircuitState, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, s.Snapshot(p))
	}
	return out
}

// Reset is the operator override: the platform starts again from a fresh
// closed breaker.
func (s *BreakerSet) Reset(platform models.Platform) {
	s.mu.Lock()
	delete(s.breakers, platform)
	s.mu.Unlock()
	slog.Info("circuit reset by operator", "platform", platform)
}

func toStatus(st gobreaker.State) models.CircuitStatus {
	switch st {
	case gobreaker.StateOpen:
		return models.CircuitOpen
	case gobreaker.StateHalfOpen:
		return models.CircuitHalfOpen
	default:
		return models.CircuitClosed
	}
}

// RecoveryTimeout is how long an open breaker fast-fails before admitting a probe.
func (s *BreakerSet) RecoveryTimeout() time.Duration {
	return s.recovery
}
