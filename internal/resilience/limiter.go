package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"golang.org/x/time/rate"
)

// Limiters spreads calls to each platform according to its per-minute quota.
type Limiters struct {
	mu       sync.Mutex
	limiters map[models.Platform]*platformLimiter
}

type platformLimiter struct {
	perMinute int
	limiter   *rate.Limiter
}

func NewLimiters() *Limiters {
	return &Limiters{limiters: make(map[models.Platform]*platformLimiter)}
}

func (l *Limiters) Wait(ctx context.Context, cfg models.PlatformConfig) error {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	return l.get(cfg).Wait(ctx)
}

func (l *Limiters) get(cfg models.PlatformConfig) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if pl, ok := l.limiters[cfg.Platform]; ok && pl.perMinute == cfg.RateLimitPerMinute {
		return pl.limiter
	}
	lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RateLimitPerMinute)), 1)
	l.limiters[cfg.Platform] = &platformLimiter{perMinute: cfg.RateLimitPerMinute, limiter: lim}
	return lim
}
