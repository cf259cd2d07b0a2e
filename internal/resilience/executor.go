package resilience

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/maheshrc27/crosspost/internal/models"
)

// Call performs one destination call. A returned error means a programming
// error; destination failures are reported through the PostResult.
type Call func(ctx context.Context) (*models.PostResult, error)

type Outcome struct {
	Result      *models.PostResult
	Category    ErrorCategory
	Attempts    int
	CircuitOpen bool
}

type Executor struct {
	breakers   *BreakerSet
	strategies StrategyTable
	limiters   *Limiters
}

func NewExecutor(breakers *BreakerSet, strategies StrategyTable, limiters *Limiters) *Executor {
	if strategies == nil {
		strategies = DefaultStrategies()
	}
	if limiters == nil {
		limiters = NewLimiters()
	}
	return &Executor{
		breakers:   breakers,
		strategies: strategies,
		limiters:   limiters,
	}
}

func (e *Executor) Strategies() StrategyTable {
	return e.strategies
}

func (e *Executor) Breakers() *BreakerSet {
	return e.breakers
}

// Execute runs call through the rate limiter and the platform's circuit
// breaker with a per-attempt timeout. With retry set, failures are retried
// according to the strategy of their category; validation failures never are.
func (e *Executor) Execute(ctx context.Context, cfg models.PlatformConfig, call Call, retry bool) (*Outcome, error) {
	policies := make(map[ErrorCategory]backoff.BackOff)
	out := &Outcome{}

	for {
		out.Attempts++

		if err := e.limiters.Wait(ctx, cfg); err != nil {
			out.Result = models.NewFailedResult(cfg.Platform, string(CategoryTimeout), err.Error())
			out.Category = CategoryTimeout
			break
		}

		var (
			res     *models.PostResult
			cat     ErrorCategory
			callErr error
		)
		berr := e.breakers.Execute(cfg.Platform, func() error {
			res, cat, callErr = e.attempt(ctx, cfg, call)
			if callErr != nil || cat == CategoryValidation {
				return ErrNotCounted
			}
			if res.Succeeded() {
				return nil
			}
			return NewError(cat, errors.New(res.ErrorMessage))
		})
		if callErr != nil {
			return nil, callErr
		}
		if errors.Is(berr, ErrCircuitOpen) {
			out.Result = models.NewFailedResult(cfg.Platform, CodeCircuitOpen, berr.Error())
			out.Category = ""
			out.CircuitOpen = true
			break
		}

		out.Result = res
		out.Category = cat
		if res.Succeeded() || !retry {
			break
		}

		policy, ok := policies[cat]
		if !ok {
			policy = e.strategies.For(cat).BackOff()
			policies[cat] = policy
		}
		wait := policy.NextBackOff()
		if wait == backoff.Stop {
			break
		}

		slog.Info("retrying destination call", "platform", cfg.Platform, "category", cat, "attempt", out.Attempts, "wait", wait)
		if !sleep(ctx, wait) {
			break
		}
	}

	if out.Result.Succeeded() {
		out.Category = ""
	} else if out.Category != "" {
		if out.Result.ErrorCode == "" {
			out.Result.ErrorCode = string(out.Category)
		}
		if out.Category == CategoryRateLimit {
			out.Result.Status = models.PostStatusRateLimited
		}
	}
	out.Result.Platform = cfg.Platform
	out.Result.RetryCount = out.Attempts - 1
	return out, nil
}

func (e *Executor) attempt(ctx context.Context, cfg models.PlatformConfig, call Call) (*models.PostResult, ErrorCategory, error) {
	callCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	res, err := call(callCtx)
	if err != nil {
		return nil, "", err
	}
	if res == nil {
		return nil, "", errors.New("integration returned no result")
	}
	if res.Succeeded() {
		return res, "", nil
	}
	return res, categorize(callCtx, res), nil
}

func categorize(ctx context.Context, res *models.PostResult) ErrorCategory {
	if res.Status == models.PostStatusRateLimited {
		return CategoryRateLimit
	}
	if res.ErrorCode != "" {
		if cat := ErrorCategory(res.ErrorCode); isCategory(cat) {
			return cat
		}
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return CategoryTimeout
	}
	return ClassifyMessage(res.ErrorMessage)
}

func isCategory(c ErrorCategory) bool {
	switch c {
	case CategoryNetwork, CategoryTimeout, CategoryElementNotFound, CategoryAuthentication,
		CategoryRateLimit, CategoryPlatform, CategoryValidation, CategoryUnknown:
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
