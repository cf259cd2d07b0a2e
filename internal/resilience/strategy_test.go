package resilience

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestDefaultStrategies(t *testing.T) {
	table := DefaultStrategies()

	assert.False(t, table.Retryable(CategoryValidation))
	assert.LessOrEqual(t, table.For(CategoryAuthentication).MaxRetries, 1)
	assert.True(t, table.For(CategoryNetwork).Exponential)
	assert.True(t, table.For(CategoryPlatform).Exponential)
	assert.False(t, table.For(CategoryElementNotFound).Exponential)
	assert.Equal(t, table.For(CategoryUnknown), table.For(ErrorCategory("made_up")))
}

func TestStrategyBackOff(t *testing.T) {
	linear := Strategy{MaxRetries: 3, BaseDelay: time.Second}.BackOff()
	assert.Equal(t, time.Second, linear.NextBackOff())
	assert.Equal(t, 2*time.Second, linear.NextBackOff())
	assert.Equal(t, 3*time.Second, linear.NextBackOff())
	assert.Equal(t, backoff.Stop, linear.NextBackOff())

	exp := Strategy{MaxRetries: 3, BaseDelay: time.Second, Exponential: true}.BackOff()
	assert.Equal(t, time.Second, exp.NextBackOff())
	assert.Equal(t, 2*time.Second, exp.NextBackOff())
	assert.Equal(t, 4*time.Second, exp.NextBackOff())
	assert.Equal(t, backoff.Stop, exp.NextBackOff())

	none := Strategy{}.BackOff()
	assert.Equal(t, backoff.Stop, none.NextBackOff())
}

func TestQueueBackoff(t *testing.T) {
	cfg := models.PlatformConfig{RetryBaseDelay: time.Minute, RetryMaxDelay: 10 * time.Minute}
	table := DefaultStrategies()

	assert.Equal(t, time.Minute, QueueBackoff(cfg, 0, CategoryNetwork, table))
	assert.Equal(t, 2*time.Minute, QueueBackoff(cfg, 1, CategoryNetwork, table))
	assert.Equal(t, 4*time.Minute, QueueBackoff(cfg, 2, CategoryNetwork, table))
	assert.Equal(t, 10*time.Minute, QueueBackoff(cfg, 8, CategoryNetwork, table))

	short := models.PlatformConfig{RetryBaseDelay: time.Second}
	assert.Equal(t, table.For(CategoryRateLimit).BaseDelay, QueueBackoff(short, 0, CategoryRateLimit, table))
}
