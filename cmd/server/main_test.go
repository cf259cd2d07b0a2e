package main

import (
	"context"
	"testing"
	"time"

	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/integration"
	"github.com/maheshrc27/crosspost/internal/registry"
	"github.com/robfig/cron"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopRetrier struct{}

func (noopRetrier) RetryFailed(ctx context.Context, maxAge time.Duration) (int64, error) {
	return 0, nil
}

func TestScheduleJobs(t *testing.T) {
	reg := registry.New(integration.Dependencies{})
	defer reg.Close()

	cfg := &config.Config{
		KeepaliveSchedule:  "@every 00h15m00s",
		RetrySweepMaxAge:   24 * time.Hour,
		RetrySweepSchedule: "@every 01h00m00s",
	}
	c := cron.New()
	require.NoError(t, scheduleJobs(c, cfg, reg, noopRetrier{}))
	assert.Len(t, c.Entries(), 2)

	cfg.RetrySweepMaxAge = 0
	c = cron.New()
	require.NoError(t, scheduleJobs(c, cfg, reg, noopRetrier{}))
	assert.Len(t, c.Entries(), 1, "sweep is off without a max age")
}

func TestScheduleJobsRejectsBadSchedules(t *testing.T) {
	reg := registry.New(integration.Dependencies{})
	defer reg.Close()

	cfg := &config.Config{KeepaliveSchedule: "every now and then"}
	assert.ErrorContains(t, scheduleJobs(cron.New(), cfg, reg, noopRetrier{}), "KEEPALIVE_SCHEDULE")

	cfg = &config.Config{
		KeepaliveSchedule:  "@every 00h15m00s",
		RetrySweepMaxAge:   time.Hour,
		RetrySweepSchedule: "hourly-ish",
	}
	assert.ErrorContains(t, scheduleJobs(cron.New(), cfg, reg, noopRetrier{}), "RETRY_SWEEP_SCHEDULE")
}
