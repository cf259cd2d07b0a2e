package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/credentials"
	"github.com/maheshrc27/crosspost/internal/integration"
	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/registry"
	"github.com/maheshrc27/crosspost/internal/repository"
	"github.com/maheshrc27/crosspost/internal/resilience"
	"github.com/maheshrc27/crosspost/internal/scheduling"
	"golang.org/x/sync/errgroup"
)

var ErrNoPlatforms = errors.New("no target platforms")

// DrainNotifier is told when the earliest of a batch of new entries becomes
// due, so a drain can run on time instead of waiting for the next tick.
type DrainNotifier interface {
	NotifyAt(ctx context.Context, at time.Time) error
}

type PostingOptions struct {
	// Concurrency bounds destination calls in flight per publish or drain.
	Concurrency int
	Notifier    DrainNotifier
}

type ContentReport struct {
	ContentID string                                `json:"content_id"`
	Latest    map[models.Platform]*models.PostResult `json:"latest"`
	History   []*models.PostResult                  `json:"history"`
	Entries   []*models.QueueEntry                  `json:"entries"`
	Success   bool                                  `json:"success"`
}

type PostingService interface {
	PublishNow(ctx context.Context, userID int64, content *models.PostContent, platforms []models.Platform) (*models.AggregateResult, error)
	Schedule(ctx context.Context, userID int64, content *models.PostContent, platforms []models.Platform, when *time.Time) ([]string, error)
	DrainQueue(ctx context.Context, batchSize int) (*models.DrainStats, error)
	RetryFailed(ctx context.Context, maxAge time.Duration) (int64, error)
	CancelEntry(ctx context.Context, userID int64, entryID string) (bool, error)
	ContentReport(ctx context.Context, userID int64, contentID string) (*ContentReport, error)
	OptimalTimes(platforms []models.Platform, daysAhead int) map[models.Platform][]time.Time
	StaggeredSchedule(platforms []models.Platform, start time.Time, staggerMinutes int) []scheduling.Slot
}

type postingService struct {
	cr        repository.ContentRepository
	qr        repository.QueueRepository
	rr        repository.ResultRepository
	reg       *registry.Registry
	cp        credentials.Provider
	executor  *resilience.Executor
	scheduler *scheduling.Scheduler
	limit     int
	notifier  DrainNotifier
	now       func() time.Time
}

func NewPostingService(
	cr repository.ContentRepository,
	qr repository.QueueRepository,
	rr repository.ResultRepository,
	reg *registry.Registry,
	cp credentials.Provider,
	executor *resilience.Executor,
	scheduler *scheduling.Scheduler,
	opts PostingOptions) PostingService {
	limit := opts.Concurrency
	if limit < 1 {
		limit = defaultConcurrency
	}
	return &postingService{
		cr:        cr,
		qr:        qr,
		rr:        rr,
		reg:       reg,
		cp:        cp,
		executor:  executor,
		scheduler: scheduler,
		limit:     limit,
		notifier:  opts.Notifier,
		now:       time.Now,
	}
}

// RegistryPreferences reads posting-time preferences from the configs the
// registry currently holds, so a config update also moves the schedule.
func RegistryPreferences(reg *registry.Registry) scheduling.PreferenceFunc {
	return func(platform models.Platform) (models.SchedulePreference, bool) {
		cfg, ok := reg.Config(platform)
		if !ok {
			return models.SchedulePreference{}, false
		}
		return cfg.Schedule, true
	}
}

func (s *postingService) createContent(ctx context.Context, userID int64, content *models.PostContent) (*models.ContentItem, error) {
	id, err := newID()
	if err != nil {
		return nil, err
	}
	item := &models.ContentItem{
		ID:        id,
		UserID:    userID,
		Content:   *content.Clone(),
		CreatedAt: s.now().UTC(),
	}
	if err := s.cr.Create(ctx, item); err != nil {
		slog.Error("storing content item", "user_id", userID, "error", err)
		return nil, err
	}
	return item, nil
}

func (s *postingService) PublishNow(ctx context.Context, userID int64, content *models.PostContent, platforms []models.Platform) (*models.AggregateResult, error) {
	if content == nil {
		return nil, errors.New("content is nil")
	}
	platforms = uniquePlatforms(platforms)
	if len(platforms) == 0 {
		return nil, ErrNoPlatforms
	}

	item, err := s.createContent(ctx, userID, content)
	if err != nil {
		return nil, err
	}

	agg := &models.AggregateResult{
		ContentID: item.ID,
		Results:   make(map[models.Platform]*models.PostResult, len(platforms)),
	}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.limit)

	for _, platform := range platforms {
		g.Go(func() error {
			out, err := s.dispatch(ctx, userID, platform, &item.Content, true)
			if err != nil {
				return fmt.Errorf("%s: %w", platform, err)
			}
			res := out.Result
			res.ContentID = item.ID
			s.record(ctx, res)

			mu.Lock()
			agg.Results[platform] = res
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	agg.Success = err == nil && len(agg.Failed()) == 0
	slog.Info("content published", "content_id", item.ID, "user_id", userID, "platforms", len(platforms), "success", agg.Success)
	return agg, err
}

func (s *postingService) Schedule(ctx context.Context, userID int64, content *models.PostContent, platforms []models.Platform, when *time.Time) ([]string, error) {
	if content == nil {
		return nil, errors.New("content is nil")
	}
	platforms = uniquePlatforms(platforms)
	if len(platforms) == 0 {
		return nil, ErrNoPlatforms
	}
	for _, p := range platforms {
		if _, ok := s.reg.Config(p); !ok {
			return nil, fmt.Errorf("%w: %s", registry.ErrPlatformNotRegistered, p)
		}
	}

	item, err := s.createContent(ctx, userID, content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ids := make([]string, 0, len(platforms))
	var earliest time.Time
	for _, p := range platforms {
		at := s.scheduler.NextOptimalTime(p, now)
		if when != nil {
			at = *when
		}
		id, err := newID()
		if err != nil {
			return ids, err
		}
		entry := &models.QueueEntry{
			ID:          id,
			ContentID:   item.ID,
			UserID:      userID,
			Platform:    p,
			Status:      models.QueueStatusPending,
			ScheduledAt: at.UTC(),
			Priority:    scheduling.Priority(p),
			CreatedAt:   now.UTC(),
			UpdatedAt:   now.UTC(),
		}
		if err := s.qr.Create(ctx, entry); err != nil {
			slog.Error("queueing entry", "content_id", item.ID, "platform", p, "error", err)
			return ids, err
		}
		ids = append(ids, id)
		if earliest.IsZero() || entry.ScheduledAt.Before(earliest) {
			earliest = entry.ScheduledAt
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyAt(ctx, earliest); err != nil {
			slog.Warn("scheduling drain wake-up", "at", earliest, "error", err)
		}
	}
	slog.Info("content scheduled", "content_id", item.ID, "entries", len(ids), "earliest", earliest)
	return ids, nil
}

type entryOutcome int

const (
	outcomeSucceeded entryOutcome = iota
	outcomeRetried
	outcomeFailed
)

// DrainQueue runs one cycle: claim what is due, dispatch with bounded
// concurrency, then complete, requeue or fail each entry. Entry failures are
// recorded, never returned.
func (s *postingService) DrainQueue(ctx context.Context, batchSize int) (*models.DrainStats, error) {
	if batchSize < 1 {
		batchSize = defaultBatchSize
	}
	entries, err := s.qr.ClaimDue(ctx, s.now(), batchSize)
	if err != nil {
		return nil, fmt.Errorf("claiming due entries: %w", err)
	}

	stats := &models.DrainStats{}
	if len(entries) == 0 {
		return stats, nil
	}

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(s.limit)
	for _, entry := range entries {
		g.Go(func() error {
			outcome := s.process(ctx, entry)

			mu.Lock()
			defer mu.Unlock()
			stats.Processed++
			switch outcome {
			case outcomeSucceeded:
				stats.Succeeded++
			case outcomeRetried:
				stats.Retried++
			default:
				stats.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("queue drain cycle", "processed", stats.Processed, "succeeded", stats.Succeeded, "failed", stats.Failed, "retried", stats.Retried)
	return stats, nil
}

func (s *postingService) process(ctx context.Context, entry *models.QueueEntry) entryOutcome {
	item, err := s.cr.GetByID(ctx, entry.ContentID)
	if err != nil {
		res := models.NewFailedResult(entry.Platform, CodeContentMissing, err.Error())
		s.finish(ctx, entry, res)
		return s.fail(ctx, entry, res.ErrorMessage)
	}

	out, err := s.dispatch(ctx, entry.UserID, entry.Platform, &item.Content, false)
	if err != nil {
		res := models.NewFailedResult(entry.Platform, string(resilience.CategoryValidation), err.Error())
		s.finish(ctx, entry, res)
		return s.fail(ctx, entry, res.ErrorMessage)
	}
	res := out.Result
	s.finish(ctx, entry, res)

	cfg, _ := s.reg.Config(entry.Platform)
	now := s.now()
	switch {
	case res.Succeeded():
		if err := s.qr.Complete(ctx, entry.ID); err != nil {
			slog.Error("completing entry", "entry_id", entry.ID, "error", err)
		}
		return outcomeSucceeded
	case out.CircuitOpen:
		// Backpressure, not a failed attempt: wait out the breaker.
		next := now.Add(s.executor.Breakers().RecoveryTimeout())
		return s.requeue(ctx, entry, next, entry.RetryCount, res.ErrorMessage)
	case out.Category == resilience.CategoryValidation:
		return s.fail(ctx, entry, res.ErrorMessage)
	case entry.RetryCount < cfg.MaxRetries:
		delay := resilience.QueueBackoff(cfg, entry.RetryCount, out.Category, s.executor.Strategies())
		return s.requeue(ctx, entry, now.Add(delay), entry.RetryCount+1, res.ErrorMessage)
	default:
		return s.fail(ctx, entry, res.ErrorMessage)
	}
}

func (s *postingService) finish(ctx context.Context, entry *models.QueueEntry, res *models.PostResult) {
	res.ContentID = entry.ContentID
	res.QueueEntryID = entry.ID
	res.RetryCount = entry.RetryCount
	s.record(ctx, res)
}

func (s *postingService) requeue(ctx context.Context, entry *models.QueueEntry, at time.Time, retryCount int, lastError string) entryOutcome {
	if err := s.qr.Requeue(ctx, entry.ID, at.UTC(), retryCount, lastError); err != nil {
		slog.Error("requeueing entry", "entry_id", entry.ID, "error", err)
		return outcomeFailed
	}
	slog.Info("entry requeued", "entry_id", entry.ID, "platform", entry.Platform, "retry_count", retryCount, "scheduled_at", at)
	return outcomeRetried
}

func (s *postingService) fail(ctx context.Context, entry *models.QueueEntry, lastError string) entryOutcome {
	if err := s.qr.Fail(ctx, entry.ID, lastError); err != nil {
		slog.Error("failing entry", "entry_id", entry.ID, "error", err)
	}
	slog.Warn("entry failed", "entry_id", entry.ID, "platform", entry.Platform, "retry_count", entry.RetryCount, "error", lastError)
	return outcomeFailed
}

// dispatch runs one destination call for the pair under the pair's lock.
// Unavailable integrations, invalid content and missing credentials come
// back as failed results without touching the platform's breaker. An
// instance whose credentials were rejected is evicted afterwards so the next
// call starts from the stored connection.
func (s *postingService) dispatch(ctx context.Context, userID int64, platform models.Platform, content *models.PostContent, retry bool) (*resilience.Outcome, error) {
	unlock := s.reg.Lock(platform, userID)
	inst, out, err := s.dispatchLocked(ctx, userID, platform, content, retry)
	unlock()

	if inst != nil && out != nil && out.Category == resilience.CategoryAuthentication {
		if s.reg.EvictInstance(platform, userID, inst) {
			slog.Info("integration evicted after authentication failure", "platform", platform, "user_id", userID)
		}
	}
	return out, err
}

func (s *postingService) dispatchLocked(ctx context.Context, userID int64, platform models.Platform, content *models.PostContent, retry bool) (integration.Integration, *resilience.Outcome, error) {
	inst, err := s.reg.Resolve(platform, userID)
	if err != nil {
		slog.Warn("integration unavailable", "platform", platform, "user_id", userID, "error", err)
		return nil, &resilience.Outcome{
			Result:   models.NewFailedResult(platform, CodeUnavailable, err.Error()),
			Category: resilience.CategoryValidation,
			Attempts: 1,
		}, nil
	}
	cfg, _ := s.reg.Config(platform)
	if err := integration.Validate(cfg, content); err != nil {
		return inst, &resilience.Outcome{
			Result:   models.NewFailedResult(platform, string(resilience.CategoryValidation), err.Error()),
			Category: resilience.CategoryValidation,
			Attempts: 1,
		}, nil
	}

	needAuth := !inst.IsAuthenticated()
	var creds *models.PlatformCredentials
	if needAuth {
		creds, err = s.cp.DecryptCredentials(ctx, userID, platform)
		if err != nil {
			return inst, &resilience.Outcome{
				Result:   models.NewFailedResult(platform, string(resilience.CategoryAuthentication), err.Error()),
				Category: resilience.CategoryAuthentication,
				Attempts: 1,
			}, nil
		}
	}

	out, err := s.executor.Execute(ctx, cfg, func(ctx context.Context) (*models.PostResult, error) {
		if needAuth || !inst.IsAuthenticated() {
			if creds == nil {
				fresh, err := s.cp.DecryptCredentials(ctx, userID, platform)
				if err != nil {
					return models.NewFailedResult(platform, string(resilience.CategoryAuthentication), err.Error()), nil
				}
				creds = fresh
			}
			if failed := authenticate(ctx, inst, creds); failed != nil {
				return failed, nil
			}
			needAuth = false
		}

		res, err := inst.PostContent(ctx, content)
		if err == nil && rejectedCredentials(res) {
			// Re-read the connection before the next attempt.
			needAuth = true
			creds = nil
		}
		return res, err
	}, retry)
	return inst, out, err
}

func rejectedCredentials(res *models.PostResult) bool {
	if res == nil || res.Succeeded() {
		return false
	}
	if res.ErrorCode != "" {
		return res.ErrorCode == string(resilience.CategoryAuthentication)
	}
	return resilience.ClassifyMessage(res.ErrorMessage) == resilience.CategoryAuthentication
}

// authenticate returns nil on success, otherwise the failed result to report.
func authenticate(ctx context.Context, inst integration.Integration, creds *models.PlatformCredentials) *models.PostResult {
	err := inst.Authenticate(ctx, creds)
	if err == nil {
		return nil
	}
	cat := resilience.Classify(err)
	if cat == resilience.CategoryUnknown {
		cat = resilience.CategoryAuthentication
	}
	res := models.NewFailedResult(inst.Platform(), string(cat), err.Error())
	if cat == resilience.CategoryRateLimit {
		res.Status = models.PostStatusRateLimited
	}
	return res
}

func (s *postingService) record(ctx context.Context, res *models.PostResult) {
	res.CreatedAt = s.now().UTC()
	if _, err := s.rr.Create(ctx, res); err != nil {
		slog.Error("recording post result", "content_id", res.ContentID, "platform", res.Platform, "error", err)
	}
}

func (s *postingService) RetryFailed(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, errors.New("max age must be positive")
	}
	now := s.now()
	n, err := s.qr.RequeueFailed(ctx, now.Add(-maxAge).UTC(), now.UTC())
	if err != nil {
		return 0, err
	}
	slog.Info("failed entries requeued", "count", n, "max_age", maxAge)
	if n > 0 && s.notifier != nil {
		if err := s.notifier.NotifyAt(ctx, now); err != nil {
			slog.Warn("scheduling drain wake-up", "error", err)
		}
	}
	return n, nil
}

// CancelEntry cancels a pending entry of the user. Entries of other users
// read as missing.
func (s *postingService) CancelEntry(ctx context.Context, userID int64, entryID string) (bool, error) {
	entry, err := s.qr.GetByID(ctx, entryID)
	if err != nil {
		return false, err
	}
	if entry.UserID != userID {
		return false, repository.ErrNotFound
	}
	return s.qr.Cancel(ctx, entryID)
}

func (s *postingService) ContentReport(ctx context.Context, userID int64, contentID string) (*ContentReport, error) {
	item, err := s.cr.GetByID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID {
		return nil, repository.ErrNotFound
	}
	latest, err := s.rr.LatestByContentID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	history, err := s.rr.ListByContentID(ctx, contentID)
	if err != nil {
		return nil, err
	}
	entries, err := s.qr.ListByContentID(ctx, contentID)
	if err != nil {
		return nil, err
	}

	report := &ContentReport{
		ContentID: contentID,
		Latest:    latest,
		History:   history,
		Entries:   entries,
		Success:   len(latest) > 0,
	}
	for _, res := range latest {
		if !res.Succeeded() {
			report.Success = false
		}
	}
	return report, nil
}

func (s *postingService) OptimalTimes(platforms []models.Platform, daysAhead int) map[models.Platform][]time.Time {
	return s.scheduler.OptimalTimes(platforms, daysAhead)
}

func (s *postingService) StaggeredSchedule(platforms []models.Platform, start time.Time, staggerMinutes int) []scheduling.Slot {
	return s.scheduler.StaggeredSchedule(platforms, start, staggerMinutes)
}
