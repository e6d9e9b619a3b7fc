package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/skilltree/internal/apperror"
	"github.com/sakif/skilltree/internal/repository"
)

// ResetScheduler clears every daily challenge once per calendar day.
//
// The day boundary is midnight in the configured location. Three callers
// drive it: the server at startup, Run's timer, and the per-request
// middleware through Check. The store's ResetIfStale is the only writer of
// the marker, so however those calls interleave the flags are cleared at
// most once per date.
type ResetScheduler struct {
	store    repository.ResetRepository
	loc      *time.Location
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	current string // last date known to be current in the store
}

func NewResetScheduler(store repository.ResetRepository, loc *time.Location, interval time.Duration, logger *slog.Logger) *ResetScheduler {
	if loc == nil {
		loc = time.Local
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &ResetScheduler{
		store:    store,
		loc:      loc,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

// Today is the current date in the scheduler's location, as YYYY-MM-DD.
func (s *ResetScheduler) Today() string {
	return s.now().In(s.loc).Format(time.DateOnly)
}

// RunIfDue clears all completion flags and advances the marker to today,
// unless the marker already says today. It reports whether it cleared.
func (s *ResetScheduler) RunIfDue(ctx context.Context, today string) (bool, error) {
	if _, err := time.Parse(time.DateOnly, today); err != nil {
		return false, fmt.Errorf("service/reset: %w",
			apperror.ValidationFailed("today", fmt.Sprintf("invalid date %q, want YYYY-MM-DD", today)))
	}

	reset, err := s.store.ResetIfStale(ctx, today)
	if err != nil {
		return false, fmt.Errorf("service/reset: resetting for %s: %w", today, err)
	}
	s.markCurrent(today)

	if reset {
		s.logger.Info("daily reset performed", slog.String("date", today))
	}
	return reset, nil
}

// Check runs RunIfDue for today unless this process already saw today's
// reset. Concurrent checks for the same date share one store call.
func (s *ResetScheduler) Check(ctx context.Context) (bool, error) {
	today := s.Today()
	if s.isCurrent(today) {
		return false, nil
	}

	v, err, _ := s.group.Do(today, func() (any, error) {
		if s.isCurrent(today) {
			return false, nil
		}
		return s.RunIfDue(ctx, today)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

// Run checks once immediately, then again at every local midnight (or every
// interval, whichever comes first) until ctx is cancelled. Errors are logged
// and retried on the next tick.
func (s *ResetScheduler) Run(ctx context.Context) error {
	s.logger.Info("reset scheduler started",
		slog.String("timezone", s.loc.String()),
		slog.Duration("interval", s.interval),
	)

	for {
		if _, err := s.Check(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("daily reset check failed", slog.String("error", err.Error()))
		}

		timer := time.NewTimer(s.nextWait(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("reset scheduler stopped")
			return nil
		case <-timer.C:
		}
	}
}

// nextWait is the time until the next local midnight, capped at interval.
func (s *ResetScheduler) nextWait(now time.Time) time.Duration {
	local := now.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.loc)
	wait := midnight.Sub(local)
	if wait > s.interval {
		wait = s.interval
	}
	if wait <= 0 {
		wait = time.Second
	}
	return wait
}

func (s *ResetScheduler) isCurrent(today string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == today
}

// markCurrent only moves forward, so a late RunIfDue for an old date cannot
// make Check skip today.
func (s *ResetScheduler) markCurrent(today string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if today > s.current {
		s.current = today
	}
}
