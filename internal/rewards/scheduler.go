package rewards

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// DigestPeriod is the time between two scheduled digests.
const DigestPeriod = 24 * time.Hour

// NextRun returns the first digest time at the given hour of day.
// Once the anchor of today has passed the digest waits for tomorrow's.
func NextRun(now time.Time, hour int) time.Time {
	anchor := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if now.After(anchor) {
		anchor = anchor.AddDate(0, 0, 1)
	}
	return anchor
}

// Scheduler posts the digest every day at a fixed hour.
type Scheduler struct {
	digester *Digester
	hour     int
	location *time.Location
	period   time.Duration
	clock    func() time.Time
	logger   *zap.Logger
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithPeriod replaces the interval between digests after the first one.
func WithPeriod(period time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		s.period = period
	}
}

// WithSchedulerClock replaces the time source.
func WithSchedulerClock(clock func() time.Time) SchedulerOption {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// NewScheduler creates a scheduler firing at hour (0-23) in the given time zone.
func NewScheduler(
	digester *Digester, hour int, location *time.Location, logger *zap.Logger, opts ...SchedulerOption,
) *Scheduler {
	if location == nil {
		location = time.Local
	}

	s := &Scheduler{
		digester: digester,
		hour:     hour,
		location: location,
		period:   DigestPeriod,
		clock:    time.Now,
		logger:   logger.Named("digest_scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run blocks until the context is canceled, posting a digest on every tick.
// A failed digest is logged and the schedule continues.
func (s *Scheduler) Run(ctx context.Context) error {
	now := s.clock().In(s.location)
	first := NextRun(now, s.hour)

	s.logger.Info("Scheduled rewards digest",
		zap.Time("firstRun", first),
		zap.Duration("period", s.period))

	timer := time.NewTimer(first.Sub(now))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil
	case <-timer.C:
	}

	s.tick(ctx)

	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.digester.Deliver(ctx, DigestOptions{}); err != nil {
		s.logger.Error("Failed to deliver rewards digest", zap.Error(err))
	}
}
