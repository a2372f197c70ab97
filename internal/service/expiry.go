package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flavor-entertainers/booking-platform/internal/logging"
)

// Expirer cancels stale bookings.
type Expirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

// ExpiryScheduler runs the stale-booking sweep on a cron schedule.  Runs
// never overlap: a sweep still in progress skips the next tick.
type ExpiryScheduler struct {
	cron    *cron.Cron
	job     Expirer
	log     *slog.Logger
	timeout time.Duration
}

// NewExpiryScheduler parses spec (standard 5-field cron or a descriptor
// such as "@every 5m") and registers the sweep.
func NewExpiryScheduler(spec string, job Expirer, log *slog.Logger) (*ExpiryScheduler, error) {
	s := &ExpiryScheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DiscardLogger), cron.SkipIfStillRunning(cron.DiscardLogger))),
		job:     job,
		log:     log.With(slog.String("component", "expiry")),
		timeout: time.Minute,
	}
	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, fmt.Errorf("expiry schedule %q: %w", spec, err)
	}
	return s, nil
}

func (s *ExpiryScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n, err := s.job.ExpireStale(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", logging.Err(err))
		return
	}
	s.log.Debug("expiry sweep done", slog.Int("expired", n))
}

// Start runs the scheduler in its own goroutine.
func (s *ExpiryScheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for a running sweep up to ctx.
func (s *ExpiryScheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
