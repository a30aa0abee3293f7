package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// Runner executes one report run.
type Runner interface {
	Run(ctx context.Context) (Result, error)
}

// Scheduler triggers a Runner once a day at a fixed wall-clock time. It
// holds no state between runs beyond the next fire time.
type Scheduler struct {
	runner     Runner
	hour       int
	minute     int
	loc        *time.Location
	runOnStart bool
	clock      clockwork.Clock
	logger     *slog.Logger
}

// NewScheduler creates a daily scheduler firing at hour:minute in loc.
func NewScheduler(runner Runner, hour, minute int, loc *time.Location, runOnStart bool, clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		runner:     runner,
		hour:       hour,
		minute:     minute,
		loc:        loc,
		runOnStart: runOnStart,
		clock:      clock,
		logger:     logger,
	}
}

// Run blocks until ctx is cancelled, triggering the runner at each fire time.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started", "hour", s.hour, "minute", s.minute, "timezone", s.loc.String())

	if s.runOnStart {
		s.trigger(ctx)
	}

	for {
		now := s.clock.Now()
		next := NextRun(now, s.hour, s.minute, s.loc)
		s.logger.Info("next report run scheduled", "at", next.Format(time.RFC3339))

		timer := s.clock.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("scheduler stopping", "reason", ctx.Err())
			return nil
		case <-timer.Chan():
			s.trigger(ctx)
		}
	}
}

func (s *Scheduler) trigger(ctx context.Context) {
	if _, err := s.runner.Run(ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Info("scheduled run skipped, another run in progress")
			return
		}
		s.logger.Error("scheduled run failed", "error", err)
	}
}

// NextRun returns the first hour:minute in loc strictly after now.
func NextRun(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
