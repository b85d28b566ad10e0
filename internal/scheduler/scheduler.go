// Package scheduler drives the periodic SLA sweep in the worker process.
package scheduler

import (
	"context"
	"time"

	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
)

// Task is one scheduled unit of work.  The passed time is the tick instant,
// so the task's decisions are anchored to when it was scheduled, not when it
// happened to reach the clock call.
type Task func(ctx context.Context, now time.Time) error

// Scheduler runs a task at a fixed interval.  Ticks never overlap: a tick
// that arrives while the previous run is still going is dropped, not queued,
// so a slow pass cannot pile up work behind itself.
type Scheduler struct {
	interval time.Duration
	task     Task
	logger   logging.Logger
	clock    func() time.Time
}

// Option tunes the scheduler.
type Option func(*Scheduler)

// WithClock overrides the wall clock.  Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// New builds a scheduler for the task.
func New(interval time.Duration, task Task, logger logging.Logger, opts ...Option) (*Scheduler, error) {
	if interval <= 0 {
		return nil, errors.InvalidParam("scheduler interval must be positive")
	}
	if task == nil {
		return nil, errors.InvalidParam("scheduler task must not be nil")
	}
	s := &Scheduler{
		interval: interval,
		task:     task,
		logger:   logger.Named("scheduler"),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run executes the task once immediately, then on every interval tick until
// ctx is cancelled.  Task errors are logged and do not stop the loop; only
// cancellation ends it, and Run then returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	now := s.clock().UTC()
	if err := s.task(ctx, now); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("scheduled task failed",
			logging.Time("tick", now),
			logging.Err(err))
	}
}
