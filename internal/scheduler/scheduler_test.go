package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/filetrack/internal/infrastructure/monitoring/logging"
	"github.com/opsdesk/filetrack/pkg/errors"
)

func TestNew_Validation(t *testing.T) {
	logger := logging.NewNopLogger()
	task := func(context.Context, time.Time) error { return nil }

	_, err := New(0, task, logger)
	assert.True(t, errors.IsValidation(err))

	_, err = New(time.Minute, nil, logger)
	assert.True(t, errors.IsValidation(err))
}

func TestScheduler_RunsImmediatelyThenOnTicks(t *testing.T) {
	var runs atomic.Int32
	fixed := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	s, err := New(10*time.Millisecond, func(_ context.Context, now time.Time) error {
		assert.Equal(t, time.UTC, now.Location())
		runs.Add(1)
		return nil
	}, logging.NewNopLogger(), WithClock(func() time.Time { return fixed }))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// One immediate run plus several ticks.
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestScheduler_TaskErrorDoesNotStopLoop(t *testing.T) {
	var runs atomic.Int32
	s, err := New(10*time.Millisecond, func(context.Context, time.Time) error {
		runs.Add(1)
		return errors.New(errors.ErrCodeInternal, "boom")
	}, logging.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	assert.GreaterOrEqual(t, runs.Load(), int32(2))
}

func TestScheduler_SlowTaskDoesNotPileUp(t *testing.T) {
	var runs atomic.Int32
	s, err := New(5*time.Millisecond, func(ctx context.Context, _ time.Time) error {
		runs.Add(1)
		select {
		case <-time.After(30 * time.Millisecond):
		case <-ctx.Done():
		}
		return nil
	}, logging.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx)

	// With a 30ms task and 5ms interval, queued ticks would mean ~20 runs;
	// dropped ticks keep it near runtime/taskDuration.
	assert.LessOrEqual(t, runs.Load(), int32(6))
}
