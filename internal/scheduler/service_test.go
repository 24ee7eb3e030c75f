package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"taskhub/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestSchedule_RunsAfterDelay(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	done := make(chan struct{})

	ok := s.Schedule("a", 10*time.Millisecond, func(ctx context.Context) error {
		close(done)
		return nil
	})
	require.True(t, ok)
	assert.True(t, s.Pending("a"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("job did not run")
	}
	require.NoError(t, s.Shutdown(context.Background()))
	assert.False(t, s.Pending("a"))
}

func TestSchedule_DeduplicatesByKey(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	var runs atomic.Int32
	job := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}

	assert.True(t, s.Schedule("k", 20*time.Millisecond, job))
	assert.False(t, s.Schedule("k", 20*time.Millisecond, job))

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Shutdown(context.Background()))
	assert.Equal(t, int32(1), runs.Load())
}

func TestShutdown_DropsPendingAndRejectsNew(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	var runs atomic.Int32

	s.Schedule("later", time.Hour, func(ctx context.Context) error {
		runs.Add(1)
		return nil
	})
	require.NoError(t, s.Shutdown(context.Background()))

	assert.False(t, s.Schedule("again", 0, func(ctx context.Context) error { return nil }))
	assert.Zero(t, runs.Load())
}

func TestShutdown_WaitsForRunningJob(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	started := make(chan struct{})
	var finished atomic.Bool

	s.Schedule("slow", 0, func(ctx context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	})
	<-started

	require.NoError(t, s.Shutdown(context.Background()))
	assert.True(t, finished.Load())
}

func TestShutdown_DeadlineCancelsJob(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	started := make(chan struct{})

	s.Schedule("stuck", 0, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.Shutdown(ctx)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestRun_RecoversPanics(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	s.Schedule("boom", 0, func(ctx context.Context) error { panic("boom") })
	require.NoError(t, s.Shutdown(context.Background()))
}

func TestCancel_DropsPendingJob(t *testing.T) {
	s := NewScheduler(logger.NewNop())
	var runs atomic.Int32
	job := func(ctx context.Context) error {
		runs.Add(1)
		return nil
	}

	require.True(t, s.Schedule("k", 30*time.Millisecond, job))
	assert.True(t, s.Cancel("k"))
	assert.False(t, s.Pending("k"))
	assert.False(t, s.Cancel("k"))

	// The key is free again.
	require.True(t, s.Schedule("k", 10*time.Millisecond, job))
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())
	require.NoError(t, s.Shutdown(context.Background()))
}
