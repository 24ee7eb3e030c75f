// Package scheduler runs one-shot jobs after a delay. Jobs are keyed so the
// same piece of work is never scheduled twice while it is pending.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"taskhub/pkg/logger"
)

// Job receives a context that is cancelled if shutdown gives up waiting.
type Job func(ctx context.Context) error

type entry struct {
	timer *time.Timer
}

type Scheduler struct {
	mu      sync.Mutex
	pending map[string]*entry
	closed  bool
	wg      sync.WaitGroup
	logger  logger.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(log logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		pending: make(map[string]*entry),
		logger:  log,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Schedule runs job after delay. It returns false when a job with the same
// key is already pending or the scheduler is shutting down.
func (s *Scheduler) Schedule(key string, delay time.Duration, job Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if _, ok := s.pending[key]; ok {
		return false
	}

	s.wg.Add(1)
	e := &entry{}
	e.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		delete(s.pending, key)
		s.mu.Unlock()

		s.run(key, job)
	})
	s.pending[key] = e

	s.logger.Debug("Scheduled job", map[string]interface{}{
		"key":   key,
		"delay": delay.String(),
	})
	return true
}

// Pending reports whether a job with key is waiting to run.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// Cancel drops the pending job for key. It returns false when nothing was
// pending or the job has already started.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.pending[key]
	if !ok {
		return false
	}
	delete(s.pending, key)
	if !e.timer.Stop() {
		return false
	}
	s.wg.Done()
	return true
}

func (s *Scheduler) run(key string, job Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Scheduled job panicked", map[string]interface{}{
				"key":   key,
				"panic": fmt.Sprint(r),
			})
		}
	}()

	if err := job(s.ctx); err != nil {
		s.logger.Error("Scheduled job failed", map[string]interface{}{
			"key":   key,
			"error": err,
		})
		return
	}
	s.logger.Debug("Scheduled job finished", map[string]interface{}{
		"key":         key,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

// Shutdown drops jobs that have not started and waits for running ones.
// Dropped work must be recoverable by its owner. If ctx expires first the
// running jobs' context is cancelled and ctx.Err() is returned.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	dropped := 0
	for key, e := range s.pending {
		if e.timer.Stop() {
			s.wg.Done()
			dropped++
		}
		delete(s.pending, key)
	}
	s.mu.Unlock()

	if dropped > 0 {
		s.logger.Info("Scheduler dropped pending jobs", map[string]interface{}{
			"count": dropped,
		})
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
