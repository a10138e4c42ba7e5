// Package scheduler provides delayed, repeating callbacks used by the
// registration and password-reset sagas for their expiry cleanups and by the
// signing-secret rotation.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Task is a scheduled callback. It receives a Handle through which it can
// stop its own repetition. A returned error is logged and never retried
// out-of-band; the next run, if any, happens at the next period.
type Task func(ctx context.Context, h *Handle) error

// Handle controls a scheduled task's repetition.
type Handle struct {
	stopped atomic.Bool
	done    chan struct{}
}

// Stop suppresses any further runs of the task. Safe to call from inside the
// task itself or from any goroutine; subsequent calls are no-ops.
func (h *Handle) Stop() {
	if h.stopped.CompareAndSwap(false, true) {
		close(h.done)
	}
}

// Stopped reports whether Stop has been called.
func (h *Handle) Stopped() bool {
	return h.stopped.Load()
}

// Scheduler arms callbacks to run out-of-band from the request that scheduled
// them. A task first fires after its delay and then repeats at the same
// period until its handle is stopped or the scheduler shuts down. Panics are
// recovered and logged so a misbehaving cleanup can never crash the process.
type Scheduler struct {
	logger *slog.Logger

	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
	quit   chan struct{}
}

// New creates a scheduler.
func New(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger,
		quit:   make(chan struct{}),
	}
}

// Schedule arms task to run after delay and then at every delay interval
// until its handle is stopped. The call returns immediately; the task runs on
// its own goroutine.
func (s *Scheduler) Schedule(delay time.Duration, task Task) *Handle {
	h := &Handle{done: make(chan struct{})}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		h.Stop()
		return h
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		for {
			select {
			case <-timer.C:
				s.runOnce(h, task)
				if h.Stopped() {
					return
				}
				timer.Reset(delay)
			case <-h.done:
				return
			case <-s.quit:
				return
			}
		}
	}()

	return h
}

// runOnce executes a single firing of the task, containing panics and logging
// failures.
func (s *Scheduler) runOnce(h *Handle, task Task) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled task panicked",
				slog.String("panic", fmt.Sprintf("%v", r)),
			)
		}
	}()

	if err := task(context.Background(), h); err != nil {
		s.logger.Error("scheduled task failed",
			slog.String("error", err.Error()),
		)
	}
}

// Shutdown stops accepting new work, signals all armed timers to abandon
// their pending runs, and waits for in-flight callbacks until ctx expires.
// Abandoned cleanups leave stale rows that the next identical-key saga
// invocation removes.
func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.quit)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
