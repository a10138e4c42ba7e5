package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedule_RunsAfterDelay(t *testing.T) {
	s := New(testLogger())
	defer shutdown(t, s)

	ran := make(chan struct{})
	var once atomic.Bool
	s.Schedule(5*time.Millisecond, func(ctx context.Context, h *Handle) error {
		if once.CompareAndSwap(false, true) {
			close(ran)
		}
		h.Stop()
		return nil
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestSchedule_RepeatsUntilStopped(t *testing.T) {
	s := New(testLogger())
	defer shutdown(t, s)

	var runs atomic.Int32
	done := make(chan struct{})
	s.Schedule(time.Millisecond, func(ctx context.Context, h *Handle) error {
		if runs.Add(1) == 3 {
			h.Stop()
			close(done)
		}
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not repeat")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestSchedule_StopBeforeFirstRun(t *testing.T) {
	s := New(testLogger())
	defer shutdown(t, s)

	var runs atomic.Int32
	h := s.Schedule(time.Hour, func(ctx context.Context, h *Handle) error {
		runs.Add(1)
		return nil
	})
	h.Stop()

	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
	assert.True(t, h.Stopped())
}

func TestSchedule_ErrorIsContained(t *testing.T) {
	s := New(testLogger())
	defer shutdown(t, s)

	ran := make(chan struct{})
	var once atomic.Bool
	s.Schedule(time.Millisecond, func(ctx context.Context, h *Handle) error {
		defer h.Stop()
		if once.CompareAndSwap(false, true) {
			close(ran)
		}
		return assert.AnError
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
}

func TestSchedule_PanicIsContained(t *testing.T) {
	s := New(testLogger())
	defer shutdown(t, s)

	ran := make(chan struct{})
	var once atomic.Bool
	s.Schedule(time.Millisecond, func(ctx context.Context, h *Handle) error {
		h.Stop()
		if once.CompareAndSwap(false, true) {
			close(ran)
		}
		panic("cleanup exploded")
	})

	select {
	case <-ran:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	// Scheduling after a panic still works.
	ok := make(chan struct{})
	s.Schedule(time.Millisecond, func(ctx context.Context, h *Handle) error {
		h.Stop()
		select {
		case <-ok:
		default:
			close(ok)
		}
		return nil
	})
	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler unusable after panic")
	}
}

func TestShutdown_RejectsNewWork(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Shutdown(context.Background()))

	var runs atomic.Int32
	h := s.Schedule(time.Millisecond, func(ctx context.Context, h *Handle) error {
		runs.Add(1)
		return nil
	})

	assert.True(t, h.Stopped())
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), runs.Load())
}

func TestHandle_StopIdempotent(t *testing.T) {
	s := New(testLogger())
	defer shutdown(t, s)

	h := s.Schedule(time.Hour, func(ctx context.Context, h *Handle) error { return nil })
	h.Stop()
	h.Stop()
	assert.True(t, h.Stopped())
}

func shutdown(t *testing.T, s *Scheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
}
