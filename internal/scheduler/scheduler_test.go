package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsJobImmediatelyAndOnTicks(t *testing.T) {
	var runs atomic.Int32
	job := &Job{
		Name:     "counter",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context, now time.Time) error {
			runs.Add(1)
			return nil
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := New(job).Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run() error = %v, want deadline exceeded", err)
	}
	if n := runs.Load(); n < 2 {
		t.Errorf("job ran %d times, want the startup run plus at least one tick", n)
	}
}

func TestSchedulerSkipsOverlappingTicks(t *testing.T) {
	var started atomic.Int32
	release := make(chan struct{})
	job := &Job{
		Name:     "slow",
		Interval: 5 * time.Millisecond,
		Run: func(ctx context.Context, now time.Time) error {
			if started.Add(1) == 1 {
				select {
				case <-release:
				case <-ctx.Done():
				}
			}
			return nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(job).Run(ctx) }()

	// Let several ticks elapse while the first run is blocked.
	time.Sleep(50 * time.Millisecond)
	if n := started.Load(); n != 1 {
		t.Errorf("job started %d times while still running, want 1", n)
	}

	close(release)
	cancel()
	<-done
}

func TestSchedulerJobErrorDoesNotStopTheLoop(t *testing.T) {
	var runs atomic.Int32
	job := &Job{
		Name:     "flaky",
		Interval: 10 * time.Millisecond,
		Run: func(ctx context.Context, now time.Time) error {
			runs.Add(1)
			return errors.New("boom")
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
	defer cancel()

	New(job).Run(ctx)
	if n := runs.Load(); n < 2 {
		t.Errorf("job ran %d times, want it to keep running after an error", n)
	}
}
