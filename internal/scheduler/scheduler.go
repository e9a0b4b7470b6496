// Package scheduler runs the periodic maintenance jobs: the overdue sweep,
// the recurring transaction projector, the auto-payment matcher and budget
// alert publishing. Each job has its own interval and never overlaps itself.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one named periodic task. Run receives the tick time so batch logic
// can treat it as the reference date.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context, now time.Time) error

	mu sync.Mutex
}

// Scheduler drives a fixed set of jobs until its context is cancelled.
type Scheduler struct {
	jobs []*Job
}

func New(jobs ...*Job) *Scheduler {
	return &Scheduler{jobs: jobs}
}

// Run starts every job on its own ticker and blocks until ctx is cancelled.
// Each job runs once immediately at startup. A tick that arrives while the
// previous run of the same job is still going is skipped, not queued.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, job := range s.jobs {
		job := job
		g.Go(func() error {
			slog.InfoContext(ctx, "Scheduler job started",
				"job", job.Name,
				"interval", job.Interval)

			s.runOnce(ctx, job, time.Now())

			ticker := time.NewTicker(job.Interval)
			defer ticker.Stop()

			for {
				select {
				case <-ctx.Done():
					slog.InfoContext(ctx, "Scheduler job stopped", "job", job.Name)
					return ctx.Err()
				case now := <-ticker.C:
					s.runOnce(ctx, job, now)
				}
			}
		})
	}

	return g.Wait()
}

func (s *Scheduler) runOnce(ctx context.Context, job *Job, now time.Time) {
	if !job.mu.TryLock() {
		slog.WarnContext(ctx, "Skipping tick, previous run still in progress", "job", job.Name)
		return
	}
	defer job.mu.Unlock()

	start := time.Now()
	if err := job.Run(ctx, now); err != nil {
		slog.ErrorContext(ctx, "Scheduler job failed",
			"job", job.Name,
			"error", err,
			"duration", time.Since(start))
		return
	}
	slog.InfoContext(ctx, "Scheduler job complete",
		"job", job.Name,
		"duration", time.Since(start))
}
