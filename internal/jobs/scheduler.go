package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Run(ctx context.Context) (int, error)
}

// SchedulerParams configure a Scheduler. Lock is required so that only one
// replica runs a cycle at a time.
type SchedulerParams struct {
	Logger   *logger.Logger
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
	Jobs     []Job
}

// Scheduler runs its jobs back to back on a fixed cadence.
type Scheduler struct {
	logg     *logger.Logger
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
	jobs     []Job
}

func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	jobs := make([]Job, 0, len(params.Jobs))
	for _, j := range params.Jobs {
		if j != nil {
			jobs = append(jobs, j)
		}
	}
	return &Scheduler{
		logg:     params.Logger,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		jobs:     jobs,
	}, nil
}

// Run executes a cycle immediately and then once per interval until ctx ends.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cycle(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// cycle runs every job once. A failing job does not stop the ones after it.
func (s *Scheduler) cycle(ctx context.Context) {
	owned, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "scheduler lock acquire failed", err)
		return
	}
	if !owned {
		s.logg.Debug(ctx, "another scheduler holds the lock; skipping cycle")
		return
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "scheduler lock release failed", err)
		}
	}()

	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.runJob(ctx, job)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	ctx = s.logg.WithField(ctx, "job", job.Name())
	start := time.Now()
	n, err := job.Run(ctx)
	took := time.Since(start)
	s.metrics.ObserveRun(job.Name(), took, err)
	s.metrics.AddItems(job.Name(), n)

	ctx = s.logg.WithFields(ctx, map[string]any{
		"duration_ms": took.Milliseconds(),
		"items":       n,
	})
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		return
	}
	s.logg.Info(ctx, "job completed")
}
