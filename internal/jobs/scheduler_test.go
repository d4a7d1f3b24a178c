package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketcart/pkg/logger"
	"github.com/angelmondragon/marketcart/pkg/metrics"
)

type fakeLock struct {
	held     bool
	acquires int
	releases int
	err      error
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.acquires++
	if f.err != nil {
		return false, f.err
	}
	if f.held {
		return false, nil
	}
	f.held = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.releases++
	f.held = false
	return nil
}

type countingJob struct {
	name  string
	items int
	err   error
	runs  int
}

func (c *countingJob) Name() string { return c.name }

func (c *countingJob) Run(context.Context) (int, error) {
	c.runs++
	return c.items, c.err
}

func TestSchedulerCycleRunsEveryJobDespiteFailures(t *testing.T) {
	failing := &countingJob{name: "failing", err: errors.New("boom")}
	ok := &countingJob{name: "ok", items: 2}
	lock := &fakeLock{}
	s, err := NewScheduler(SchedulerParams{
		Logger:  logger.Nop(),
		Lock:    lock,
		Metrics: metrics.NewJobMetrics(prometheus.NewRegistry()),
		Jobs:    []Job{failing, nil, ok},
	})
	require.NoError(t, err)

	s.cycle(context.Background())

	assert.Equal(t, 1, failing.runs)
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)
}

func TestSchedulerSkipsCycleWhenLockHeld(t *testing.T) {
	job := &countingJob{name: "job"}
	lock := &fakeLock{held: true}
	s, err := NewScheduler(SchedulerParams{Logger: logger.Nop(), Lock: lock, Jobs: []Job{job}})
	require.NoError(t, err)

	s.cycle(context.Background())

	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

func TestSchedulerSkipsCycleOnLockError(t *testing.T) {
	job := &countingJob{name: "job"}
	s, err := NewScheduler(SchedulerParams{Logger: logger.Nop(), Lock: &fakeLock{err: errors.New("redis down")}, Jobs: []Job{job}})
	require.NoError(t, err)

	s.cycle(context.Background())

	assert.Zero(t, job.runs)
}

func TestSchedulerRunStopsWithContext(t *testing.T) {
	job := &countingJob{name: "job"}
	s, err := NewScheduler(SchedulerParams{Logger: logger.Nop(), Lock: &fakeLock{}, Jobs: []Job{job}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Run(ctx)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewSchedulerRequiresLock(t *testing.T) {
	_, err := NewScheduler(SchedulerParams{Logger: logger.Nop()})
	assert.Error(t, err)
}
