package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studypet/studypet-hub/pkg/timeutil"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Description() string           { return "test job " + j.name }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

var t0 = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestScheduler(clock timeutil.Clock) *Scheduler {
	cfg := DefaultSchedulerConfig()
	cfg.Clock = clock
	cfg.TickInterval = 5 * time.Millisecond
	return NewScheduler(cfg)
}

func TestDailySchedule_Next(t *testing.T) {
	almaty := time.FixedZone("UTC+5", 5*3600)
	s := NewDailySchedule(5*time.Minute, almaty)

	// 09:30 UTC is 14:30 local, so the next run is tomorrow 00:05 local.
	next := s.Next(t0)
	assert.True(t, next.Equal(time.Date(2025, 3, 11, 0, 5, 0, 0, almaty)), next)

	// 18:00 UTC is 23:00 local.
	next = s.Next(time.Date(2025, 3, 10, 18, 0, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2025, 3, 11, 0, 5, 0, 0, almaty)), next)

	// Just before the offset on the same day.
	early := time.Date(2025, 3, 11, 0, 1, 0, 0, almaty)
	assert.True(t, s.Next(early).Equal(time.Date(2025, 3, 11, 0, 5, 0, 0, almaty)))

	assert.Contains(t, s.String(), "@daily")
	assert.Equal(t, time.UTC, NewDailySchedule(0, nil).Location)
}

func TestIntervalSchedule_Next(t *testing.T) {
	s := NewIntervalSchedule(time.Hour)
	assert.True(t, s.Next(t0).Equal(t0.Add(time.Hour)))
	assert.Equal(t, "@every 1h0m0s", s.String())
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler(timeutil.NewFixedClock(t0))
	job := &funcJob{name: "sweep", run: func(context.Context) error { return nil }}

	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Minute)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Minute)), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(&funcJob{name: "x"}, nil), ErrNilSchedule)

	jobs := s.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "sweep", jobs[0].Name)
	assert.True(t, jobs[0].NextRun.Equal(t0.Add(time.Minute)))
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler(timeutil.NewFixedClock(t0))

	boom := errors.New("boom")
	require.NoError(t, s.Register(&funcJob{name: "ok", run: func(context.Context) error { return nil }}, NewIntervalSchedule(time.Hour)))
	require.NoError(t, s.Register(&funcJob{name: "fail", run: func(context.Context) error { return boom }}, NewIntervalSchedule(time.Hour)))
	require.NoError(t, s.Register(&funcJob{name: "panic", run: func(context.Context) error { panic("oops") }}, NewIntervalSchedule(time.Hour)))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)

	_, err = s.RunNow(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)

	_, err = s.RunNow(context.Background(), "panic")
	assert.ErrorIs(t, err, ErrJobPanicked)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	snap := s.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap.TotalExecutions)
	assert.Equal(t, int64(2), snap.TotalFailures)

	jobs := s.ListJobs()
	assert.Equal(t, []string{"fail", "ok", "panic"}, []string{jobs[0].Name, jobs[1].Name, jobs[2].Name})
	assert.Equal(t, int64(1), jobs[0].FailCount)
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := newTestScheduler(timeutil.NewFixedClock(t0))

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register(&funcJob{name: "slow", run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}, NewIntervalSchedule(time.Hour)))

	done := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background(), "slow")
		done <- err
	}()

	<-started
	_, err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, ErrJobRunning)

	close(release)
	require.NoError(t, <-done)
}

func TestScheduler_StartRunsDueJobs(t *testing.T) {
	clock := timeutil.NewFixedClock(t0)
	cfg := DefaultSchedulerConfig()
	cfg.Clock = clock
	cfg.TickInterval = 5 * time.Millisecond
	cfg.RunOnStartup = true
	s := NewScheduler(cfg)

	var runs atomic.Int32
	require.NoError(t, s.Register(&funcJob{name: "tick", run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Not due again until the clock reaches the next interval.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load())

	clock.Advance(time.Hour)
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_StopCancelsRunningJob(t *testing.T) {
	clock := timeutil.NewFixedClock(t0)
	cfg := DefaultSchedulerConfig()
	cfg.Clock = clock
	cfg.TickInterval = 5 * time.Millisecond
	cfg.RunOnStartup = true
	s := NewScheduler(cfg)

	started := make(chan struct{})
	require.NoError(t, s.Register(&funcJob{name: "blocking", run: func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}}, NewIntervalSchedule(time.Hour)))

	require.NoError(t, s.Start(context.Background()))
	<-started
	require.NoError(t, s.Stop())

	jobs := s.ListJobs()
	require.NotNil(t, jobs[0].LastResult)
	assert.ErrorIs(t, jobs[0].LastResult.Error, context.Canceled)
}
