package scheduler

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	name string
	err  error
	runs atomic.Int32
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run() error {
	j.runs.Add(1)
	return j.err
}

func newScheduler() *Scheduler {
	return New(zerolog.New(nil).Level(zerolog.Disabled))
}

func TestScheduler_AddJob_InvalidSchedule(t *testing.T) {
	s := newScheduler()
	err := s.AddJob("every now and then", &countingJob{name: "bad"})
	assert.Error(t, err)
	assert.Empty(t, s.Jobs())
}

func TestScheduler_RunNow(t *testing.T) {
	s := newScheduler()

	ok := &countingJob{name: "ok"}
	require.NoError(t, s.RunNow(ok))
	assert.Equal(t, int32(1), ok.runs.Load())

	failing := &countingJob{name: "failing", err: errors.New("boom")}
	assert.EqualError(t, s.RunNow(failing), "boom")
}

func TestScheduler_Jobs(t *testing.T) {
	s := newScheduler()
	require.NoError(t, s.AddJob("@daily", &countingJob{name: "zeta"}))
	require.NoError(t, s.AddJob("0 30 22 * * MON-FRI", &countingJob{name: "alpha", err: errors.New("down")}))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "alpha", jobs[0].Name)
	assert.Equal(t, "0 30 22 * * MON-FRI", jobs[0].Schedule)
	assert.Equal(t, "zeta", jobs[1].Name)
	assert.True(t, jobs[1].LastRun.IsZero())

	_ = s.RunNow(&countingJob{name: "alpha", err: errors.New("down")})
	jobs = s.Jobs()
	assert.Equal(t, "down", jobs[0].LastErr)
	assert.False(t, jobs[0].LastRun.IsZero())
}

func TestScheduler_RunsOnSchedule(t *testing.T) {
	s := newScheduler()
	job := &countingJob{name: "tick"}
	require.NoError(t, s.AddJob("@every 1s", job))

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return job.runs.Load() > 0 }, 5*time.Second, 50*time.Millisecond)
}
