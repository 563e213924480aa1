package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

func TestSchedulerTrigger(t *testing.T) {
	s := NewScheduler(quietLogger())

	calls := 0
	require.NoError(t, s.Register("count", "", func(ctx context.Context) (interface{}, error) {
		calls++
		return map[string]int{"calls": calls}, nil
	}))

	report, err := s.Trigger(context.Background(), "count")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"calls": 1}, report)

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "count", status[0].Name)
	assert.False(t, status[0].Running)
	require.NotNil(t, status[0].LastRun)
	assert.Empty(t, status[0].LastError)
	assert.Nil(t, status[0].NextRun)

	_, err = s.Trigger(context.Background(), "missing")
	assert.ErrorIs(t, err, utils.ErrNotFound)
}

func TestSchedulerRecordsFailure(t *testing.T) {
	s := NewScheduler(quietLogger())
	require.NoError(t, s.Register("broken", "", func(ctx context.Context) (interface{}, error) {
		return nil, errors.New("upstream exploded")
	}))

	_, err := s.Trigger(context.Background(), "broken")
	require.Error(t, err)
	assert.Equal(t, "upstream exploded", s.Status()[0].LastError)
}

func TestSchedulerNoOverlap(t *testing.T) {
	s := NewScheduler(quietLogger())

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register("slow", "", func(ctx context.Context) (interface{}, error) {
		close(started)
		<-release
		return nil, nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := s.Trigger(context.Background(), "slow")
		done <- err
	}()

	<-started
	assert.True(t, s.Status()[0].Running)

	_, err := s.Trigger(context.Background(), "slow")
	assert.ErrorIs(t, err, utils.ErrJobRunning)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Status()[0].Running)
}

func TestSchedulerRegister(t *testing.T) {
	s := NewScheduler(quietLogger())
	noop := func(ctx context.Context) (interface{}, error) { return nil, nil }

	require.NoError(t, s.Register("daily", "0 14 * * *", noop))
	assert.ErrorIs(t, s.Register("daily", "0 14 * * *", noop), utils.ErrConflict)
	assert.Error(t, s.Register("bad", "not a cron spec", noop))

	require.NoError(t, s.Start())
	defer s.Stop()
	assert.Error(t, s.Start())

	status := s.Status()
	require.Len(t, status, 1)
	assert.Equal(t, "0 14 * * *", status[0].Schedule)
	require.NotNil(t, status[0].NextRun)
	assert.True(t, status[0].NextRun.After(time.Now()))
	assert.Equal(t, 14, status[0].NextRun.Hour())
}

func TestRegisterNHLJobs(t *testing.T) {
	s := NewScheduler(quietLogger())
	require.NoError(t, RegisterNHLJobs(s, JobSchedules{
		Projections: "0 14 * * *",
		Results:     "0 9 * * *",
		Injuries:    "@every 2h",
	}, nil, nil, nil))

	var names []string
	for _, st := range s.Status() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{JobProjections, JobResults, JobInjuries}, names)
}
