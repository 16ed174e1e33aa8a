package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bilgisen/newsdigest/internal/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls   atomic.Int32
	release chan struct{}
	err     error
}

func (f *fakeRunner) Run(ctx context.Context) (*digest.BatchReport, error) {
	n := f.calls.Add(1)
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &digest.BatchReport{Total: int(n), Succeeded: int(n)}, nil
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	_, err := New(&fakeRunner{}, "not a schedule", time.UTC)
	assert.Error(t, err)
}

func TestNextRunUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation(DefaultTimezone)
	require.NoError(t, err)

	s, err := New(&fakeRunner{}, "", loc)
	require.NoError(t, err)
	assert.True(t, s.Next().IsZero())

	s.Start()
	defer s.Stop(context.Background())

	next := s.Next().In(loc)
	assert.True(t, next.After(time.Now()))
	assert.Equal(t, 5, next.Hour())
	assert.Zero(t, next.Minute())
}

func TestScheduledRun(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New(runner, "@every 1s", time.UTC)
	require.NoError(t, err)

	s.Start()
	defer s.Stop(context.Background())

	assert.Eventually(t, func() bool { return runner.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
	assert.Eventually(t, func() bool { return s.LastReport() != nil }, time.Second, 10*time.Millisecond)
}

func TestTriggerSingleFlight(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	s, err := New(runner, "", time.UTC)
	require.NoError(t, err)

	require.True(t, s.Trigger())
	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.Running())
	assert.False(t, s.Trigger(), "second trigger while running is refused")

	close(runner.release)
	assert.Eventually(t, func() bool { return !s.Running() }, time.Second, 5*time.Millisecond)

	report := s.LastReport()
	require.NotNil(t, report)
	assert.Equal(t, 1, report.Succeeded)

	require.NoError(t, s.Stop(context.Background()))
}

func TestRunnerErrorKeepsLastReport(t *testing.T) {
	runner := &fakeRunner{err: errors.New("store down")}
	s, err := New(runner, "", time.UTC)
	require.NoError(t, err)

	require.True(t, s.Trigger())
	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 && !s.Running() }, time.Second, 5*time.Millisecond)
	assert.Nil(t, s.LastReport())
}

func TestStopCancelsRunningBatch(t *testing.T) {
	runner := &fakeRunner{release: make(chan struct{})}
	s, err := New(runner, "", time.UTC)
	require.NoError(t, err)
	s.Start()

	require.True(t, s.Trigger())
	assert.Eventually(t, func() bool { return runner.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.Running())
}
