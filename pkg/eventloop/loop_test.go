package eventloop

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPendingPreservesOrder(t *testing.T) {
	loop := New()

	var got []int
	for i := 0; i < 5; i++ {
		require.NoError(t, loop.Post(func() { got = append(got, i) }))
	}

	assert.Equal(t, 5, loop.RunPending())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	assert.Zero(t, loop.RunPending())
}

func TestTasksCanPostFollowUps(t *testing.T) {
	loop := New()

	var got []string
	require.NoError(t, loop.Post(func() {
		got = append(got, "first")
		_ = loop.Post(func() { got = append(got, "third") })
	}))
	require.NoError(t, loop.Post(func() { got = append(got, "second") }))

	loop.RunPending()
	assert.Equal(t, []string{"first", "second", "third"}, got)
}

func TestPanickingTaskDoesNotStopLoop(t *testing.T) {
	loop := New()

	ran := false
	require.NoError(t, loop.Post(func() { panic("boom") }))
	require.NoError(t, loop.Post(func() { ran = true }))

	assert.Equal(t, 2, loop.RunPending())
	assert.True(t, ran)
}

func TestPostAfterStop(t *testing.T) {
	loop := New()
	require.NoError(t, loop.Post(func() {}))

	loop.Stop()

	assert.ErrorIs(t, loop.Post(func() {}), ErrStopped)
	assert.Zero(t, loop.RunPending(), "queued tasks are discarded on stop")
	assert.True(t, loop.Stopped())
}

func TestAfterFuncWithManualClock(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))
	loop := New(WithClock(clock))

	var fired []string
	loop.AfterFunc(2*time.Second, func() { fired = append(fired, "late") })
	loop.AfterFunc(time.Second, func() { fired = append(fired, "early") })

	clock.Advance(999 * time.Millisecond)
	loop.RunPending()
	assert.Empty(t, fired)

	clock.Advance(time.Millisecond)
	loop.RunPending()
	assert.Equal(t, []string{"early"}, fired)

	clock.Advance(time.Second)
	loop.RunPending()
	assert.Equal(t, []string{"early", "late"}, fired)
	assert.Zero(t, clock.Pending())
}

func TestManualClockStop(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))

	fired := false
	timer := clock.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	clock.Advance(time.Minute)
	assert.False(t, fired)
	assert.Equal(t, time.Unix(60, 0), clock.Now())
}

func TestManualClockFiresNestedTimersInWindow(t *testing.T) {
	clock := NewManualClock(time.Unix(0, 0))

	var at []time.Time
	clock.AfterFunc(time.Second, func() {
		at = append(at, clock.Now())
		clock.AfterFunc(time.Second, func() { at = append(at, clock.Now()) })
	})

	clock.Advance(3 * time.Second)
	assert.Equal(t, []time.Time{time.Unix(1, 0), time.Unix(2, 0)}, at)
}

func TestRunProcessesUntilCancelled(t *testing.T) {
	loop := New()
	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, loop.Run(ctx))
	}()

	ran := make(chan struct{})
	require.NoError(t, loop.Post(func() { close(ran) }))

	select {
	case <-ran:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}

	cancel()
	wg.Wait()

	select {
	case <-loop.Done():
	default:
		t.Fatal("Done should be closed after Run returns")
	}
	assert.ErrorIs(t, loop.Post(func() {}), ErrStopped)
}
