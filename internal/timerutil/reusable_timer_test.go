package timerutil

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReusableTimer_FiresAfterDelay(t *testing.T) {
	timer := New()
	var fired int32

	err := timer.Start(10*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, time.Millisecond)
}

func TestReusableTimer_CancelPreventsFiring(t *testing.T) {
	timer := New()
	var fired int32

	err := timer.Start(30*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})
	require.NoError(t, err)

	timer.Cancel()
	time.Sleep(60 * time.Millisecond)

	assert.EqualValues(t, 0, atomic.LoadInt32(&fired))
}

func TestReusableTimer_CancelIsIdempotent(t *testing.T) {
	timer := New()
	timer.Cancel()
	timer.Cancel()
}

func TestReusableTimer_RestartReplaysLastArming(t *testing.T) {
	timer := New()
	var fired int32

	err := timer.Start(10*time.Millisecond, func() {
		atomic.AddInt32(&fired, 1)
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, time.Millisecond)

	err = timer.Restart()
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 2
	}, time.Second, time.Millisecond)
}

func TestReusableTimer_RestartWithoutStartFails(t *testing.T) {
	timer := New()
	err := timer.Restart()
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestReusableTimer_StartWhileArmedFails(t *testing.T) {
	timer := New()
	err := timer.Start(50*time.Millisecond, func() {})
	require.NoError(t, err)

	err = timer.Start(50*time.Millisecond, func() {})
	assert.ErrorIs(t, err, ErrAlreadyArmed)

	timer.Cancel()
}

func TestReusableTimer_FnRunsOnSeparateGoroutine(t *testing.T) {
	timer := New()
	callerGoroutine := make(chan struct{})
	fnGoroutine := make(chan struct{})

	done := make(chan struct{})
	err := timer.Start(5*time.Millisecond, func() {
		// Waits for the caller to get past Start: if fn ran on the caller's
		// goroutine inside Start, this would never return.
		<-callerGoroutine
		close(fnGoroutine)
		close(done)
	})
	require.NoError(t, err)
	close(callerGoroutine)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}
