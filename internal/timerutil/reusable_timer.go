// Package timerutil provides a single-shot, rearmable timer primitive used
// by background schedulers that fire on a fixed cadence.
package timerutil

import (
	"errors"
	"sync"
	"time"
)

// ErrNotStarted is returned by Restart when the timer has never been armed.
var ErrNotStarted = errors.New("timerutil: timer was never started")

// ErrAlreadyArmed is returned by Start when the timer is currently armed and
// has not yet fired or been cancelled.
var ErrAlreadyArmed = errors.New("timerutil: timer is already armed")

// ReusableTimer is a one-shot, cancellable callback that can be rearmed in
// place after it fires, using the same delay and function it was last
// started with. The callback always runs on its own goroutine, never on the
// goroutine of the caller that armed it.
type ReusableTimer struct {
	mu      sync.Mutex
	timer   *time.Timer
	armed   bool
	delay   time.Duration
	fn      func()
	started bool
}

// New returns an unarmed ReusableTimer.
func New() *ReusableTimer {
	return &ReusableTimer{}
}

// Start arms the timer to invoke fn after delay elapses. It fails with
// ErrAlreadyArmed if a previous arming has not yet fired or been cancelled.
func (t *ReusableTimer) Start(delay time.Duration, fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.armed {
		return ErrAlreadyArmed
	}

	t.delay = delay
	t.fn = fn
	t.started = true
	t.arm()
	return nil
}

// Cancel stops the timer if armed. It is idempotent and safe to call when
// the timer was never started or has already fired.
func (t *ReusableTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.armed = false
}

// Restart rearms the timer with the (delay, fn) pair from the most recent
// Start call. It fails with ErrNotStarted if Start was never called.
func (t *ReusableTimer) Restart() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started {
		return ErrNotStarted
	}

	if t.timer != nil {
		t.timer.Stop()
	}
	t.arm()
	return nil
}

// arm must be called with t.mu held.
func (t *ReusableTimer) arm() {
	t.armed = true
	t.timer = time.AfterFunc(t.delay, func() {
		t.mu.Lock()
		t.armed = false
		t.mu.Unlock()
		t.fn()
	})
}
