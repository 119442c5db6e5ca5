// Package clock provides time to the application.
// Using an interface enables deterministic tests via a controllable implementation.
package clock

import "time"

// Clock tells the time and schedules callbacks.
type Clock interface {
	Now() time.Time
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is the handle returned by AfterFunc.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer, false if it already fired or was stopped.
	Stop() bool
}

// SystemClock returns the current wall-clock time.
type SystemClock struct{}

// NewSystemClock returns the real clock.
func NewSystemClock() SystemClock { return SystemClock{} }

// Now returns the current time in UTC.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// AfterFunc schedules f on a runtime timer.
func (SystemClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
