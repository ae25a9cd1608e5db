// Package duration provides the monotonic millisecond duration type used
// throughout this module's timed APIs, plus the Clock capability that lets
// callers substitute a deterministic clock in tests.
package duration

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Millis is a non-negative millisecond count. Every timed API in this
// module accepts one. A value of 0 means "no deadline" only where a method
// explicitly documents that; everywhere else it means "poll immediately".
type Millis uint64

// Of converts a time.Duration to Millis, truncating towards zero and
// clamping negative durations to 0.
func Of(d time.Duration) Millis {
	if d <= 0 {
		return 0
	}
	return Millis(d.Milliseconds())
}

// AsDuration converts back to a time.Duration, for handing to a Clock or
// for logging.
func (m Millis) AsDuration() time.Duration {
	return time.Duration(m) * time.Millisecond
}

// Clock is the capability this module depends on for all timed waits. It
// is satisfied by the real-time implementation returned by clock.New() and
// by *clock.Mock (deterministic tests), both from
// github.com/benbjohnson/clock.
type Clock = clock.Clock

// NewClock returns the real, wall-clock backed Clock. Components default
// to this when constructed without an explicit Clock.
func NewClock() Clock {
	return clock.New()
}
