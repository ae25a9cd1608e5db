// Package lockutil implements the lock abstraction from spec.md §4.1: a
// uniform protocol over exclusive and shared locks, with timed acquisition
// and scoped (defer-released) guards.
//
// Every lock here is built on sync.Mutex/sync.Cond in the style of
// dijkstracula-go-ilock's intention lock: plain state fields (a locked flag
// and holder Token, or a writer flag plus per-Token reader counts) guarded
// by a sync.Mutex, with waiters parked on a sync.Cond that is broadcast on
// release. No compare-and-swap is involved.
package lockutil

import (
	"time"

	"github.com/abstergo/concur/duration"
)

type (
	// Exclusive is satisfied by every lock in this package: a single
	// writer may hold it at a time.
	Exclusive interface {
		// Lock blocks until tok holds the lock exclusively.
		Lock(tok Token)
		// Unlock releases a lock held exclusively by tok. Unlocking by a
		// non-holder, or a lock never acquired, is a programmer error (see
		// errs.LockPreconditionViolated).
		Unlock(tok Token)
		// TryLockFor attempts to acquire the lock within d, returning
		// whether it succeeded.
		TryLockFor(tok Token, d duration.Millis) bool
		// IsLocked reports whether any goroutine holds the lock
		// exclusively.
		IsLocked() bool
		// IsHeldByCurrentThread reports whether tok currently holds the
		// lock exclusively.
		IsHeldByCurrentThread(tok Token) bool
	}

	// Shared extends Exclusive with a read-write discipline: any number
	// of shared holders, or one exclusive holder, never both.
	Shared interface {
		Exclusive
		LockShared(tok Token)
		UnlockShared(tok Token)
		TryLockSharedFor(tok Token, d duration.Millis) bool
		IsLockedShared() bool
		IsHeldByCurrentThreadShared(tok Token) bool
	}
)

// deadlineFrom turns d into the absolute deadline used by every TryLockFor/
// TryLockSharedFor implementation in this package. Those methods follow the
// condition-variable poll loop that spec.md §4.1 allows for mutexes lacking
// try_lock_for: Go's sync.(RW)Mutex never exposes a timed primitive, so all
// our locks wait on their condvar via waitUntil (mutex.go), a
// wait-with-timeout rather than busy spinning.
func deadlineFrom(d duration.Millis) time.Time {
	return time.Now().Add(d.AsDuration())
}
