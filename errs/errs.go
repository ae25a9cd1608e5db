// Package errs defines the error taxonomy shared by the concurrency core
// (duration, syncpoint, container, queue, pool, lockutil).
package errs

import "errors"

// Sentinel errors. Compare with errors.Is, since some are wrapped with
// task/thread context before being handed to a pool's onError callback.
var (
	// PoolNotRunning is returned by pool.Pool.Submit when the pool has not
	// been started, or has already been stopped.
	PoolNotRunning = errors.New(`concur: pool not running`)

	// PoolAlreadyRunning is returned by pool.Pool.Start when called outside
	// the NEW state.
	PoolAlreadyRunning = errors.New(`concur: pool already running`)

	// TaskCountFull is routed to onError when accepting a submission would
	// exceed maxTasksPerWorker*workerCount. The task is not enqueued.
	TaskCountFull = errors.New(`concur: task count full`)

	// TaskError marks a panic recovered from a user callable. The pool wraps
	// it in an error whose message appends the recovered value's text; the
	// recovered value itself is not wrapped, so errors.Unwrap yields
	// TaskError, not the original cause.
	TaskError = errors.New(`concur: task error`)

	// QueueEmpty completes the taxonomy; no function in this module
	// currently returns it. Poll and Pop report an empty queue as "no
	// value" instead.
	QueueEmpty = errors.New(`concur: queue empty`)

	// LockPreconditionViolated indicates misuse of the lock abstraction:
	// release by a non-holder, or release of a never-acquired lock.
	LockPreconditionViolated = errors.New(`concur: lock precondition violated`)

	// SyncPointDestroyedWithWaiters indicates a SyncPoint was torn down
	// while a waiter was still parked in one of its slots - a programmer
	// error, since destruction must happen only at quiescence.
	SyncPointDestroyedWithWaiters = errors.New(`concur: sync point destroyed with waiters`)
)
