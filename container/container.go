// Package container implements ConcurrentContainer from spec.md §4.3: a
// generic wrapper exposing atomic read and atomic write closures over an
// inner value, dispatching to shared or exclusive acquisition depending on
// the lock it is given.
package container

import "github.com/abstergo/concur/lockutil"

// Container wraps an inner value of type T behind a lock, exposing
// ReadAtomic/WriteAtomic. The lock may additionally implement
// lockutil.Shared; this is detected once, at construction (the Go
// equivalent of spec.md's compile-time is_base_of_v dispatch - Go generics
// have no such trait query, so the capability check happens at
// construction time via a type assertion, and the result is cached).
type Container[T any] struct {
	excl   lockutil.Exclusive
	shared lockutil.Shared // non-nil iff excl also implements Shared
	tok    lockutil.Token
	inner  T
}

// New wraps inner behind lock. Pass a *lockutil.RWMutex for shared-read
// capability, or a *lockutil.Mutex for exclusive-only access.
//
// Do not pass a *lockutil.RecursiveMutex: every call into this Container
// presents the same Token (minted once, in this constructor), so two
// concurrent goroutines would both be admitted as if they were the same
// reentrant holder. RecursiveMutex's reentrancy guard only holds when the
// Token actually identifies the calling goroutine, which a Container does
// not do.
func New[T any](inner T, lock lockutil.Exclusive) *Container[T] {
	c := &Container[T]{excl: lock, inner: inner, tok: lockutil.NewToken()}
	if s, ok := lock.(lockutil.Shared); ok {
		c.shared = s
	}
	return c
}

// ReadAtomic runs fn with the inner value, under a shared acquisition if
// the lock supports it, exclusive otherwise. fn must not retain the
// reference it is given, nor call back into this Container.
func (c *Container[T]) ReadAtomic(fn func(inner T)) {
	if c.shared != nil {
		g := lockutil.AcquireShared(c.shared, c.tok)
		defer g.Release()
	} else {
		g := lockutil.Acquire(c.excl, c.tok)
		defer g.Release()
	}
	fn(c.inner)
}

// WriteAtomic runs fn with a mutable reference to the inner value, always
// under exclusive acquisition.
func (c *Container[T]) WriteAtomic(fn func(inner *T)) {
	g := lockutil.Acquire(c.excl, c.tok)
	defer g.Release()
	fn(&c.inner)
}

// Clone returns a new Container sharing none of this one's locking state,
// with a snapshot of the current inner value obtained via ReadAtomic. Per
// spec.md §4.3, this does not coordinate with concurrent writers beyond
// that snapshot: callers must quiesce externally if they need a
// consistent copy.
func (c *Container[T]) Clone(lock lockutil.Exclusive) *Container[T] {
	var snapshot T
	c.ReadAtomic(func(inner T) { snapshot = inner })
	return New(snapshot, lock)
}
