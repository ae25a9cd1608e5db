package lockutil

import (
	"sync"

	"github.com/abstergo/concur/duration"
	"github.com/abstergo/concur/errs"
)

// RecursiveMutex is an exclusive lock that the current holder may
// re-acquire without deadlocking, provided it presents the same Token each
// time. It satisfies both the "recursive" and "recursive-timed" variants
// from spec.md §4.1.
type RecursiveMutex struct {
	mu     sync.Mutex
	cond   *sync.Cond
	holder Token
	depth  int
}

// NewRecursiveMutex returns a ready-to-use RecursiveMutex.
func NewRecursiveMutex() *RecursiveMutex {
	m := &RecursiveMutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *RecursiveMutex) Lock(tok Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.depth > 0 && m.holder != tok {
		m.cond.Wait()
	}
	m.holder = tok
	m.depth++
}

func (m *RecursiveMutex) Unlock(tok Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.depth == 0 || m.holder != tok {
		panic(errs.LockPreconditionViolated)
	}
	m.depth--
	if m.depth == 0 {
		m.holder = zeroToken
		m.cond.Broadcast()
	}
}

func (m *RecursiveMutex) TryLockFor(tok Token, d duration.Millis) bool {
	deadline := deadlineFrom(d)
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.depth > 0 && m.holder != tok {
		if !waitUntil(m.cond, deadline) {
			return false
		}
	}
	m.holder = tok
	m.depth++
	return true
}

func (m *RecursiveMutex) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth > 0
}

func (m *RecursiveMutex) IsHeldByCurrentThread(tok Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.depth > 0 && m.holder == tok
}
