package lockutil

import (
	"sync"
	"time"

	"github.com/abstergo/concur/duration"
	"github.com/abstergo/concur/errs"
)

// Mutex is a plain, non-recursive exclusive lock. It also satisfies the
// "timed" variant from spec.md §4.1, via TryLockFor.
type Mutex struct {
	mu     sync.Mutex
	cond   *sync.Cond
	locked bool
	holder Token
}

// NewMutex returns a ready-to-use Mutex.
func NewMutex() *Mutex {
	m := &Mutex{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *Mutex) Lock(tok Token) {
	m.mu.Lock()
	for m.locked {
		m.cond.Wait()
	}
	m.locked = true
	m.holder = tok
	m.mu.Unlock()
}

func (m *Mutex) Unlock(tok Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked || m.holder != tok {
		panic(errs.LockPreconditionViolated)
	}
	m.locked = false
	m.holder = zeroToken
	m.cond.Broadcast()
}

func (m *Mutex) TryLockFor(tok Token, d duration.Millis) bool {
	deadline := deadlineFrom(d)
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.locked {
		if !waitUntil(m.cond, deadline) {
			return false
		}
	}
	m.locked = true
	m.holder = tok
	return true
}

func (m *Mutex) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

func (m *Mutex) IsHeldByCurrentThread(tok Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked && m.holder == tok
}

// waitUntil waits on c until notified or deadline passes, returning false
// in the latter case. It implements the poll-loop fallback described in
// lockutil.go, using a one-shot timer to force a wakeup at the deadline.
func waitUntil(c *sync.Cond, deadline time.Time) bool {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	timer := time.AfterFunc(remaining, c.Broadcast)
	defer timer.Stop()
	c.Wait()
	return time.Now().Before(deadline) || time.Now().Equal(deadline)
}
