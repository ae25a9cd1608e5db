package lockutil

import (
	"sync"

	"github.com/abstergo/concur/duration"
	"github.com/abstergo/concur/errs"
)

// RWMutex is the shared-capable lock from spec.md §4.1: any number of
// shared (reader) holders, or one exclusive (writer) holder, never both.
// It satisfies the "shared" and "shared-timed" variants.
type RWMutex struct {
	mu      sync.Mutex
	cond    *sync.Cond
	writing bool
	writer  Token
	readers map[Token]int
}

// NewRWMutex returns a ready-to-use RWMutex.
func NewRWMutex() *RWMutex {
	m := &RWMutex{readers: make(map[Token]int)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *RWMutex) canWriteLocked() bool {
	return !m.writing && len(m.readers) == 0
}

func (m *RWMutex) Lock(tok Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.canWriteLocked() {
		m.cond.Wait()
	}
	m.writing = true
	m.writer = tok
}

func (m *RWMutex) Unlock(tok Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.writing || m.writer != tok {
		panic(errs.LockPreconditionViolated)
	}
	m.writing = false
	m.writer = zeroToken
	m.cond.Broadcast()
}

func (m *RWMutex) TryLockFor(tok Token, d duration.Millis) bool {
	deadline := deadlineFrom(d)
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.canWriteLocked() {
		if !waitUntil(m.cond, deadline) {
			return false
		}
	}
	m.writing = true
	m.writer = tok
	return true
}

func (m *RWMutex) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writing
}

func (m *RWMutex) IsHeldByCurrentThread(tok Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writing && m.writer == tok
}

func (m *RWMutex) canReadLocked() bool {
	return !m.writing
}

func (m *RWMutex) LockShared(tok Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.canReadLocked() {
		m.cond.Wait()
	}
	m.readers[tok]++
}

func (m *RWMutex) UnlockShared(tok Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readers[tok] == 0 {
		panic(errs.LockPreconditionViolated)
	}
	m.readers[tok]--
	if m.readers[tok] == 0 {
		delete(m.readers, tok)
	}
	if len(m.readers) == 0 {
		m.cond.Broadcast()
	}
}

func (m *RWMutex) TryLockSharedFor(tok Token, d duration.Millis) bool {
	deadline := deadlineFrom(d)
	m.mu.Lock()
	defer m.mu.Unlock()
	for !m.canReadLocked() {
		if !waitUntil(m.cond, deadline) {
			return false
		}
	}
	m.readers[tok]++
	return true
}

func (m *RWMutex) IsLockedShared() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.readers) > 0
}

func (m *RWMutex) IsHeldByCurrentThreadShared(tok Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readers[tok] > 0
}
