package lockutil_test

import (
	"sync"
	"testing"
	"time"

	"github.com/abstergo/concur/duration"
	"github.com/abstergo/concur/errs"
	"github.com/abstergo/concur/lockutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutexExclusion(t *testing.T) {
	m := lockutil.NewMutex()
	a, b := lockutil.NewToken(), lockutil.NewToken()

	m.Lock(a)
	assert.True(t, m.IsLocked())
	assert.True(t, m.IsHeldByCurrentThread(a))
	assert.False(t, m.IsHeldByCurrentThread(b))
	assert.False(t, m.TryLockFor(b, duration.Of(20*time.Millisecond)))

	m.Unlock(a)
	assert.False(t, m.IsLocked())
	assert.True(t, m.TryLockFor(b, duration.Of(time.Second)))
	m.Unlock(b)
}

func TestMutexUnlockByNonHolderPanics(t *testing.T) {
	m := lockutil.NewMutex()
	a, b := lockutil.NewToken(), lockutil.NewToken()
	m.Lock(a)
	assert.PanicsWithValue(t, errs.LockPreconditionViolated, func() {
		m.Unlock(b)
	})
}

func TestRecursiveMutex(t *testing.T) {
	m := lockutil.NewRecursiveMutex()
	a := lockutil.NewToken()

	m.Lock(a)
	m.Lock(a) // reentrant, same token
	assert.True(t, m.IsHeldByCurrentThread(a))

	b := lockutil.NewToken()
	assert.False(t, m.TryLockFor(b, 20))

	m.Unlock(a)
	assert.True(t, m.IsLocked()) // depth 1 remains
	m.Unlock(a)
	assert.False(t, m.IsLocked())
}

func TestRWMutexSharedReaders(t *testing.T) {
	m := lockutil.NewRWMutex()
	a, b := lockutil.NewToken(), lockutil.NewToken()

	m.LockShared(a)
	m.LockShared(b)
	assert.True(t, m.IsLockedShared())
	assert.False(t, m.TryLockFor(lockutil.NewToken(), duration.Of(20*time.Millisecond)))

	m.UnlockShared(a)
	assert.True(t, m.IsLockedShared())
	m.UnlockShared(b)
	assert.False(t, m.IsLockedShared())

	writer := lockutil.NewToken()
	require.True(t, m.TryLockFor(writer, duration.Of(time.Second)))
	assert.False(t, m.TryLockSharedFor(lockutil.NewToken(), duration.Of(20*time.Millisecond)))
	m.Unlock(writer)
}

func TestGuardReleaseIsIdempotent(t *testing.T) {
	m := lockutil.NewMutex()
	tok := lockutil.NewToken()
	g := lockutil.Acquire(m, tok)
	assert.True(t, m.IsLocked())
	g.Release()
	g.Release() // no panic, no double-unlock
	assert.False(t, m.IsLocked())
}

func TestMutexConcurrentAccess(t *testing.T) {
	m := lockutil.NewMutex()
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok := lockutil.NewToken()
			g := lockutil.Acquire(m, tok)
			defer g.Release()
			counter++
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}
