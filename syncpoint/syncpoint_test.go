package syncpoint_test

import (
	"sync"
	"testing"
	"time"

	"github.com/abstergo/concur/duration"
	"github.com/abstergo/concur/syncpoint"
	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagRendezvous(t *testing.T) {
	sp := syncpoint.New(syncpoint.WithWaitSlots(4))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(5 * time.Millisecond)
			sp.AddFlag(1)
		}()
	}

	var (
		observed     int
		timedOutSeen bool
		flagCheckSeen bool
		mu           sync.Mutex
	)
	sp.WaitFlag(10, func(_ *syncpoint.SyncPoint, timedOut, predicateFired, flagCheckEnabled bool, target int) {
		mu.Lock()
		defer mu.Unlock()
		observed++
		timedOutSeen = timedOut
		flagCheckSeen = flagCheckEnabled
	})

	wg.Wait()
	assert.Equal(t, 10, sp.ReadFlag())
	assert.Equal(t, 1, observed)
	assert.False(t, timedOutSeen)
	assert.True(t, flagCheckSeen)
}

func TestWaitUntilZeroDeadlineTimesOutImmediately(t *testing.T) {
	sp := syncpoint.New()

	var timedOut, predicateFired bool
	sp.WaitUntil(0, func() bool { return false }, func(_ *syncpoint.SyncPoint, to, pf, _ bool, _ int) {
		timedOut, predicateFired = to, pf
	})

	assert.True(t, timedOut)
	assert.False(t, predicateFired)
}

func TestWaitUntilWithMockClock(t *testing.T) {
	mock := clock.NewMock()
	sp := syncpoint.New(syncpoint.WithClock(mock))

	done := make(chan struct{})
	var timedOut bool
	go func() {
		defer close(done)
		sp.WaitUntil(duration.Of(200*time.Millisecond), nil, func(_ *syncpoint.SyncPoint, to, _, _ bool, _ int) {
			timedOut = to
		})
	}()

	// give the waiter a chance to park, then advance the mock clock past
	// the deadline deterministically - no real sleeping required.
	waitUntilWaiterParked(t, sp)
	mock.Add(200 * time.Millisecond)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not complete after advancing the mock clock")
	}
	assert.True(t, timedOut)
}

func TestResetIsIdempotent(t *testing.T) {
	sp := syncpoint.New()
	sp.AddFlag(5)
	sp.Reset()
	sp.Reset()
	assert.Equal(t, 0, sp.ReadFlag())
}

func TestAddFlagRoundTrip(t *testing.T) {
	sp := syncpoint.New()
	sp.AddFlag(7)
	sp.AddFlag(-7)
	assert.Equal(t, 0, sp.ReadFlag())
}

func TestActiveWaiterCountInvariant(t *testing.T) {
	sp := syncpoint.New(syncpoint.WithWaitSlots(2))
	assert.Equal(t, 0, sp.ActiveWaiterCount())

	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sp.WaitForPredicate(func() bool {
			select {
			case <-release:
				return true
			default:
				return false
			}
		}, nil)
	}()

	waitUntilWaiterParked(t, sp)
	assert.Equal(t, 1, sp.ActiveWaiterCount())

	close(release)
	sp.WakeAll()
	wg.Wait()

	require.Eventually(t, func() bool { return sp.ActiveWaiterCount() == 0 }, time.Second, time.Millisecond)
}

func TestCloseRejectsActiveWaiters(t *testing.T) {
	sp := syncpoint.New()
	release := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		sp.WaitForPredicate(func() bool {
			select {
			case <-release:
				return true
			default:
				return false
			}
		}, nil)
	}()

	waitUntilWaiterParked(t, sp)
	assert.Error(t, sp.Close())

	close(release)
	sp.WakeAll()
	<-done

	assert.NoError(t, sp.Close())
}

// waitUntilWaiterParked polls ActiveWaiterCount until it is non-zero, i.e.
// until a waiter has taken a slot. A waiter takes its slot just before it
// computes its deadline and blocks, so this shows the waiter has entered
// the wait, not that it is already blocked.
func waitUntilWaiterParked(t *testing.T, sp *syncpoint.SyncPoint) {
	t.Helper()
	require.Eventually(t, func() bool {
		return sp.ActiveWaiterCount() > 0
	}, time.Second, time.Millisecond)
}
