// Package syncpoint implements SyncPoint from spec.md §4.2: a
// condition-variable coordinator with W concurrent wait slots, a counter
// flag, predicate/deadline waits, and an observer callback fired once per
// wait completion.
package syncpoint

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/abstergo/concur/duration"
	"github.com/abstergo/concur/errs"
)

const defaultWaitSlots = 4

type (
	// Observer receives the outcome of a single wait, exactly once,
	// regardless of which condition woke the waiter.
	Observer func(sp *SyncPoint, timedOut, predicateFired, flagCheckEnabled bool, flagTarget int)

	slot struct {
		mu   sync.Mutex
		cond *sync.Cond
	}

	// SyncPoint is the rendezvous primitive described in spec.md §4.2.
	// The zero value is not usable; construct with New.
	SyncPoint struct {
		flag  int32
		w     int
		slots []*slot
		// free is the admission queue of unoccupied slot indices. A
		// buffered channel, pre-filled 0..w-1, is the idiomatic Go stand-in
		// for spec.md's "admission mutex/condvar guarding freeSlots": a
		// receive is the wait-for-non-empty-then-pop, a send is the
		// push-and-notify, both atomically, for free.
		free  chan int
		clock duration.Clock
	}

	// Option configures a SyncPoint at construction.
	Option func(*config)

	config struct {
		waitSlots int
		clock     duration.Clock
	}
)

// WithWaitSlots sets W, the number of independent concurrent waiters. The
// default is 4.
func WithWaitSlots(w int) Option {
	return func(c *config) { c.waitSlots = w }
}

// WithClock overrides the Clock used for all deadline math, for
// deterministic tests (github.com/benbjohnson/clock's *clock.Mock).
func WithClock(clk duration.Clock) Option {
	return func(c *config) { c.clock = clk }
}

// New constructs a SyncPoint with W wait slots (default 4), all initially
// free, and flag 0.
func New(opts ...Option) *SyncPoint {
	c := config{waitSlots: defaultWaitSlots}
	for _, opt := range opts {
		opt(&c)
	}
	if c.waitSlots <= 0 {
		c.waitSlots = defaultWaitSlots
	}
	if c.clock == nil {
		c.clock = duration.NewClock()
	}

	sp := &SyncPoint{
		w:     c.waitSlots,
		slots: make([]*slot, c.waitSlots),
		free:  make(chan int, c.waitSlots),
		clock: c.clock,
	}
	for i := range sp.slots {
		s := &slot{}
		s.cond = sync.NewCond(&s.mu)
		sp.slots[i] = s
		sp.free <- i
	}
	return sp
}

// WaitForPredicate blocks until pred returns true, then invokes observer
// (if non-nil) once.
func (sp *SyncPoint) WaitForPredicate(pred func() bool, observer Observer) {
	sp.wait(waitParams{pred: pred, observer: observer})
}

// WaitUntil blocks until pred returns true or deadline elapses, whichever
// comes first. A nil pred defaults to "false" (a pure timed sleep). A zero
// deadline returns immediately with timedOut=true, predicateFired=false.
func (sp *SyncPoint) WaitUntil(deadline duration.Millis, pred func() bool, observer Observer) {
	sp.wait(waitParams{pred: pred, timed: true, timeout: deadline, observer: observer})
}

// WaitFlag blocks until ReadFlag() >= target. There is no deadline; this
// is the untimed variant.
func (sp *SyncPoint) WaitFlag(target int, observer Observer) {
	sp.wait(waitParams{flagCheck: true, target: target, observer: observer})
}

// WaitFlagTimeout blocks until ReadFlag() >= target, pred returns true, or
// timeout elapses, whichever comes first. pred may be nil.
func (sp *SyncPoint) WaitFlagTimeout(target int, timeout duration.Millis, pred func() bool, observer Observer) {
	sp.wait(waitParams{pred: pred, flagCheck: true, target: target, timed: true, timeout: timeout, observer: observer})
}

type waitParams struct {
	pred      func() bool
	flagCheck bool
	target    int
	timed     bool
	timeout   duration.Millis
	observer  Observer
}

// wait implements the wait protocol from spec.md §4.2, steps 1-5.
func (sp *SyncPoint) wait(p waitParams) {
	// step 1: admission
	i := <-sp.free
	s := sp.slots[i]

	// step 2: acquire the slot
	s.mu.Lock()

	var deadline time.Time
	if p.timed {
		deadline = sp.clock.Now().Add(p.timeout.AsDuration())
	}

	predicateFired := false
	timedOut := false

	composite := func() bool {
		if p.pred != nil && p.pred() {
			predicateFired = true
			return true
		}
		if p.flagCheck && int(atomic.LoadInt32(&sp.flag)) >= p.target {
			return true
		}
		return false
	}

	// step 3: wait on the composite predicate
	for !composite() {
		if p.timed {
			remaining := deadline.Sub(sp.clock.Now())
			if remaining <= 0 {
				timedOut = true
				break
			}
			timer := sp.clock.AfterFunc(remaining, s.cond.Broadcast)
			s.cond.Wait()
			timer.Stop()
		} else {
			s.cond.Wait()
		}
	}

	// step 4: release the slot, return it to the admission queue
	s.mu.Unlock()
	sp.free <- i

	// step 5: notify the observer
	if p.observer != nil {
		p.observer(sp, timedOut, predicateFired, p.flagCheck, p.target)
	}
}

// AddFlag atomically adds delta to the flag, wakes every slot, and returns
// the new value.
func (sp *SyncPoint) AddFlag(delta int) int {
	v := int(atomic.AddInt32(&sp.flag, int32(delta)))
	sp.WakeAll()
	return v
}

// ReadFlag returns the current flag value.
func (sp *SyncPoint) ReadFlag() int {
	return int(atomic.LoadInt32(&sp.flag))
}

// Reset sets the flag to 0 and wakes every slot.
func (sp *SyncPoint) Reset() {
	atomic.StoreInt32(&sp.flag, 0)
	sp.WakeAll()
}

// WakeAll notifies every slot's condition variable, forcing every parked
// waiter to re-evaluate its composite predicate. This is the escape hatch
// used internally by AddFlag/Reset, and is exported for callers that need
// to force re-evaluation without changing the flag (e.g. shutdown paths).
func (sp *SyncPoint) WakeAll() {
	for _, s := range sp.slots {
		s.cond.Broadcast()
	}
}

// ActiveWaiterCount returns the number of slots currently occupied by a
// waiter. Per spec.md §9, when read concurrently with waiters entering or
// leaving, treat this as a hint, not a precise value.
func (sp *SyncPoint) ActiveWaiterCount() int {
	return sp.w - len(sp.free)
}

// WaitingCount is an alias of ActiveWaiterCount, matching the original
// C++ SyncPoint::waitingCount() naming.
func (sp *SyncPoint) WaitingCount() int {
	return sp.ActiveWaiterCount()
}

// Close checks the destruction invariant from spec.md §3: a SyncPoint must
// not be torn down while a waiter is parked in one of its slots. Go has no
// destructors to enforce this automatically, so Close is the explicit
// check callers should perform once they know all waiters have returned.
func (sp *SyncPoint) Close() error {
	if sp.ActiveWaiterCount() > 0 {
		return errs.SyncPointDestroyedWithWaiters
	}
	return nil
}
