// Package queue implements ConcurrentQueue and ConcurrentPriorityQueue from
// spec.md §4.4: container.Container-protected storage paired with a
// syncpoint.SyncPoint flag tracking pending element count, so consumers can
// block until something is available, with or without a deadline.
package queue

import (
	"container/heap"

	"github.com/abstergo/concur/container"
	"github.com/abstergo/concur/duration"
	"github.com/abstergo/concur/lockutil"
	"github.com/abstergo/concur/optional"
	"github.com/abstergo/concur/syncpoint"
)

// ConcurrentPriorityQueue is a thread-safe priority queue: Push enqueues in
// O(log n), Pop/Poll dequeue the highest-priority element, ties broken by
// arrival order. The flag on its SyncPoint tracks the element count, so
// Poll can block until Push makes one available.
type ConcurrentPriorityQueue[T any] struct {
	c     *container.Container[innerHeap[T]]
	sp    *syncpoint.SyncPoint
	clock duration.Clock
	seq   uint64
}

// PriorityQueueOption configures a ConcurrentPriorityQueue at construction.
type PriorityQueueOption func(*pqConfig)

type pqConfig struct {
	lock  lockutil.Exclusive
	clock duration.Clock
}

// WithLock overrides the lock guarding the queue's storage. The default is
// a *lockutil.RWMutex, so Top (a read) can proceed concurrently with other
// readers.
func WithLock(lock lockutil.Exclusive) PriorityQueueOption {
	return func(c *pqConfig) { c.lock = lock }
}

// WithQueueClock overrides the Clock used for Poll's deadline math.
func WithQueueClock(clk duration.Clock) PriorityQueueOption {
	return func(c *pqConfig) { c.clock = clk }
}

// NewPriorityQueue constructs an empty ConcurrentPriorityQueue. priority
// ranks values; higher returned values dequeue first (spec.md's default
// std::greater_equal comparator).
func NewPriorityQueue[T any](priority func(T) int, opts ...PriorityQueueOption) *ConcurrentPriorityQueue[T] {
	cfg := pqConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.lock == nil {
		cfg.lock = lockutil.NewRWMutex()
	}

	var syncOpts []syncpoint.Option
	if cfg.clock != nil {
		syncOpts = append(syncOpts, syncpoint.WithClock(cfg.clock))
	}

	if cfg.clock == nil {
		cfg.clock = duration.NewClock()
	}

	inner := innerHeap[T]{priority: priority}
	return &ConcurrentPriorityQueue[T]{
		c:     container.New(inner, cfg.lock),
		sp:    syncpoint.New(syncOpts...),
		clock: cfg.clock,
	}
}

// Push adds value and wakes any blocked consumer.
func (q *ConcurrentPriorityQueue[T]) Push(value T) {
	q.c.WriteAtomic(func(h *innerHeap[T]) {
		heap.Push(h, entry[T]{value: value, seq: q.nextSeq()})
	})
	q.sp.AddFlag(1)
}

func (q *ConcurrentPriorityQueue[T]) nextSeq() uint64 {
	s := q.seq
	q.seq++
	return s
}

// Pop removes and returns the highest-priority element, or ok=false if the
// queue is empty. Unlike Poll, Pop never blocks. Mirrors the original
// pop(): the flag is only decremented when an element was actually
// removed.
func (q *ConcurrentPriorityQueue[T]) Pop() (value T, ok bool) {
	q.c.WriteAtomic(func(h *innerHeap[T]) {
		if h.Len() == 0 {
			return
		}
		value = heap.Pop(h).(entry[T]).value
		ok = true
	})
	if ok {
		q.sp.AddFlag(-1)
	}
	return value, ok
}

// Poll blocks until an element is available or timeout elapses, whichever
// comes first, returning an empty Value on timeout. A zero timeout polls
// once without blocking.
//
// The flag counts elements but does not say which waiter should take one,
// so more than one blocked consumer can wake for a single pushed element:
// after waking, each consumer double-checks under the write lock, and only the one that
// actually dequeues decrements the flag. A consumer that wakes and finds
// nothing re-waits against whatever deadline remains, rather than
// returning an empty result for an element that simply went to a
// different consumer.
func (q *ConcurrentPriorityQueue[T]) Poll(timeout duration.Millis) optional.Value[T] {
	deadline := q.clock.Now().Add(timeout.AsDuration())
	for {
		var (
			result   optional.Value[T]
			timedOut bool
		)
		remaining := duration.Of(deadline.Sub(q.clock.Now()))
		q.sp.WaitFlagTimeout(1, remaining, nil, func(_ *syncpoint.SyncPoint, to, _, _ bool, _ int) {
			timedOut = to
			q.c.WriteAtomic(func(h *innerHeap[T]) {
				if h.Len() == 0 {
					return
				}
				result = optional.Of(heap.Pop(h).(entry[T]).value)
			})
		})
		if result.IsPresent() {
			q.sp.AddFlag(-1)
			return result
		}
		if timedOut {
			return optional.Empty[T]()
		}
	}
}

// PollBlocking blocks with no deadline until an element is available.
func (q *ConcurrentPriorityQueue[T]) PollBlocking() T {
	for {
		var (
			result T
			ok     bool
		)
		q.sp.WaitFlag(1, func(_ *syncpoint.SyncPoint, _, _, _ bool, _ int) {
			q.c.WriteAtomic(func(h *innerHeap[T]) {
				if h.Len() == 0 {
					return
				}
				result = heap.Pop(h).(entry[T]).value
				ok = true
			})
		})
		if ok {
			q.sp.AddFlag(-1)
			return result
		}
	}
}

// Top blocks until an element is available, then returns a copy of the
// highest-priority element without removing it. Per spec.md §4.4, combine
// with a deadline via Poll if an unbounded wait isn't wanted.
func (q *ConcurrentPriorityQueue[T]) Top() T {
	for {
		var (
			result T
			ok     bool
		)
		q.sp.WaitFlag(1, func(_ *syncpoint.SyncPoint, _, _, _ bool, _ int) {
			q.c.ReadAtomic(func(h innerHeap[T]) {
				if h.Len() == 0 {
					return
				}
				result = h.items[0].value
				ok = true
			})
		})
		if ok {
			return result
		}
	}
}

// PeekTop returns the highest-priority element without removing it and
// without blocking, or ok=false if the queue is currently empty.
func (q *ConcurrentPriorityQueue[T]) PeekTop() (value T, ok bool) {
	q.c.ReadAtomic(func(h innerHeap[T]) {
		if h.Len() == 0 {
			return
		}
		value = h.items[0].value
		ok = true
	})
	return value, ok
}

// Size returns the current element count.
func (q *ConcurrentPriorityQueue[T]) Size() int {
	var n int
	q.c.ReadAtomic(func(h innerHeap[T]) { n = h.Len() })
	return n
}

// Empty reports whether the queue currently holds no elements.
func (q *ConcurrentPriorityQueue[T]) Empty() bool {
	return q.Size() == 0
}

// Clear removes every element and resets the flag to 0.
func (q *ConcurrentPriorityQueue[T]) Clear() {
	q.c.WriteAtomic(func(h *innerHeap[T]) { h.items = h.items[:0] })
	q.sp.Reset()
}
