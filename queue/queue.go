package queue

import (
	"github.com/abstergo/concur/container"
	"github.com/abstergo/concur/duration"
	"github.com/abstergo/concur/lockutil"
	"github.com/abstergo/concur/optional"
	"github.com/abstergo/concur/syncpoint"
)

// ConcurrentQueue is a thread-safe FIFO queue: Push/Pop are O(1), backed by
// a ring buffer rather than a heap, since plain FIFO elements carry no
// priority to sort by.
type ConcurrentQueue[T any] struct {
	c     *container.Container[ringBuffer[T]]
	sp    *syncpoint.SyncPoint
	clock duration.Clock
}

// QueueOption configures a ConcurrentQueue at construction.
type QueueOption func(*queueConfig)

type queueConfig struct {
	lock  lockutil.Exclusive
	clock duration.Clock
}

// WithQueueLock overrides the lock guarding the queue's storage. The
// default is a *lockutil.RWMutex.
func WithQueueLock(lock lockutil.Exclusive) QueueOption {
	return func(c *queueConfig) { c.lock = lock }
}

// WithFIFOClock overrides the Clock used for Poll's deadline math.
func WithFIFOClock(clk duration.Clock) QueueOption {
	return func(c *queueConfig) { c.clock = clk }
}

// NewQueue constructs an empty ConcurrentQueue.
func NewQueue[T any](opts ...QueueOption) *ConcurrentQueue[T] {
	cfg := queueConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.lock == nil {
		cfg.lock = lockutil.NewRWMutex()
	}
	if cfg.clock == nil {
		cfg.clock = duration.NewClock()
	}

	var syncOpts []syncpoint.Option
	syncOpts = append(syncOpts, syncpoint.WithClock(cfg.clock))

	return &ConcurrentQueue[T]{
		c:     container.New(*newRingBuffer[T](), cfg.lock),
		sp:    syncpoint.New(syncOpts...),
		clock: cfg.clock,
	}
}

// Push appends value to the tail and wakes any blocked consumer.
func (q *ConcurrentQueue[T]) Push(value T) {
	q.c.WriteAtomic(func(rb *ringBuffer[T]) { rb.PushBack(value) })
	q.sp.AddFlag(1)
}

// Pop removes and returns the head element without blocking, or ok=false
// if the queue is empty.
func (q *ConcurrentQueue[T]) Pop() (value T, ok bool) {
	q.c.WriteAtomic(func(rb *ringBuffer[T]) { value, ok = rb.PopFront() })
	if ok {
		q.sp.AddFlag(-1)
	}
	return value, ok
}

// Poll blocks until an element is available or timeout elapses, whichever
// comes first, returning an empty Value on timeout. See
// ConcurrentPriorityQueue.Poll for why this retries on spurious wake-ups
// rather than trusting a single post-wake check.
func (q *ConcurrentQueue[T]) Poll(timeout duration.Millis) optional.Value[T] {
	deadline := q.clock.Now().Add(timeout.AsDuration())
	for {
		var (
			result   optional.Value[T]
			timedOut bool
		)
		remaining := duration.Of(deadline.Sub(q.clock.Now()))
		q.sp.WaitFlagTimeout(1, remaining, nil, func(_ *syncpoint.SyncPoint, to, _, _ bool, _ int) {
			timedOut = to
			q.c.WriteAtomic(func(rb *ringBuffer[T]) {
				if v, ok := rb.PopFront(); ok {
					result = optional.Of(v)
				}
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
func (q *ConcurrentQueue[T]) PollBlocking() T {
	for {
		var (
			result T
			ok     bool
		)
		q.sp.WaitFlag(1, func(_ *syncpoint.SyncPoint, _, _, _ bool, _ int) {
			q.c.WriteAtomic(func(rb *ringBuffer[T]) { result, ok = rb.PopFront() })
		})
		if ok {
			q.sp.AddFlag(-1)
			return result
		}
	}
}

// Front blocks until an element is available, then returns a copy of the
// head element without removing it. Per spec.md §4.4, combine with a
// deadline via Poll if an unbounded wait isn't wanted.
func (q *ConcurrentQueue[T]) Front() T {
	for {
		var (
			result T
			ok     bool
		)
		q.sp.WaitFlag(1, func(_ *syncpoint.SyncPoint, _, _, _ bool, _ int) {
			q.c.ReadAtomic(func(rb ringBuffer[T]) { result, ok = rb.Front() })
		})
		if ok {
			return result
		}
	}
}

// PeekFront returns the head element without removing it and without
// blocking, or ok=false if the queue is currently empty.
func (q *ConcurrentQueue[T]) PeekFront() (value T, ok bool) {
	q.c.ReadAtomic(func(rb ringBuffer[T]) { value, ok = rb.Front() })
	return value, ok
}

// Size returns the current element count.
func (q *ConcurrentQueue[T]) Size() int {
	var n int
	q.c.ReadAtomic(func(rb ringBuffer[T]) { n = rb.Len() })
	return n
}

// Empty reports whether the queue currently holds no elements.
func (q *ConcurrentQueue[T]) Empty() bool {
	return q.Size() == 0
}

// Clear removes every element and resets the flag to 0.
func (q *ConcurrentQueue[T]) Clear() {
	q.c.WriteAtomic(func(rb *ringBuffer[T]) { rb.Clear() })
	q.sp.Reset()
}
