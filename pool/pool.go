// Package pool implements ThreadPool from spec.md §4.5: a fixed-size
// worker pool that shards tasks across per-worker priority queues,
// creates worker goroutines lazily on submission, tears them down after an
// idle interval, and reports lifecycle events through a user callback.
package pool

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/abstergo/concur/corelog"
	"github.com/abstergo/concur/duration"
	"github.com/abstergo/concur/errs"
	"github.com/abstergo/concur/queue"
)

type state int32

const (
	stateNew state = iota
	stateRunning
	stateStopped
)

const (
	defaultMaxTasksPerWorker = 64
	defaultMaxIdleMillis     = duration.Millis(30_000)
)

// ErrorKind identifies which failure an Error reports, matching the
// original's EXCEPTION_TASK_COUNT_FULL/EXCEPTION_TASK_ERROR signals.
type ErrorKind int

const (
	ErrorKindTaskCountFull ErrorKind = iota
	ErrorKindTaskError
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindTaskCountFull:
		return "task_count_full"
	case ErrorKindTaskError:
		return "task_error"
	default:
		return "unknown"
	}
}

// Error is passed to OnError, carrying which shard raised it alongside
// the underlying cause and task, per spec.md §4.5 and the original's
// error_info{signal, exception, threadIndex}. ThreadIndex is -1 for
// ErrorKindTaskCountFull, since rejection happens before a shard is ever
// chosen.
type Error struct {
	Kind        ErrorKind
	Err         error
	ThreadIndex int
	Task        *Task
}

func (e *Error) Error() string { return e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// OnError is invoked on the worker goroutine whenever a task's callable
// panics, and on the goroutine calling Submit whenever a submission is
// rejected for exceeding capacity. It must not block on pool operations
// that would re-enter the originating shard.
type OnError func(err *Error)

// OnEvent is invoked, on the worker goroutine, for every lifecycle
// transition. It must not block on pool operations that would re-enter
// the originating shard.
type OnEvent func(Event)

// workerShard pairs a worker index with its own priority queue, per
// spec.md §3's WorkerShard.
type workerShard struct {
	index int
	tasks *queue.ConcurrentPriorityQueue[*Task]
}

// Pool is the ThreadPool described in spec.md §4.5. The zero value is not
// usable; construct with New.
type Pool struct {
	name               string
	w                  int
	maxTasksPerWorker  int
	maxIdleThreadCount int // informational only, reserved for future fairness logic
	maxIdleMillis      duration.Millis
	clock              duration.Clock
	logger             corelog.Logger
	onError            OnError
	onEvent            OnEvent

	shards []*workerShard

	state    int32
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu          sync.Mutex
	liveWorkers map[int]struct{}

	inFlight int64
}

// Option configures a Pool at construction.
type Option func(*Pool)

// WithLogger supplies the logger lifecycle and task events are reported
// through. Defaults to corelog.Nop.
func WithLogger(l corelog.Logger) Option {
	return func(p *Pool) { p.logger = corelog.OrNop(l) }
}

// WithClock overrides the Clock used for idle-timeout math, for
// deterministic tests.
func WithClock(clk duration.Clock) Option {
	return func(p *Pool) { p.clock = clk }
}

// WithMaxTasksPerWorker sets the admission threshold: submissions beyond
// maxTasksPerWorker*workerCount in flight are rejected. Defaults to 64.
func WithMaxTasksPerWorker(n int) Option {
	return func(p *Pool) { p.maxTasksPerWorker = n }
}

// WithMaxIdleThreadCount is reserved for future fairness logic; it is
// currently informational only and does not affect behavior.
func WithMaxIdleThreadCount(n int) Option {
	return func(p *Pool) { p.maxIdleThreadCount = n }
}

// WithMaxIdleMillis sets how long a worker blocks on an empty shard
// before exiting. Defaults to 30s.
func WithMaxIdleMillis(d duration.Millis) Option {
	return func(p *Pool) { p.maxIdleMillis = d }
}

// WithOnError supplies the callback tasks and rejected submissions are
// routed through.
func WithOnError(fn OnError) Option {
	return func(p *Pool) { p.onError = fn }
}

// WithOnEvent supplies the lifecycle event callback.
func WithOnEvent(fn OnEvent) Option {
	return func(p *Pool) { p.onEvent = fn }
}

// New constructs a Pool with workerCount fixed worker shards. The pool
// starts in the NEW state; call Start to begin accepting submissions.
func New(name string, workerCount int, opts ...Option) *Pool {
	if workerCount <= 0 {
		panic("pool: workerCount must be positive")
	}

	p := &Pool{
		name:              name,
		w:                 workerCount,
		maxTasksPerWorker: defaultMaxTasksPerWorker,
		maxIdleMillis:     defaultMaxIdleMillis,
		logger:            corelog.Nop,
		liveWorkers:       make(map[int]struct{}, workerCount),
		state:             int32(stateNew),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.clock == nil {
		p.clock = duration.NewClock()
	}

	p.shards = make([]*workerShard, workerCount)
	for i := range p.shards {
		p.shards[i] = &workerShard{
			index: i,
			tasks: queue.NewPriorityQueue(taskPriority, queue.WithQueueClock(p.clock)),
		}
	}

	return p
}

// Start transitions the pool from NEW to RUNNING. Calling Start from any
// other state is a programmer error, reported as PoolAlreadyRunning.
func (p *Pool) Start() error {
	if !atomic.CompareAndSwapInt32(&p.state, int32(stateNew), int32(stateRunning)) {
		return errs.PoolAlreadyRunning
	}
	p.logger.Info(fmt.Sprintf("pool %q started with %d workers", p.name, p.w))
	return nil
}

func (p *Pool) isRunning() bool {
	return atomic.LoadInt32(&p.state) == int32(stateRunning)
}

// Stop transitions the pool to STOPPED, wakes every idle worker, and
// blocks until every worker goroutine has exited. It is idempotent:
// calls after the first are no-ops.
func (p *Pool) Stop() error {
	p.stopOnce.Do(func() {
		atomic.StoreInt32(&p.state, int32(stateStopped))

		p.mu.Lock()
		live := make([]int, 0, len(p.liveWorkers))
		for i := range p.liveWorkers {
			live = append(live, i)
		}
		p.mu.Unlock()

		// push a canceled sentinel per live worker so it wakes immediately
		// rather than waiting out maxIdleMillis.
		for _, i := range live {
			p.shards[i].tasks.Push(&Task{status: int32(StatusCanceled)})
		}

		p.wg.Wait()
		p.logger.Info(fmt.Sprintf("pool %q stopped", p.name))
	})
	return nil
}

// Submit enqueues fn with the given priority. Larger priority values run
// first within a shard. Returns PoolNotRunning if the pool has not been
// started or has been stopped, or TaskCountFull if accepting would exceed
// maxTasksPerWorker*workerCount in-flight tasks.
func (p *Pool) Submit(fn func(), priority int) error {
	if !p.isRunning() {
		return errs.PoolNotRunning
	}

	tc := atomic.AddInt64(&p.inFlight, 1)
	if tc > int64(p.maxTasksPerWorker)*int64(p.w) {
		atomic.AddInt64(&p.inFlight, -1)
		t := newTask(fn, priority)
		if p.onError != nil {
			p.onError(&Error{Kind: ErrorKindTaskCountFull, Err: errs.TaskCountFull, ThreadIndex: -1, Task: t})
		}
		return errs.TaskCountFull
	}

	i := int(tc % int64(p.w))
	p.ensureWorker(i)

	p.shards[i].tasks.Push(newTask(fn, priority))
	return nil
}

// ensureWorker spawns a worker goroutine for shard i if none is live.
func (p *Pool) ensureWorker(i int) {
	p.mu.Lock()
	_, ok := p.liveWorkers[i]
	if !ok {
		p.liveWorkers[i] = struct{}{}
		p.wg.Add(1)
		go p.workerLoop(i)
	}
	p.mu.Unlock()
}

func (p *Pool) workerLoop(i int) {
	defer func() {
		p.mu.Lock()
		delete(p.liveWorkers, i)
		p.mu.Unlock()
		p.wg.Done()
	}()

	shard := p.shards[i]

	for p.isRunning() {
		p.emit(Event{Signal: SignalWaiting, ThreadIndex: i, WorkerCount: p.w, WaitingTasks: int(atomic.LoadInt64(&p.inFlight))})

		result := shard.tasks.Poll(p.maxIdleMillis)
		t, ok := result.Get()
		if !ok {
			// idle timeout: this worker exits, re-created on demand by the
			// next submission to this shard.
			return
		}

		p.emit(Event{Signal: SignalPicked, RunningTask: t, ThreadIndex: i, WorkerCount: p.w, WaitingTasks: int(atomic.LoadInt64(&p.inFlight))})

		if t.Status() == StatusCanceled {
			p.emit(Event{Signal: SignalCanceled, RunningTask: t, ThreadIndex: i, WorkerCount: p.w, WaitingTasks: int(atomic.LoadInt64(&p.inFlight))})
			continue
		}

		p.runTask(i, t)
	}
}

func (p *Pool) runTask(i int, t *Task) {
	defer atomic.AddInt64(&p.inFlight, -1)

	t.setStatus(StatusRunning)
	p.emit(Event{Signal: SignalRunning, RunningTask: t, ThreadIndex: i, WorkerCount: p.w, WaitingTasks: int(atomic.LoadInt64(&p.inFlight))})

	if err := p.invoke(t); err != nil {
		p.logger.Error(fmt.Sprintf("pool %q: task error on worker %d: %v", p.name, i, err))
		if p.onError != nil {
			p.onError(&Error{Kind: ErrorKindTaskError, Err: err, ThreadIndex: i, Task: t})
		}
		return
	}

	t.setStatus(StatusFinished)
	p.emit(Event{Signal: SignalFinished, RunningTask: t, ThreadIndex: i, WorkerCount: p.w, WaitingTasks: int(atomic.LoadInt64(&p.inFlight))})
}

// invoke runs t's callable, recovering a panic into a TaskError so it
// never propagates out of the worker loop.
func (p *Pool) invoke(t *Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errs.TaskError, r)
		}
	}()
	t.callable()
	return nil
}

func (p *Pool) emit(ev Event) {
	if p.onEvent != nil {
		p.onEvent(ev)
	}
}

// InFlight returns the current count of accepted-but-not-yet-finished
// tasks across all shards.
func (p *Pool) InFlight() int {
	return int(atomic.LoadInt64(&p.inFlight))
}
