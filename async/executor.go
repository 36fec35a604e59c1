// Package async runs cache operations on background workers.
package async

import (
	"context"
	"sync"

	"github.com/krisalay/tiered-cache/shard"
	"github.com/krisalay/tiered-cache/types"
)

/*
Executor is a fixed pool of workers, each draining its own FIFO queue.

Every task is submitted with a key, and the key decides the queue. Tasks for the
same key therefore run one after another, in submission order, while tasks for
different keys spread across workers and run concurrently.

Queues are buffered. When a queue is full, Submit blocks until there is room or
the caller's context ends. Tasks are never dropped once accepted.
*/
type Executor struct {
	queues   []chan func()
	selector shard.Selector

	// mu guards closed so Submit never sends on a closed queue.
	mu     sync.RWMutex
	closed bool

	// barrierMu keeps SubmitAll barriers in the same order on every queue.
	barrierMu sync.Mutex

	wg sync.WaitGroup
}

// Defaults used when NewExecutor gets non-positive sizes.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256
)

// NewExecutor starts workers goroutines, each with a queue of queueSize.
func NewExecutor(workers, queueSize int) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	e := &Executor{
		queues:   make([]chan func(), workers),
		selector: shard.FNVSelector{},
	}
	for i := range e.queues {
		e.queues[i] = make(chan func(), queueSize)
		e.wg.Add(1)
		go e.worker(e.queues[i])
	}
	return e
}

func (e *Executor) worker(q <-chan func()) {
	defer e.wg.Done()
	for task := range q {
		task()
	}
}

/*
Submit queues task on the worker owning key.
It returns types.ErrClosed after Close, or ctx.Err() if ctx ends while the queue is full.
*/
func (e *Executor) Submit(ctx context.Context, key string, task func()) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return types.ErrClosed
	}
	q := e.queues[e.selector.Select(key, len(e.queues))]
	select {
	case q <- task:
		return nil
	default:
	}
	select {
	case q <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

/*
SubmitAll runs task once every worker has finished the work queued before it, and
holds every worker until task returns. Tasks submitted to any key before SubmitAll
therefore complete first, and tasks submitted after it start later.

It returns types.ErrClosed after Close, or ctx.Err() if ctx ends while a queue is
full. On error task never runs.
*/
func (e *Executor) SubmitAll(ctx context.Context, task func()) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.closed {
		return types.ErrClosed
	}

	e.barrierMu.Lock()
	defer e.barrierMu.Unlock()

	var arrived sync.WaitGroup
	arrived.Add(len(e.queues))
	release := make(chan struct{})
	barrier := func() {
		arrived.Done()
		<-release
	}

	for i, q := range e.queues {
		select {
		case q <- barrier:
		case <-ctx.Done():
			// Let the workers already parked on the barrier go.
			arrived.Add(-(len(e.queues) - i))
			close(release)
			return ctx.Err()
		}
	}

	go func() {
		arrived.Wait()
		defer close(release)
		task()
	}()
	return nil
}

/*
Close stops accepting work, lets the workers drain what was already queued, and
waits for them. Calling Close more than once is safe.
*/
func (e *Executor) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	for _, q := range e.queues {
		close(q)
	}
	e.mu.Unlock()

	e.wg.Wait()
}

// Workers returns the number of worker goroutines.
func (e *Executor) Workers() int { return len(e.queues) }
