package async

import (
	"context"
	"sync"
)

/*
Result is what an asynchronous operation delivers: either a value (Found tells
whether the key existed, for lookups) or an error.
*/
type Result[V any] struct {
	Value V
	Found bool
	Err   error
}

// Ok reports whether the operation succeeded.
func (r Result[V]) Ok() bool { return r.Err == nil }

// Future is a handle on a result that becomes available exactly once.
type Future[V any] struct {
	done chan struct{}
	once sync.Once
	res  Result[V]
}

func newFuture[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

func (f *Future[V]) complete(r Result[V]) {
	f.once.Do(func() {
		f.res = r
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[V]) Done() <-chan struct{} { return f.done }

/*
Await blocks until the result is ready or ctx ends. Ending ctx only stops the
wait: an operation already running is allowed to finish and its result is dropped.
*/
func (f *Future[V]) Await(ctx context.Context) Result[V] {
	select {
	case <-f.done:
		return f.res
	case <-ctx.Done():
		return Result[V]{Err: ctx.Err()}
	}
}

// Result returns the result without blocking; ok is false while still pending.
func (f *Future[V]) Result() (Result[V], bool) {
	select {
	case <-f.done:
		return f.res, true
	default:
		return Result[V]{}, false
	}
}

// OnComplete calls fn with the result on its own goroutine once it is ready.
func (f *Future[V]) OnComplete(fn func(Result[V])) {
	go func() {
		<-f.done
		fn(f.res)
	}()
}

/*
Go runs op on the worker owning key and returns its Future.

If ctx has already ended when the worker picks the task up, op is skipped and the
Future carries ctx.Err(). If the task cannot be queued, the Future completes with
the submission error.
*/
func Go[V any](ctx context.Context, e *Executor, key string, op func(context.Context) (V, bool, error)) *Future[V] {
	f := newFuture[V]()
	task := func() {
		if err := ctx.Err(); err != nil {
			f.complete(Result[V]{Err: err})
			return
		}
		v, found, err := op(ctx)
		f.complete(Result[V]{Value: v, Found: found, Err: err})
	}
	if err := e.Submit(ctx, key, task); err != nil {
		f.complete(Result[V]{Err: err})
	}
	return f
}

// GoAll is Go for operations that span every key. op runs behind a barrier on all
// workers, ordered after everything submitted before it. See Executor.SubmitAll.
func GoAll[V any](ctx context.Context, e *Executor, op func(context.Context) (V, bool, error)) *Future[V] {
	f := newFuture[V]()
	task := func() {
		if err := ctx.Err(); err != nil {
			f.complete(Result[V]{Err: err})
			return
		}
		v, found, err := op(ctx)
		f.complete(Result[V]{Value: v, Found: found, Err: err})
	}
	if err := e.SubmitAll(ctx, task); err != nil {
		f.complete(Result[V]{Err: err})
	}
	return f
}
