package cache

import (
	"context"

	"github.com/krisalay/tiered-cache/api"
	"github.com/krisalay/tiered-cache/async"
	"github.com/krisalay/tiered-cache/expiration"
	"github.com/krisalay/tiered-cache/types"
)

var _ api.AsyncStorage[string] = (*AsyncCache[string])(nil)

/*
AsyncCache runs Cache operations on the background executor.

Each call queues the operation on the worker owning its key and returns at once.
Two calls for the same key complete in the order they were made; the second
never observes the cache as it was before the first. Calls for different keys
have no ordering between them.

RemoveAll and RemoveExpired span every key. They wait for all operations queued
before them and hold back those queued after, so Set(k), RemoveAll(), Get(k)
issued in that order always misses.
*/
type AsyncCache[T any] struct {
	c *Cache[T]
}

func (a *AsyncCache[T]) Get(ctx context.Context, key string) *async.Future[T] {
	return async.Go(ctx, a.c.exec, key, func(ctx context.Context) (T, bool, error) {
		return a.c.Get(ctx, key)
	})
}

func (a *AsyncCache[T]) Entry(ctx context.Context, key string) *async.Future[types.CacheEntry[T]] {
	return async.Go(ctx, a.c.exec, key, func(ctx context.Context) (types.CacheEntry[T], bool, error) {
		return a.c.Entry(ctx, key)
	})
}

func (a *AsyncCache[T]) Set(ctx context.Context, key string, value T) *async.Future[struct{}] {
	return async.Go(ctx, a.c.exec, key, func(ctx context.Context) (struct{}, bool, error) {
		return done(a.c.Set(ctx, key, value))
	})
}

func (a *AsyncCache[T]) SetWithExpiry(ctx context.Context, key string, value T, exp expiration.Expiry) *async.Future[struct{}] {
	return async.Go(ctx, a.c.exec, key, func(ctx context.Context) (struct{}, bool, error) {
		return done(a.c.SetWithExpiry(ctx, key, value, exp))
	})
}

func (a *AsyncCache[T]) Exists(ctx context.Context, key string) *async.Future[bool] {
	return async.Go(ctx, a.c.exec, key, func(ctx context.Context) (bool, bool, error) {
		ok := a.c.Exists(ctx, key)
		return ok, ok, nil
	})
}

func (a *AsyncCache[T]) Remove(ctx context.Context, key string) *async.Future[struct{}] {
	return async.Go(ctx, a.c.exec, key, func(ctx context.Context) (struct{}, bool, error) {
		return done(a.c.Remove(ctx, key))
	})
}

func (a *AsyncCache[T]) RemoveAll(ctx context.Context) *async.Future[struct{}] {
	return async.GoAll(ctx, a.c.exec, func(ctx context.Context) (struct{}, bool, error) {
		return done(a.c.RemoveAll(ctx))
	})
}

func (a *AsyncCache[T]) RemoveExpired(ctx context.Context) *async.Future[int] {
	return async.GoAll(ctx, a.c.exec, func(ctx context.Context) (int, bool, error) {
		n, err := a.c.RemoveExpired(ctx)
		return n, err == nil, err
	})
}

func done(err error) (struct{}, bool, error) {
	return struct{}{}, err == nil, err
}
