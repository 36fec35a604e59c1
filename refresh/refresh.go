// This file defines the idea of a "refresh hook".
// This hook allows the cache to do something extra WHEN data is read from the cache.
// The goal of refresh is: "Keep data fresh without slowing down reads"

package refresh

import (
	"time"

	"github.com/krisalay/tiered-cache/types"
)

/*
Hook is the interface for refresh behavior.
If a refresh hook is configured, it will be called every time a live entry is
returned by a lookup, whichever tier served it.

This gives us a chance to:
  - Check if the entry is about to expire
  - Trigger a background refresh
  - Log access patterns

The cache itself does NOT care what the hook does.
It just calls OnRead and moves on.
*/
type Hook[T any] interface {

	/*
		OnRead is called after a successful cache read.
		This method MUST be fast and non blocking because this method runs on the hot read path.
		Blocking here would slow down every cache read.
	*/
	OnRead(key string, ent types.CacheEntry[T])
}

// HookFunc adapts a plain function to Hook.
type HookFunc[T any] func(key string, ent types.CacheEntry[T])

func (f HookFunc[T]) OnRead(key string, ent types.CacheEntry[T]) { f(key, ent) }

// BeforeExpiry calls fn when a read returns an entry that expires within window.
// Entries that never expire are ignored. now may be nil to use time.Now.
func BeforeExpiry[T any](window time.Duration, now func() time.Time, fn func(key string, ent types.CacheEntry[T])) Hook[T] {
	if now == nil {
		now = time.Now
	}
	return HookFunc[T](func(key string, ent types.CacheEntry[T]) {
		if ent.ExpireAt.IsZero() {
			return
		}
		if ent.ExpireAt.Sub(now()) <= window {
			fn(key, ent)
		}
	})
}
