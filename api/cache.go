package api

import (
	"context"

	"github.com/krisalay/tiered-cache/async"
	"github.com/krisalay/tiered-cache/expiration"
	"github.com/krisalay/tiered-cache/types"
)

/*
Storage defines the PUBLIC synchronous API of the tiered cache.
Tiers, locking, promotion and eviction are hidden behind it.

Every blocking call takes a context. The context is checked before any disk I/O
starts; an I/O call already in progress is not interrupted.
*/
type Storage[T any] interface {

	/*
		Get returns the value stored under key.

		BEHAVIOR:
		---------
		1. Memory hit: return immediately
		2. Memory miss, disk hit: copy the value into memory, then return it
		3. Miss in both: return (zero, false, nil). Absence is NOT an error.

		An error means the entry exists but could not be read or decoded.
	*/
	Get(ctx context.Context, key string) (T, bool, error)

	// Entry is Get plus the entry's deadline and cost.
	Entry(ctx context.Context, key string) (types.CacheEntry[T], bool, error)

	/*
		Set stores value under key with the cache's default expiry.

		BEHAVIOR:
		---------
		- Disk is written first. If that fails, Set returns an error matching
		  types.ErrCacheWrite and memory is left untouched.
		- Memory is then updated on a best-effort basis. A memory failure is
		  logged and does not fail the call.
		- Memory keeps value itself unless the cache copies it. Callers must not
		  modify a stored slice, map or pointer afterwards.
	*/
	Set(ctx context.Context, key string, value T) error

	// SetWithExpiry is Set with an explicit expiry.
	SetWithExpiry(ctx context.Context, key string, value T, exp expiration.Expiry) error

	// Exists reports whether key is live in either tier.
	Exists(ctx context.Context, key string) bool

	/*
		Remove deletes key from both tiers.
		It succeeds when the disk deletion succeeds, including when the key was absent.
	*/
	Remove(ctx context.Context, key string) error

	/*
		RemoveAll clears memory, then disk. It is NOT atomic across tiers: if it stops
		between the two, disk remains the source of truth and memory refills lazily.
		Calling it on an empty cache is a no-op.
	*/
	RemoveAll(ctx context.Context) error

	/*
		RemoveExpired sweeps the disk tier for expired entries and returns how many were
		deleted. Memory expires lazily on access and is not swept.
	*/
	RemoveExpired(ctx context.Context) (int, error)
}

/*
AsyncStorage mirrors Storage, but every call returns immediately with a Future.

Operations on the same key complete in submission order. Operations on different
keys may run concurrently. RemoveAll and RemoveExpired are ordered against every
key: they run after everything submitted before them and before anything after.
*/
type AsyncStorage[T any] interface {
	Get(ctx context.Context, key string) *async.Future[T]
	Entry(ctx context.Context, key string) *async.Future[types.CacheEntry[T]]
	Set(ctx context.Context, key string, value T) *async.Future[struct{}]
	SetWithExpiry(ctx context.Context, key string, value T, exp expiration.Expiry) *async.Future[struct{}]
	Exists(ctx context.Context, key string) *async.Future[bool]
	Remove(ctx context.Context, key string) *async.Future[struct{}]
	RemoveAll(ctx context.Context) *async.Future[struct{}]
	RemoveExpired(ctx context.Context) *async.Future[int]
}
