package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/krisalay/tiered-cache/api"
	"github.com/krisalay/tiered-cache/async"
	"github.com/krisalay/tiered-cache/codec"
	"github.com/krisalay/tiered-cache/config"
	"github.com/krisalay/tiered-cache/disk"
	"github.com/krisalay/tiered-cache/engine"
	"github.com/krisalay/tiered-cache/expiration"
	"github.com/krisalay/tiered-cache/memory"
	"github.com/krisalay/tiered-cache/refresh"
	"github.com/krisalay/tiered-cache/shard"
	"github.com/krisalay/tiered-cache/types"
)

var _ api.Storage[string] = (*Cache[string])(nil)

/*
Cache is the main cache implementation.
This struct is the orchestrator that connects:
  - the memory tier (fast path)
  - the disk tier (source of truth)
  - the engine (clock, default expiry, metrics, logging)
  - per-key locks (ordering of writes to one key)
  - the async executor and the janitor
  - the optional refresh hook
*/
type Cache[T any] struct {
	cfg    config.Config
	engine *engine.Engine

	memory *memory.Tier[T]
	disk   *disk.Tier[T]

	// locks serializes set, remove and promotion per key so a slow writer can
	// never land an older value on top of a newer one.
	locks *shard.Locks

	// sf makes concurrent misses on one key share a single disk read.
	sf singleflight.Group

	exec       *async.Executor
	closeCodec func()

	// detached is the codec used to copy values into memory; nil keeps them by reference.
	detached codec.Codec[T]
	hook       refresh.Hook[T]

	stop      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// Stats is a point-in-time view of both tiers.
type Stats struct {
	StorageLocation string
	MemoryEntries   int
	MemoryCost      int64
	DiskEntries     int
	DiskBytes       int64
}

/*
New builds a cache from cfg. The config is copied; changing it afterwards has no
effect on the cache. The disk tier directory is created if missing and any entries
already in it are indexed.
*/
func New[T any](cfg config.Config, opts ...Option[T]) (*Cache[T], error) {
	cfg, err := cfg.WithDefaults()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions[T]()
	for _, opt := range opts {
		opt(&o)
	}
	eng := engine.New(cfg.DefaultExpiry, o.now, o.metrics, o.logger)

	c := &Cache[T]{
		cfg:    cfg,
		engine: eng,
		locks:  shard.NewLocks(shard.DefaultStripes),
		stop:   make(chan struct{}),
		hook:   o.hook,
	}
	if o.detach {
		c.detached = o.codec
	}

	diskCodec := o.codec
	if cfg.Compression {
		z, err := codec.NewZstd(o.codec, cfg.CompressionLevel)
		if err != nil {
			return nil, err
		}
		diskCodec = z
		c.closeCodec = z.Close
	}

	c.disk, err = disk.Open(cfg.StorageLocation, diskCodec,
		disk.WithMaxBytes(int64(cfg.MaxDiskBytes)),
		disk.WithClock(eng.Now),
		disk.WithMetrics(eng.Metrics),
		disk.WithLogger(eng.Logger),
	)
	if err != nil {
		if c.closeCodec != nil {
			c.closeCodec()
		}
		return nil, err
	}

	c.memory = memory.New[T](
		memory.Limits{CountLimit: int(cfg.MemoryCountLimit), CostLimit: int64(cfg.MemoryCostLimit)},
		memory.WithPolicy(cfg.EvictionPolicy),
		memory.WithClock(eng.Now),
		memory.WithMetrics(eng.Metrics),
	)

	c.exec = async.NewExecutor(cfg.AsyncWorkers, cfg.AsyncQueueSize)

	if cfg.CleanupInterval > 0 {
		c.wg.Add(1)
		go c.janitor(cfg.CleanupInterval)
	}

	eng.Logger.Debug("Cache ready",
		"dir", cfg.StorageLocation,
		"disk_entries", c.disk.Len(),
		"policy", cfg.EvictionPolicy,
		"default_expiry", cfg.DefaultExpiry,
	)
	return c, nil
}

// Get returns the value stored under key. (zero, false, nil) means absent.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool, error) {
	ent, ok, err := c.Entry(ctx, key)
	return ent.Value, ok, err
}

type loaded[T any] struct {
	entry types.CacheEntry[T]
	found bool
}

// Entry returns the value with its deadline and cost.
func (c *Cache[T]) Entry(ctx context.Context, key string) (types.CacheEntry[T], bool, error) {
	if err := check(ctx, "get", key); err != nil {
		return types.CacheEntry[T]{}, false, err
	}

	// Fast path: memory hit
	if ent, ok := c.memory.Entry(key); ok {
		c.engine.OnLookup(true)
		c.onRead(key, ent)
		return ent, true, nil
	}

	/*
		singleflight ensures that if many goroutines miss the same key at once,
		only ONE of them reads the file. The others wait for its result.
	*/
	v, err, _ := c.sf.Do(key, func() (any, error) {
		return c.load(key)
	})
	if err != nil {
		return types.CacheEntry[T]{}, false, err
	}
	res := v.(loaded[T])
	c.engine.OnLookup(res.found)
	if res.found {
		c.onRead(key, res.entry)
	}
	return res.entry, res.found, nil
}

func (c *Cache[T]) onRead(key string, ent types.CacheEntry[T]) {
	if c.hook != nil {
		c.hook.OnRead(key, ent)
	}
}

// load reads key from disk and promotes a hit into memory.
func (c *Cache[T]) load(key string) (loaded[T], error) {
	unlock := c.locks.Lock(key)
	defer unlock()

	ent, ok, err := c.disk.Entry(key)
	if err != nil {
		return loaded[T]{}, types.NewError(types.ErrCacheRead, "get", key, err)
	}
	if !ok {
		return loaded[T]{}, nil
	}

	// Promotion is best-effort: a value that does not fit in memory is still returned.
	if err := c.memory.Set(key, ent.Value, ent.Cost, ent.ExpireAt); err != nil {
		c.engine.Swallow("promote", key, err)
	} else {
		c.engine.Metrics.Promotion()
	}
	return loaded[T]{entry: ent, found: true}, nil
}

/*
Set stores value under key with the configured default expiry.

The memory tier keeps value itself, not a copy. For slice, map or pointer types the
caller must not modify value after Set, nor modify what Get returns, or memory and
disk will disagree. WithDetachedValues makes memory keep a decoded copy instead.
*/
func (c *Cache[T]) Set(ctx context.Context, key string, value T) error {
	return c.set(ctx, key, value, nil)
}

// SetWithExpiry stores value under key with an explicit expiry.
func (c *Cache[T]) SetWithExpiry(ctx context.Context, key string, value T, exp expiration.Expiry) error {
	return c.set(ctx, key, value, &exp)
}

func (c *Cache[T]) set(ctx context.Context, key string, value T, exp *expiration.Expiry) error {
	if err := check(ctx, "set", key); err != nil {
		return err
	}

	evicted, err := c.write(key, value, c.engine.Deadline(exp))
	if err != nil {
		return err
	}
	c.forget(evicted)
	return nil
}

// write stores key in both tiers under key's lock and returns the keys the disk
// tier evicted to make room.
func (c *Cache[T]) write(key string, value T, deadline time.Time) ([]string, error) {
	unlock := c.locks.Lock(key)
	defer unlock()

	// Disk first. If it fails, memory is never touched.
	cost, evicted, err := c.disk.Set(key, value, deadline)
	if err != nil {
		return nil, types.NewError(types.ErrCacheWrite, "set", key, err)
	}

	if c.detached != nil {
		if value, err = c.detach(value); err != nil {
			c.memory.Remove(key)
			c.engine.Swallow("set", key, err)
			return evicted, nil
		}
	}

	// Memory is an accelerator. Its failure leaves the disk write standing; the tier
	// has already dropped any older copy of key, so it cannot serve a stale value.
	if err := c.memory.Set(key, value, cost, deadline); err != nil {
		c.engine.Swallow("set", key, err)
	}
	return evicted, nil
}

// detach round-trips value through the codec so memory shares nothing with the caller.
func (c *Cache[T]) detach(value T) (T, error) {
	b, err := c.detached.Encode(value)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.detached.Decode(b)
}

/*
forget drops keys the disk tier evicted from memory, so memory never serves a
value disk no longer holds. Each key is handled under its own lock, taken only
after the writer's lock is released, and is skipped if a newer write already put
it back on disk.
*/
func (c *Cache[T]) forget(keys []string) {
	for _, key := range keys {
		unlock := c.locks.Lock(key)
		if !c.disk.Exists(key) {
			c.memory.Remove(key)
		}
		unlock()
	}
}

// Exists reports whether key is live in either tier.
func (c *Cache[T]) Exists(ctx context.Context, key string) bool {
	if check(ctx, "exists", key) != nil {
		return false
	}
	return c.memory.Exists(key) || c.disk.Exists(key)
}

// Remove deletes key from both tiers.
func (c *Cache[T]) Remove(ctx context.Context, key string) error {
	if err := check(ctx, "remove", key); err != nil {
		return err
	}

	unlock := c.locks.Lock(key)
	defer unlock()

	// Memory goes first: if the disk delete fails, the next read reloads from disk.
	c.memory.Remove(key)
	return c.disk.Remove(key)
}

// RemoveAll clears memory, then disk.
func (c *Cache[T]) RemoveAll(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unlock := c.locks.LockAll()
	defer unlock()

	c.memory.RemoveAll()
	return c.disk.RemoveAll()
}

// RemoveExpired sweeps expired entries from disk and returns how many were deleted.
func (c *Cache[T]) RemoveExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return c.disk.RemoveExpired()
}

// Stats reports entry counts and sizes of both tiers.
func (c *Cache[T]) Stats() Stats {
	return Stats{
		StorageLocation: c.cfg.StorageLocation,
		MemoryEntries:   c.memory.Len(),
		MemoryCost:      c.memory.Cost(),
		DiskEntries:     c.disk.Len(),
		DiskBytes:       c.disk.Size(),
	}
}

// Config returns a copy of the configuration the cache was built with.
func (c *Cache[T]) Config() config.Config { return c.cfg }

// Async returns the non-blocking view of this cache.
func (c *Cache[T]) Async() *AsyncCache[T] { return &AsyncCache[T]{c: c} }

/*
Close stops the janitor, drains queued async operations and releases codec
resources. Entries stay on disk. The cache must not be used after Close; async
submissions fail with types.ErrClosed.
*/
func (c *Cache[T]) Close() error {
	c.closeOnce.Do(func() {
		close(c.stop)
		c.wg.Wait()
		c.exec.Close()
		if c.closeCodec != nil {
			c.closeCodec()
		}
	})
	return nil
}

// janitor periodically removes expired entries from both tiers.
func (c *Cache[T]) janitor(interval time.Duration) {
	defer c.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.stop:
			return
		}
	}
}

func (c *Cache[T]) sweep() {
	removed, err := c.disk.RemoveExpired()
	dropped := c.memory.RemoveExpired()
	if err != nil {
		c.engine.Logger.Warn("Expired sweep incomplete", "removed", removed, "err", err)
		return
	}
	if removed > 0 || dropped > 0 {
		c.engine.Logger.Debug("Expired sweep", "disk", removed, "memory", dropped)
	}
}

func check(ctx context.Context, op, key string) error {
	if key == "" {
		return types.NewError(types.ErrInvalidKey, op, key, nil)
	}
	return ctx.Err()
}
