// Package memory implements the in-process tier of the cache.
package memory

import (
	"sync"
	"time"

	"github.com/krisalay/tiered-cache/eviction"
	"github.com/krisalay/tiered-cache/expiration"
	"github.com/krisalay/tiered-cache/types"
)

/*
Tier is a bounded map of live values.

Limits:
  - CountLimit caps the number of entries (0 = unlimited)
  - CostLimit caps the summed entry cost (0 = unlimited)

When an insert would break either limit, victims chosen by the eviction policy are
removed one at a time, re-checking both limits after each removal, until the new
entry fits. Expired entries are removed lazily when they are next looked up.

A single RWMutex guards the table and the policy. Reads that update recency take
the write side, because the policy is mutated on every hit.
*/
type Tier[T any] struct {
	mu      sync.RWMutex
	items   map[string]*types.CacheEntry[T]
	policy  eviction.Policy
	cost    int64
	limits  Limits
	now     func() time.Time
	metrics types.Metrics
}

// Limits bounds the tier. Zero values disable a bound.
type Limits struct {
	CountLimit int
	CostLimit  int64
}

// Option customizes a Tier.
type Option func(*options)

type options struct {
	policy  eviction.PolicyType
	now     func() time.Time
	metrics types.Metrics
}

// WithPolicy selects the eviction policy. LRU is the default.
func WithPolicy(t eviction.PolicyType) Option { return func(o *options) { o.policy = t } }

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }

// WithMetrics reports evictions and expirations.
func WithMetrics(m types.Metrics) Option { return func(o *options) { o.metrics = m } }

func New[T any](limits Limits, opts ...Option) *Tier[T] {
	o := options{policy: eviction.LRU, now: time.Now, metrics: types.NoopMetrics{}}
	for _, opt := range opts {
		opt(&o)
	}
	return &Tier[T]{
		items:   make(map[string]*types.CacheEntry[T]),
		policy:  eviction.NewEvictionPolicy(o.policy),
		limits:  limits,
		now:     o.now,
		metrics: o.metrics,
	}
}

// Get returns the live value for key and marks it as used.
func (t *Tier[T]) Get(key string) (T, bool) {
	ent, ok := t.Entry(key)
	return ent.Value, ok
}

// Entry is Get with the entry metadata.
func (t *Tier[T]) Entry(key string) (types.CacheEntry[T], bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ent, ok := t.items[key]
	if !ok {
		return types.CacheEntry[T]{}, false
	}
	if ent.Expired(t.now()) {
		t.removeLocked(key)
		t.metrics.Expire()
		return types.CacheEntry[T]{}, false
	}
	t.policy.OnGet(key)
	return *ent, true
}

/*
Set inserts or replaces key.

cost is the entry's weight against CostLimit; callers pass the encoded size.
deadline is the resolved expiry (zero = never).

An entry heavier than CostLimit can never fit. It is rejected with
types.ErrItemTooLarge and any previous value under key is dropped, so the tier never
serves an older value than the one the caller just tried to store.
*/
func (t *Tier[T]) Set(key string, value T, cost int64, deadline time.Time) error {
	if cost < 0 {
		cost = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[key]; ok {
		t.removeLocked(key)
	}

	if t.limits.CostLimit > 0 && cost > t.limits.CostLimit {
		return types.NewError(types.ErrItemTooLarge, "memory set", key, nil)
	}

	for t.overLimit(1, cost) {
		victim := t.policy.Evict()
		if victim == "" {
			break
		}
		t.dropLocked(victim)
		t.metrics.Eviction()
	}

	t.items[key] = &types.CacheEntry[T]{Key: key, Value: value, ExpireAt: deadline, Cost: cost}
	t.cost += cost
	t.policy.OnPut(key)
	return nil
}

// Exists reports whether key holds a live entry. It does not affect recency.
func (t *Tier[T]) Exists(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ent, ok := t.items[key]
	return ok && !expiration.IsExpired(ent.ExpireAt, t.now())
}

// Remove deletes key. Removing a missing key is a no-op.
func (t *Tier[T]) Remove(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.items[key]; ok {
		t.removeLocked(key)
	}
}

// RemoveAll empties the tier.
func (t *Tier[T]) RemoveAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.items = make(map[string]*types.CacheEntry[T])
	t.policy.Reset()
	t.cost = 0
}

// RemoveExpired drops every expired entry and returns how many were dropped.
func (t *Tier[T]) RemoveExpired() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	removed := 0
	for key, ent := range t.items {
		if ent.Expired(now) {
			t.removeLocked(key)
			t.metrics.Expire()
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, expired ones included until swept.
func (t *Tier[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Cost returns the summed cost of stored entries.
func (t *Tier[T]) Cost() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cost
}

func (t *Tier[T]) overLimit(extraCount int, extraCost int64) bool {
	if t.limits.CountLimit > 0 && len(t.items)+extraCount > t.limits.CountLimit {
		return true
	}
	return t.limits.CostLimit > 0 && t.cost+extraCost > t.limits.CostLimit
}

// removeLocked drops key from both the table and the policy. Must hold mu.
func (t *Tier[T]) removeLocked(key string) {
	t.policy.Remove(key)
	t.dropLocked(key)
}

// dropLocked drops key from the table only; used after the policy already forgot it.
func (t *Tier[T]) dropLocked(key string) {
	if ent, ok := t.items[key]; ok {
		t.cost -= ent.Cost
		delete(t.items, key)
	}
}
