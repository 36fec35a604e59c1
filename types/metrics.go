package types

import "sync/atomic"

// This file defines how the cache reports what it is doing.

/*
Metrics is an interface that defines what the cache wants to measure.
Each method represents an event in the cache lifecycle. Both tiers and the
engine call these methods whenever something happens.
*/
type Metrics interface {

	// Hit is called when a lookup is served from either tier.
	Hit()

	// Miss is called when neither tier has a live entry for the key.
	Miss()

	// Eviction is called when a tier drops an entry to satisfy a size or count limit.
	Eviction()

	// Expire is called when an entry is removed because its deadline passed.
	Expire()

	// Promotion is called when a disk hit is copied into the memory tier.
	Promotion()
}

/*
NoopMetrics is a "do nothing" implementation of Metrics, so that users who
do not care about metrics are not forced to write one.
*/
type NoopMetrics struct{}

func (NoopMetrics) Hit()       {}
func (NoopMetrics) Miss()      {}
func (NoopMetrics) Eviction()  {}
func (NoopMetrics) Expire()    {}
func (NoopMetrics) Promotion() {}

// Counters is a lock-free Metrics implementation backed by atomic counters.
type Counters struct {
	hits       atomic.Int64
	misses     atomic.Int64
	evictions  atomic.Int64
	expired    atomic.Int64
	promotions atomic.Int64
}

func (c *Counters) Hit()       { c.hits.Add(1) }
func (c *Counters) Miss()      { c.misses.Add(1) }
func (c *Counters) Eviction()  { c.evictions.Add(1) }
func (c *Counters) Expire()    { c.expired.Add(1) }
func (c *Counters) Promotion() { c.promotions.Add(1) }

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Expired    int64
	Promotions int64
}

// HitRate returns hits / (hits + misses), or 0 before the first lookup.
func (s CounterSnapshot) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Snapshot reads all counters.
func (c *Counters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Expired:    c.expired.Load(),
		Promotions: c.promotions.Load(),
	}
}
