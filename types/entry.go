package types

import "time"

// CacheEntry is one cached value together with its bookkeeping.
// A zero ExpireAt means the entry never expires.
type CacheEntry[T any] struct {
	Key      string
	Value    T
	ExpireAt time.Time
	Cost     int64
}

// Expired reports whether the entry is past its deadline at now.
func (e CacheEntry[T]) Expired(now time.Time) bool {
	return !e.ExpireAt.IsZero() && !now.Before(e.ExpireAt)
}
