package shard

import "sync"

/*
Locks is a fixed set of mutexes striped by key.

Instead of one mutex per key (which would need its own map and cleanup) or one
global mutex (which would serialize unrelated keys), every key hashes onto one
stripe. Two writers of the same key always contend on the same stripe; writers of
different keys usually do not.
*/
type Locks struct {
	stripes  []sync.Mutex
	selector Selector
}

// DefaultStripes is used when NewLocks is given a non-positive count.
const DefaultStripes = 64

func NewLocks(n int) *Locks {
	if n <= 0 {
		n = DefaultStripes
	}
	return &Locks{stripes: make([]sync.Mutex, n), selector: FNVSelector{}}
}

// Lock acquires the stripe owning key and returns the matching unlock func.
func (l *Locks) Lock(key string) (unlock func()) {
	mu := &l.stripes[l.selector.Select(key, len(l.stripes))]
	mu.Lock()
	return mu.Unlock
}

// Len returns the number of stripes.
func (l *Locks) Len() int { return len(l.stripes) }

// LockAll acquires every stripe in order, for operations that span all keys.
func (l *Locks) LockAll() (unlock func()) {
	for i := range l.stripes {
		l.stripes[i].Lock()
	}
	return func() {
		for i := len(l.stripes) - 1; i >= 0; i-- {
			l.stripes[i].Unlock()
		}
	}
}
