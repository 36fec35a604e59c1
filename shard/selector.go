package shard

import "hash/fnv"

/*
This file decides HOW a key is assigned to one of n slots.
The same key must always land in the same slot: per-key locks and the async
worker queues rely on it to keep operations on one key in order.
*/

// Selector maps a key to a slot index in [0, n).
type Selector interface {
	Select(key string, n int) int
}

// FNVSelector hashes keys with 32-bit FNV-1a, a fast non-cryptographic hash.
type FNVSelector struct{}

func hash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// Select chooses the slot for a given key.
func (FNVSelector) Select(key string, n int) int {
	if n <= 1 {
		return 0
	}
	return int(hash(key) % uint32(n))
}
