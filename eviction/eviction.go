package eviction

import (
	"fmt"
	"strings"
)

/*
This file defines how the memory tier decides what to remove when it runs out of room.
*/

/*
Policy is the interface that all eviction strategies must follow.

The memory tier does NOT care how eviction works internally. It reports reads,
writes and removals, and asks for a victim when a count or cost limit would be
exceeded. Policies are not safe for concurrent use; the tier calls them under its
own lock.
*/
type Policy interface {

	// OnGet is called whenever a live key is read.
	OnGet(string)

	// OnPut is called whenever a key is inserted.
	OnPut(string)

	// Remove is called when a key leaves the tier for any reason other than Evict.
	Remove(string)

	// Evict picks the next victim and forgets it. It returns "" when nothing is tracked.
	Evict() string

	// Reset forgets every key.
	Reset()

	// Len returns the number of tracked keys.
	Len() int
}

// PolicyType is a simple identifier for supported eviction strategies.
type PolicyType string

const (
	// LRU (Least Recently Used): evicts the key that has NOT been accessed for the longest time.
	LRU PolicyType = "LRU"

	// LFU (Least Frequently Used): evicts the key read the fewest times, oldest first on ties.
	LFU PolicyType = "LFU"

	// FIFO (First In First Out): evicts the oldest inserted key, regardless of access.
	FIFO PolicyType = "FIFO"
)

// ParsePolicyType accepts a policy name in any letter case. Empty means LRU.
func ParsePolicyType(s string) (PolicyType, error) {
	switch t := PolicyType(strings.ToUpper(strings.TrimSpace(s))); t {
	case "":
		return LRU, nil
	case LRU, LFU, FIFO:
		return t, nil
	default:
		return "", fmt.Errorf("unknown eviction policy %q", s)
	}
}

// UnmarshalText lets PolicyType be read from env and config files.
func (t *PolicyType) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicyType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// NewEvictionPolicy is a small factory function.
// Given a PolicyType, it creates the correct eviction policy.
func NewEvictionPolicy(t PolicyType) Policy {
	switch t {
	case LRU, "":
		return newLRU()
	case LFU:
		return newLFU()
	case FIFO:
		return newFIFO()
	default:
		panic("unknown eviction policy " + string(t))
	}
}
