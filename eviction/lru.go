// This file implements LRU eviction.

package eviction

import "container/list"

// lru keeps keys in a list ordered by recency: front is the most recently used,
// back is the next victim. The map gives O(1) access to a key's element.
type lru struct {
	order *list.List
	nodes map[string]*list.Element
}

func newLRU() *lru {
	return &lru{order: list.New(), nodes: make(map[string]*list.Element)}
}

// OnGet marks a key as the most recently used.
func (l *lru) OnGet(k string) {
	if e, ok := l.nodes[k]; ok {
		l.order.MoveToFront(e)
	}
}

// OnPut tracks a new key as the most recently used. A known key is only refreshed.
func (l *lru) OnPut(k string) {
	if e, ok := l.nodes[k]; ok {
		l.order.MoveToFront(e)
		return
	}
	l.nodes[k] = l.order.PushFront(k)
}

// Evict removes the least recently used key. That key is always at the back of the list.
func (l *lru) Evict() string {
	e := l.order.Back()
	if e == nil {
		return ""
	}
	k := l.order.Remove(e).(string)
	delete(l.nodes, k)
	return k
}

func (l *lru) Remove(k string) {
	if e, ok := l.nodes[k]; ok {
		l.order.Remove(e)
		delete(l.nodes, k)
	}
}

func (l *lru) Reset() {
	l.order.Init()
	l.nodes = make(map[string]*list.Element)
}

func (l *lru) Len() int { return len(l.nodes) }
