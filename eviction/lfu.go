// This file implements LFU eviction.

package eviction

import "container/list"

// lfuNode represents one key tracked by LFU.
type lfuNode struct {
	key  string
	freq int
	elem *list.Element // position inside its frequency bucket
}

/*
lfu groups keys into buckets by access count. Each bucket is a list in insertion
order, so ties are broken by age: the oldest key with the lowest count goes first.
minFreq tracks the lowest non-empty bucket so eviction never scans.
*/
type lfu struct {
	nodes   map[string]*lfuNode
	buckets map[int]*list.List
	minFreq int
}

func newLFU() *lfu {
	return &lfu{
		nodes:   make(map[string]*lfuNode),
		buckets: make(map[int]*list.List),
	}
}

func (l *lfu) OnGet(k string) {
	n, ok := l.nodes[k]
	if !ok {
		return
	}
	l.unlink(n)
	if l.minFreq == n.freq && l.buckets[n.freq] == nil {
		l.minFreq++
	}
	n.freq++
	l.link(n)
}

// OnPut starts a new key at frequency 1. Tracked keys are left alone.
func (l *lfu) OnPut(k string) {
	if _, ok := l.nodes[k]; ok {
		return
	}
	n := &lfuNode{key: k, freq: 1}
	l.nodes[k] = n
	l.link(n)
	l.minFreq = 1
}

// Evict removes the oldest key among those with the lowest frequency.
func (l *lfu) Evict() string {
	if len(l.nodes) == 0 {
		return ""
	}
	b := l.buckets[l.minFreq]
	for b == nil {
		// minFreq can go stale after Remove; walk up to the next live bucket.
		l.minFreq++
		b = l.buckets[l.minFreq]
	}
	n := b.Front().Value.(*lfuNode)
	l.unlink(n)
	delete(l.nodes, n.key)
	return n.key
}

func (l *lfu) Remove(k string) {
	n, ok := l.nodes[k]
	if !ok {
		return
	}
	l.unlink(n)
	delete(l.nodes, k)
	if len(l.nodes) == 0 {
		l.minFreq = 0
	}
}

func (l *lfu) Reset() {
	l.nodes = make(map[string]*lfuNode)
	l.buckets = make(map[int]*list.List)
	l.minFreq = 0
}

func (l *lfu) Len() int { return len(l.nodes) }

func (l *lfu) link(n *lfuNode) {
	b := l.buckets[n.freq]
	if b == nil {
		b = list.New()
		l.buckets[n.freq] = b
	}
	n.elem = b.PushBack(n)
}

// unlink drops n from its bucket and deletes the bucket once empty.
func (l *lfu) unlink(n *lfuNode) {
	b := l.buckets[n.freq]
	b.Remove(n.elem)
	if b.Len() == 0 {
		delete(l.buckets, n.freq)
	}
}
