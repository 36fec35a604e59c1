// This file implements FIFO eviction.

package eviction

import "container/list"

// fifo keeps keys in insertion order. Reads do not affect the order, and
// re-inserting a tracked key keeps its original position.
type fifo struct {
	queue *list.List
	nodes map[string]*list.Element
}

func newFIFO() *fifo {
	return &fifo{queue: list.New(), nodes: make(map[string]*list.Element)}
}

// OnGet is a no-op: FIFO ignores reads completely.
func (f *fifo) OnGet(string) {}

func (f *fifo) OnPut(k string) {
	if _, ok := f.nodes[k]; ok {
		return
	}
	f.nodes[k] = f.queue.PushBack(k)
}

// Evict removes the oldest inserted key.
func (f *fifo) Evict() string {
	e := f.queue.Front()
	if e == nil {
		return ""
	}
	k := f.queue.Remove(e).(string)
	delete(f.nodes, k)
	return k
}

func (f *fifo) Remove(k string) {
	if e, ok := f.nodes[k]; ok {
		f.queue.Remove(e)
		delete(f.nodes, k)
	}
}

func (f *fifo) Reset() {
	f.queue.Init()
	f.nodes = make(map[string]*list.Element)
}

func (f *fifo) Len() int { return len(f.nodes) }
