package db

import (
	"skabillium/memo/deque"
)

// PriorityQueue pops the item with the lowest priority value first and
// is first in, first out among items of equal priority. Each priority
// has its own deque in the database's shared slab.
type PriorityQueue struct {
	Length  int
	order   priorities
	buckets map[int]*deque.Deque[string]
}

func NewPriorityQueue() *PriorityQueue {
	return &PriorityQueue{buckets: make(map[int]*deque.Deque[string])}
}

func (p *PriorityQueue) Enqueue(nodes deque.IndexMap[string], data string, priority int) {
	bucket, found := p.buckets[priority]
	if !found {
		bucket = deque.New[string]()
		p.buckets[priority] = bucket
		p.order.push(priority)
	}
	bucket.PushBack(nodes, data)
	p.Length++
}

func (p *PriorityQueue) Dequeue(nodes deque.IndexMap[string]) (string, bool) {
	priority, ok := p.order.peek()
	if !ok {
		return "", false
	}

	bucket := p.buckets[priority]
	data := bucket.PopFrontUnchecked(nodes)
	if bucket.Len() == 0 {
		delete(p.buckets, priority)
		p.order.pop()
	}
	p.Length--
	return data, true
}

func (p *PriorityQueue) Peek(nodes deque.IndexMap[string]) (string, bool) {
	priority, ok := p.order.peek()
	if !ok {
		return "", false
	}
	return *p.buckets[priority].Get(nodes, p.buckets[priority].First()), true
}

// Clear frees every queued item.
func (p *PriorityQueue) Clear(nodes deque.IndexMap[string]) {
	for _, bucket := range p.buckets {
		bucket.Clear(nodes)
	}
	clear(p.buckets)
	p.order = p.order[:0]
	p.Length = 0
}
