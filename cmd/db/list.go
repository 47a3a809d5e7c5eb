package db

import (
	"skabillium/memo/deque"
)

// List is a list of strings whose nodes live in a slab shared with the
// other lists and queues of a Database. Every method takes that slab.
type List struct {
	d deque.Deque[string]
}

func NewList() *List {
	return &List{}
}

// Len returns the number of items in the list.
func (l *List) Len() int {
	return l.d.Len()
}

// Prepend pushes values onto the head one at a time, so the last value
// ends up first.
func (l *List) Prepend(nodes deque.IndexMap[string], values ...string) int {
	for _, v := range values {
		l.d.PushFront(nodes, v)
	}
	return l.d.Len()
}

// Append pushes values onto the tail in order.
func (l *List) Append(nodes deque.IndexMap[string], values ...string) int {
	for _, v := range values {
		l.d.PushBack(nodes, v)
	}
	return l.d.Len()
}

func (l *List) PopHead(nodes deque.IndexMap[string]) (string, bool) {
	return l.d.PopFront(nodes)
}

func (l *List) PopTail(nodes deque.IndexMap[string]) (string, bool) {
	return l.d.PopBack(nodes)
}

// Range returns the items between start and stop inclusive. Negative
// offsets count from the tail, -1 being the last item.
func (l *List) Range(nodes deque.IndexMap[string], start, stop int) []string {
	start, stop, ok := l.bounds(start, stop)
	if !ok {
		return []string{}
	}

	out := make([]string, 0, stop-start+1)
	i := 0
	for v := range l.d.All(nodes) {
		if i > stop {
			break
		}
		if i >= start {
			out = append(out, v)
		}
		i++
	}
	return out
}

func (l *List) bounds(start, stop int) (int, int, bool) {
	n := l.d.Len()
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}

// Index returns the item at index, walking from whichever end is nearer.
func (l *List) Index(nodes deque.IndexMap[string], index int) (string, bool) {
	h := l.handleAt(nodes, index)
	if h == deque.Nil {
		return "", false
	}
	return *l.d.Get(nodes, h), true
}

func (l *List) handleAt(nodes deque.IndexMap[string], index int) deque.Handle {
	n := l.d.Len()
	if index < 0 {
		index += n
	}
	if index < 0 || index >= n {
		return deque.Nil
	}

	if index <= n/2 {
		h := l.d.First()
		for ; index > 0; index-- {
			h = nodes.Get(h).Next
		}
		return h
	}
	h := l.d.Last()
	for i := n - 1; i > index; i-- {
		h = nodes.Get(h).Prev
	}
	return h
}

// Insert adds value next to the first item equal to pivot. It returns
// the new length, or -1 when pivot is not in the list.
func (l *List) Insert(nodes deque.IndexMap[string], before bool, pivot, value string) int {
	for h, v := range l.d.Handles(nodes) {
		if v != pivot {
			continue
		}
		if before {
			l.d.InsertBefore(nodes, value, h)
		} else {
			l.d.InsertAfter(nodes, value, h)
		}
		return l.d.Len()
	}
	return -1
}

// Remove deletes items equal to value and returns how many went. A
// positive count removes at most count items starting at the head, a
// negative one starts at the tail, zero removes them all.
func (l *List) Remove(nodes deque.IndexMap[string], count int, value string) int {
	removed := 0
	if count >= 0 {
		for h, v := range l.d.Handles(nodes) {
			if v != value {
				continue
			}
			l.d.Remove(nodes, h)
			removed++
			if removed == count {
				break
			}
		}
		return removed
	}

	for h := l.d.Last(); h != deque.Nil; {
		node := nodes.Get(h)
		prev := node.Prev
		if node.Elem == value {
			l.d.Remove(nodes, h)
			removed++
			if removed == -count {
				break
			}
		}
		h = prev
	}
	return removed
}

// Clear frees every node of the list.
func (l *List) Clear(nodes deque.IndexMap[string]) {
	l.d.Clear(nodes)
}
