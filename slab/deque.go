package slab

import (
	"iter"

	"skabillium/memo/deque"
)

// Deque is a deque that owns its slab. No other deque can hold handles
// into that slab, so TryRemove here is safe against foreign handles.
type Deque[T any] struct {
	nodes *Slab[deque.Node[T]]
	d     deque.Deque[T]
}

// NewDeque returns an empty deque backed by a private slab.
func NewDeque[T any](capacity int) *Deque[T] {
	return &Deque[T]{nodes: New[deque.Node[T]](capacity)}
}

func (q *Deque[T]) Len() int                   { return q.d.Len() }
func (q *Deque[T]) First() deque.Handle        { return q.d.First() }
func (q *Deque[T]) Last() deque.Handle         { return q.d.Last() }
func (q *Deque[T]) PushBack(v T) deque.Handle  { return q.d.PushBack(q.nodes, v) }
func (q *Deque[T]) PushFront(v T) deque.Handle { return q.d.PushFront(q.nodes, v) }
func (q *Deque[T]) PopFront() (T, bool)        { return q.d.PopFront(q.nodes) }
func (q *Deque[T]) PopBack() (T, bool)         { return q.d.PopBack(q.nodes) }
func (q *Deque[T]) All() iter.Seq[T]           { return q.d.All(q.nodes) }
func (q *Deque[T]) Backward() iter.Seq[T]      { return q.d.Backward(q.nodes) }
func (q *Deque[T]) Verify() error              { return q.d.Verify(q.nodes) }
func (q *Deque[T]) String() string             { return q.d.String() }

// InsertAfter links v after anchor, which must be live.
func (q *Deque[T]) InsertAfter(v T, anchor deque.Handle) (deque.Handle, bool) {
	if !q.nodes.Contains(anchor) {
		return deque.Nil, false
	}
	return q.d.InsertAfter(q.nodes, v, anchor), true
}

// InsertBefore links v before anchor, which must be live.
func (q *Deque[T]) InsertBefore(v T, anchor deque.Handle) (deque.Handle, bool) {
	if !q.nodes.Contains(anchor) {
		return deque.Nil, false
	}
	return q.d.InsertBefore(q.nodes, v, anchor), true
}

// Get returns the element at h, if h is live.
func (q *Deque[T]) Get(h deque.Handle) (T, bool) {
	if !q.nodes.Contains(h) {
		var zero T
		return zero, false
	}
	return *q.d.Get(q.nodes, h), true
}

// TryRemove removes the element at h, if h is live.
func (q *Deque[T]) TryRemove(h deque.Handle) (T, bool) {
	return q.d.TryRemove(q.nodes, h)
}

// Clear empties the deque and releases the slab's slots.
func (q *Deque[T]) Clear() {
	q.d.Clear(q.nodes)
	q.nodes.Reset()
}
