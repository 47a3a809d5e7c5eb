package deque

import "iter"

// Iter walks a deque from first to last. It holds the IndexMap it was
// created with and must not outlive a mutation of the deque.
type Iter[T any] struct {
	next Handle
	m    IndexMap[T]
}

// Iter returns an iterator positioned at the first element of d.
func (d *Deque[T]) Iter(m IndexMap[T]) *Iter[T] {
	return &Iter[T]{next: d.first, m: m}
}

// Next returns the current element and advances. It returns nil, false
// once the last element has been returned.
func (it *Iter[T]) Next() (*T, bool) {
	if it.next == Nil {
		return nil, false
	}
	node := it.m.Get(it.next)
	it.next = node.Next
	return &node.Elem, true
}

// All yields the elements of d from first to last.
func (d *Deque[T]) All(m IndexMap[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for cur := d.first; cur != Nil; {
			node := m.Get(cur)
			if !yield(node.Elem) {
				return
			}
			cur = node.Next
		}
	}
}

// Backward yields the elements of d from last to first.
func (d *Deque[T]) Backward(m IndexMap[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		for cur := d.last; cur != Nil; {
			node := m.Get(cur)
			if !yield(node.Elem) {
				return
			}
			cur = node.Prev
		}
	}
}

// Handles yields each handle of d with its element, first to last. The
// successor is read before yielding, so the yielded handle may be
// removed from d by the loop body.
func (d *Deque[T]) Handles(m IndexMap[T]) iter.Seq2[Handle, T] {
	return func(yield func(Handle, T) bool) {
		for cur := d.first; cur != Nil; {
			node := m.Get(cur)
			next := node.Next
			if !yield(cur, node.Elem) {
				return
			}
			cur = next
		}
	}
}
