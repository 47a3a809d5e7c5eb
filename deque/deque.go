// Package deque implements a doubly linked deque whose nodes live in an
// external IndexMap and are addressed by integer handles.
//
// A Deque is three scalars: the first handle, the last handle and the
// length. Every operation is handed the IndexMap holding its nodes, so one
// map can back many deques. Methods suffixed Unchecked, together with
// Remove, InsertAfter and InsertBefore, trust their caller: passing a stale
// handle, a handle from another deque, or popping an empty deque corrupts
// the deque or panics inside the IndexMap. The Checked variants and Try
// and Pop methods validate first.
//
// A Deque is not safe for concurrent use, and neither is an IndexMap
// shared between deques.
package deque

import (
	"fmt"

	"github.com/juju/errors"
)

// Deque is a handle addressed doubly linked deque. The zero value is an
// empty deque ready to use. Copying a Deque copies its boundary only; the
// copy and the original must not both be mutated afterwards.
type Deque[T any] struct {
	first Handle
	last  Handle
	len   int
}

// New returns an empty deque.
func New[T any]() *Deque[T] {
	return &Deque[T]{}
}

// First returns the handle of the first node, or Nil when empty.
func (d *Deque[T]) First() Handle {
	return d.first
}

// Last returns the handle of the last node, or Nil when empty.
func (d *Deque[T]) Last() Handle {
	return d.last
}

// Len returns the number of elements in the deque.
func (d *Deque[T]) Len() int {
	return d.len
}

// PushBack appends v and returns the handle of its node.
func (d *Deque[T]) PushBack(m IndexMap[T], v T) Handle {
	d.len++
	if d.last == Nil {
		h := m.Insert(Node[T]{Elem: v})
		d.first, d.last = h, h
		return h
	}

	h := m.Insert(Node[T]{Elem: v, Prev: d.last})
	m.Get(d.last).Next = h
	d.last = h
	return h
}

// PushFront prepends v and returns the handle of its node.
func (d *Deque[T]) PushFront(m IndexMap[T], v T) Handle {
	d.len++
	if d.first == Nil {
		h := m.Insert(Node[T]{Elem: v})
		d.first, d.last = h, h
		return h
	}

	h := m.Insert(Node[T]{Elem: v, Next: d.first})
	m.Get(d.first).Prev = h
	d.first = h
	return h
}

// InsertAfter links v directly after anchor and returns its handle.
// anchor must be a live member of d; this is not checked.
func (d *Deque[T]) InsertAfter(m IndexMap[T], v T, anchor Handle) Handle {
	d.len++
	h := m.Insert(Node[T]{Elem: v, Prev: anchor})

	a := m.Get(anchor)
	next := a.Next
	a.Next = h

	if next == Nil {
		d.last = h
	} else {
		m.Get(next).Prev = h
		m.Get(h).Next = next
	}
	return h
}

// InsertBefore links v directly before anchor and returns its handle.
// anchor must be a live member of d; this is not checked.
func (d *Deque[T]) InsertBefore(m IndexMap[T], v T, anchor Handle) Handle {
	d.len++
	h := m.Insert(Node[T]{Elem: v, Next: anchor})

	a := m.Get(anchor)
	prev := a.Prev
	a.Prev = h

	if prev == Nil {
		d.first = h
	} else {
		m.Get(prev).Next = h
		m.Get(h).Prev = prev
	}
	return h
}

// PopFrontUnchecked removes and returns the first element. The deque
// must not be empty.
func (d *Deque[T]) PopFrontUnchecked(m IndexMap[T]) T {
	d.len--
	node := m.Remove(d.first)
	d.first = node.Next
	if d.first == Nil {
		d.last = Nil
	} else {
		m.Get(d.first).Prev = Nil
	}
	return node.Elem
}

// PopFront removes and returns the first element. It reports false if
// the deque is empty.
func (d *Deque[T]) PopFront(m IndexMap[T]) (T, bool) {
	if d.first == Nil {
		var zero T
		return zero, false
	}
	return d.PopFrontUnchecked(m), true
}

// PopBackUnchecked removes and returns the last element. The deque must
// not be empty.
func (d *Deque[T]) PopBackUnchecked(m IndexMap[T]) T {
	d.len--
	node := m.Remove(d.last)
	d.last = node.Prev
	if d.last == Nil {
		d.first = Nil
	} else {
		m.Get(d.last).Next = Nil
	}
	return node.Elem
}

// PopBack removes and returns the last element. It reports false if the
// deque is empty.
func (d *Deque[T]) PopBack(m IndexMap[T]) (T, bool) {
	if d.last == Nil {
		var zero T
		return zero, false
	}
	return d.PopBackUnchecked(m), true
}

// Remove unlinks the node at h, frees it and returns its element. h must
// be a live member of d; this is not checked.
func (d *Deque[T]) Remove(m IndexMap[T], h Handle) T {
	node := m.Remove(h)
	switch {
	case node.Prev == Nil && node.Next == Nil:
		// Only element.
		d.first, d.last = Nil, Nil
	case node.Next == Nil:
		// Tail.
		m.Get(node.Prev).Next = Nil
		d.last = node.Prev
	case node.Prev == Nil:
		// Head.
		m.Get(node.Next).Prev = Nil
		d.first = node.Next
	default:
		m.Get(node.Prev).Next = node.Next
		m.Get(node.Next).Prev = node.Prev
	}
	d.len--
	return node.Elem
}

// TryRemove removes the node at h if h is live in m. It only checks
// liveness: a handle that is live because it belongs to another deque
// sharing m still corrupts d. Use RemoveChecked when that can happen.
func (d *Deque[T]) TryRemove(m IndexMap[T], h Handle) (T, bool) {
	if !m.Contains(h) {
		var zero T
		return zero, false
	}
	return d.Remove(m, h), true
}

// Clear frees every node of d, leaving it empty.
func (d *Deque[T]) Clear(m IndexMap[T]) {
	for d.first != Nil {
		node := m.Remove(d.first)
		d.first = node.Next
	}
	d.last = Nil
	d.len = 0
}

// Get returns the element at h without any check.
func (d *Deque[T]) Get(m IndexMap[T], h Handle) *T {
	return &m.Get(h).Elem
}

func (d *Deque[T]) String() string {
	return fmt.Sprintf("Deque{first: %d, last: %d, len: %d}", d.first, d.last, d.len)
}

// Owns reports whether h is linked into d. It walks the deque.
func (d *Deque[T]) Owns(m IndexMap[T], h Handle) bool {
	if h == Nil || !m.Contains(h) {
		return false
	}
	for cur := d.first; cur != Nil; cur = m.Get(cur).Next {
		if cur == h {
			return true
		}
	}
	return false
}

// RemoveChecked is Remove for handles of unknown origin. It returns a
// NotFound error, leaving d untouched, unless h is a member of d.
func (d *Deque[T]) RemoveChecked(m IndexMap[T], h Handle) (T, error) {
	if !d.Owns(m, h) {
		var zero T
		return zero, errors.NotFoundf("handle %d in %v", h, d)
	}
	return d.Remove(m, h), nil
}

// InsertAfterChecked is InsertAfter for anchors of unknown origin.
func (d *Deque[T]) InsertAfterChecked(m IndexMap[T], v T, anchor Handle) (Handle, error) {
	if !d.Owns(m, anchor) {
		return Nil, errors.NotFoundf("anchor %d in %v", anchor, d)
	}
	return d.InsertAfter(m, v, anchor), nil
}

// InsertBeforeChecked is InsertBefore for anchors of unknown origin.
func (d *Deque[T]) InsertBeforeChecked(m IndexMap[T], v T, anchor Handle) (Handle, error) {
	if !d.Owns(m, anchor) {
		return Nil, errors.NotFoundf("anchor %d in %v", anchor, d)
	}
	return d.InsertBefore(m, v, anchor), nil
}

// Verify walks d in both directions and returns a NotValid error
// describing the first broken link it finds.
func (d *Deque[T]) Verify(m IndexMap[T]) error {
	if (d.first == Nil) != (d.last == Nil) || (d.first == Nil) != (d.len == 0) {
		return errors.NotValidf("boundary %v", d)
	}

	var (
		forward []Handle
		prev    = Nil
	)
	for cur := d.first; cur != Nil; {
		if len(forward) == d.len {
			return errors.NotValidf("forward walk longer than %d in %v", d.len, d)
		}
		if !m.Contains(cur) {
			return errors.NotValidf("dead handle %d reached in %v", cur, d)
		}
		node := m.Get(cur)
		if node.Prev != prev {
			return errors.NotValidf("node %d links back to %d, want %d", cur, node.Prev, prev)
		}
		forward = append(forward, cur)
		prev, cur = cur, node.Next
	}
	if len(forward) != d.len {
		return errors.NotValidf("forward walk of %d in %v", len(forward), d)
	}
	if prev != d.last {
		return errors.NotValidf("forward walk ends at %d in %v", prev, d)
	}

	i := len(forward) - 1
	for cur := d.last; cur != Nil; cur = m.Get(cur).Prev {
		if i < 0 || forward[i] != cur {
			return errors.NotValidf("backward walk diverges at %d in %v", cur, d)
		}
		i--
	}
	if i != -1 {
		return errors.NotValidf("backward walk stops short in %v", d)
	}
	return nil
}
