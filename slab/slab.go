// Package slab provides contiguous slot storage addressed by deque
// handles. A *Slab[deque.Node[T]] is a deque.IndexMap[T].
package slab

import (
	"fmt"

	"skabillium/memo/deque"
)

type entry[E any] struct {
	value    E
	live     bool
	nextFree deque.Handle
}

// Slab stores values in a slice and hands out the slot index as the
// handle. Slot 0 is taken at construction and never issued, so
// deque.Nil is never a live handle. Freed slots are reused, most
// recently freed first.
type Slab[E any] struct {
	entries []entry[E]
	free    deque.Handle
	nfree   int
}

// New returns an empty slab with room for capacity values before the
// backing slice grows.
func New[E any](capacity int) *Slab[E] {
	s := &Slab[E]{}
	s.entries = make([]entry[E], 1, capacity+1)
	return s
}

func (s *Slab[E]) lazyInit() {
	if s.entries == nil {
		s.entries = make([]entry[E], 1)
	}
}

// Insert stores v and returns its handle.
func (s *Slab[E]) Insert(v E) deque.Handle {
	s.lazyInit()
	if h := s.free; h != deque.Nil {
		e := &s.entries[h]
		s.free = e.nextFree
		s.nfree--
		*e = entry[E]{value: v, live: true}
		return h
	}
	s.entries = append(s.entries, entry[E]{value: v, live: true})
	return deque.Handle(len(s.entries) - 1)
}

// Remove frees the slot at h and returns its value. It panics if h is
// not live.
func (s *Slab[E]) Remove(h deque.Handle) E {
	if !s.Contains(h) {
		panic(fmt.Sprintf("slab: remove of invalid handle %d", h))
	}
	e := &s.entries[h]
	v := e.value
	*e = entry[E]{nextFree: s.free}
	s.free = h
	s.nfree++
	return v
}

// Get returns a pointer to the value at h. Liveness is not checked; a
// handle past the end of the slab panics. The pointer is valid until the
// next Insert.
func (s *Slab[E]) Get(h deque.Handle) *E {
	return &s.entries[h].value
}

// Contains reports whether h is live.
func (s *Slab[E]) Contains(h deque.Handle) bool {
	return h != deque.Nil && int(h) < len(s.entries) && s.entries[h].live
}

// Len returns the number of live slots.
func (s *Slab[E]) Len() int {
	if len(s.entries) == 0 {
		return 0
	}
	return len(s.entries) - 1 - s.nfree
}

// Free returns the number of freed slots waiting for reuse.
func (s *Slab[E]) Free() int {
	return s.nfree
}

// Cap returns the number of slots the slab can hold without growing.
func (s *Slab[E]) Cap() int {
	if cap(s.entries) == 0 {
		return 0
	}
	return cap(s.entries) - 1
}

// Reset frees every slot. Handles issued before Reset must not be used.
func (s *Slab[E]) Reset() {
	clear(s.entries)
	if s.entries != nil {
		s.entries = s.entries[:1]
	}
	s.free = deque.Nil
	s.nfree = 0
}
