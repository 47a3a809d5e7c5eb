package deque

import "fmt"

// Handle names a node slot inside an IndexMap.
type Handle uint32

// Nil is never issued by an IndexMap. As a deque boundary it means the
// deque is empty, as a node link it means there is no neighbour.
const Nil Handle = 0

// Node is the record an IndexMap stores for every deque element.
type Node[T any] struct {
	Elem T
	Prev Handle
	Next Handle
}

func (n Node[T]) String() string {
	return fmt.Sprintf("Node{elem: %v, prev: %d, next: %d}", n.Elem, n.Prev, n.Next)
}

// IndexMap is slab style node storage addressed by handle. A Deque reads
// and mutates its nodes only through this interface.
type IndexMap[T any] interface {
	// Insert stores node and returns a fresh handle, never Nil.
	Insert(node Node[T]) Handle

	// Remove frees the slot at h and returns the node it held. What
	// happens for a handle that is not live is up to the implementation.
	Remove(h Handle) Node[T]

	// Get returns the node at h without checking that h is live.
	Get(h Handle) *Node[T]

	// Contains reports whether h is live.
	Contains(h Handle) bool
}
