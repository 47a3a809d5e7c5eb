package slab_test

import (
	"slices"

	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"skabillium/memo/deque"
	"skabillium/memo/slab"
)

type ownedDequeSuite struct{}

var _ = gc.Suite(&ownedDequeSuite{})

func (*ownedDequeSuite) TestBasicOperations(c *gc.C) {
	q := slab.NewDeque[string](4)
	b := q.PushBack("b")
	q.PushFront("a")
	q.PushBack("d")

	_, ok := q.InsertAfter("c", b)
	c.Assert(ok, jc.IsTrue)
	c.Assert(slices.Collect(q.All()), jc.DeepEquals, []string{"a", "b", "c", "d"})
	c.Assert(slices.Collect(q.Backward()), jc.DeepEquals, []string{"d", "c", "b", "a"})
	c.Assert(q.Verify(), jc.ErrorIsNil)

	v, ok := q.Get(b)
	c.Assert(ok, jc.IsTrue)
	c.Assert(v, gc.Equals, "b")

	v, ok = q.PopFront()
	c.Assert(ok, jc.IsTrue)
	c.Assert(v, gc.Equals, "a")
	v, ok = q.PopBack()
	c.Assert(ok, jc.IsTrue)
	c.Assert(v, gc.Equals, "d")
	c.Assert(q.Len(), gc.Equals, 2)
}

func (*ownedDequeSuite) TestCheckedOnStaleHandles(c *gc.C) {
	q := slab.NewDeque[int](0)
	h := q.PushBack(1)
	q.PushBack(2)

	v, ok := q.TryRemove(h)
	c.Assert(ok, jc.IsTrue)
	c.Assert(v, gc.Equals, 1)

	_, ok = q.TryRemove(h)
	c.Assert(ok, jc.IsFalse)
	_, ok = q.Get(h)
	c.Assert(ok, jc.IsFalse)
	_, ok = q.InsertAfter(3, h)
	c.Assert(ok, jc.IsFalse)
	_, ok = q.InsertBefore(3, deque.Nil)
	c.Assert(ok, jc.IsFalse)
	c.Assert(q.Len(), gc.Equals, 1)
}

func (*ownedDequeSuite) TestClear(c *gc.C) {
	q := slab.NewDeque[int](0)
	for i := 0; i < 5; i++ {
		q.PushBack(i)
	}
	q.Clear()
	c.Assert(q.Len(), gc.Equals, 0)
	c.Assert(q.First(), gc.Equals, deque.Nil)
	c.Assert(q.Last(), gc.Equals, deque.Nil)
	c.Assert(q.String(), gc.Equals, "Deque{first: 0, last: 0, len: 0}")

	c.Assert(q.PushBack(9), gc.Equals, deque.Handle(1))
}
