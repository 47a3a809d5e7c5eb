package deque_test

import (
	"math/rand"
	"slices"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"skabillium/memo/deque"
	"skabillium/memo/slab"
)

type dequeSuite struct {
	nodes *slab.Slab[deque.Node[int]]
	d     *deque.Deque[int]
}

var _ = gc.Suite(&dequeSuite{})

func (s *dequeSuite) SetUpTest(c *gc.C) {
	s.nodes = slab.New[deque.Node[int]](8)
	s.d = deque.New[int]()
}

func (s *dequeSuite) forward() []int {
	return slices.Collect(s.d.All(s.nodes))
}

func (s *dequeSuite) backward() []int {
	return slices.Collect(s.d.Backward(s.nodes))
}

func (s *dequeSuite) assertContents(c *gc.C, expected ...int) {
	if expected == nil {
		expected = []int{}
	}
	forward := s.forward()
	if forward == nil {
		forward = []int{}
	}
	c.Assert(forward, jc.DeepEquals, expected)

	reversed := slices.Clone(expected)
	slices.Reverse(reversed)
	backward := s.backward()
	if backward == nil {
		backward = []int{}
	}
	c.Assert(backward, jc.DeepEquals, reversed)

	c.Assert(s.d.Len(), gc.Equals, len(expected))
	c.Assert(s.d.Verify(s.nodes), jc.ErrorIsNil)
}

func (s *dequeSuite) assertEmpty(c *gc.C) {
	c.Check(s.d.Len(), gc.Equals, 0)
	c.Check(s.d.First(), gc.Equals, deque.Nil)
	c.Check(s.d.Last(), gc.Equals, deque.Nil)
	s.assertContents(c)
}

func (s *dequeSuite) TestZeroValueIsEmpty(c *gc.C) {
	var d deque.Deque[int]
	c.Assert(d.Len(), gc.Equals, 0)
	c.Assert(d.First(), gc.Equals, deque.Nil)
	c.Assert(d.Last(), gc.Equals, deque.Nil)
	c.Assert(d.Verify(s.nodes), jc.ErrorIsNil)
}

func (s *dequeSuite) TestPushBackPopFront(c *gc.C) {
	s.d.PushBack(s.nodes, 1)
	s.d.PushBack(s.nodes, 2)
	s.d.PushBack(s.nodes, 3)
	s.assertContents(c, 1, 2, 3)

	v, ok := s.d.PopFront(s.nodes)
	c.Assert(ok, jc.IsTrue)
	c.Assert(v, gc.Equals, 1)
	c.Assert(s.d.Len(), gc.Equals, 2)
	s.assertContents(c, 2, 3)
}

func (s *dequeSuite) TestPushFrontPopBack(c *gc.C) {
	s.d.PushFront(s.nodes, 1)
	s.d.PushFront(s.nodes, 2)
	s.assertContents(c, 2, 1)

	v, ok := s.d.PopBack(s.nodes)
	c.Assert(ok, jc.IsTrue)
	c.Assert(v, gc.Equals, 1)
	s.assertContents(c, 2)
}

func (s *dequeSuite) TestPushReturnsBoundaryHandles(c *gc.C) {
	h1 := s.d.PushBack(s.nodes, 1)
	c.Assert(h1, gc.Not(gc.Equals), deque.Nil)
	c.Assert(s.d.First(), gc.Equals, h1)
	c.Assert(s.d.Last(), gc.Equals, h1)

	h2 := s.d.PushBack(s.nodes, 2)
	h0 := s.d.PushFront(s.nodes, 0)
	c.Assert(s.d.First(), gc.Equals, h0)
	c.Assert(s.d.Last(), gc.Equals, h2)
	c.Assert(*s.d.Get(s.nodes, h1), gc.Equals, 1)
}

func (s *dequeSuite) TestPopEmpty(c *gc.C) {
	_, ok := s.d.PopFront(s.nodes)
	c.Assert(ok, jc.IsFalse)
	_, ok = s.d.PopBack(s.nodes)
	c.Assert(ok, jc.IsFalse)
	s.assertEmpty(c)
}

func (s *dequeSuite) TestPopToEmpty(c *gc.C) {
	s.d.PushBack(s.nodes, 1)
	s.d.PushBack(s.nodes, 2)

	v := s.d.PopBackUnchecked(s.nodes)
	c.Assert(v, gc.Equals, 2)
	v = s.d.PopFrontUnchecked(s.nodes)
	c.Assert(v, gc.Equals, 1)
	s.assertEmpty(c)
	c.Assert(s.nodes.Len(), gc.Equals, 0)

	s.d.PushFront(s.nodes, 7)
	s.assertContents(c, 7)
}

func (s *dequeSuite) TestPopFrontUncheckedOnEmptyPanicsInSlab(c *gc.C) {
	c.Assert(func() { s.d.PopFrontUnchecked(s.nodes) }, gc.PanicMatches, `slab: remove of invalid handle 0`)
}

func (s *dequeSuite) TestRemoveInterior(c *gc.C) {
	s.d.PushBack(s.nodes, 1)
	h := s.d.PushBack(s.nodes, 2)
	s.d.PushBack(s.nodes, 3)
	first, last := s.d.First(), s.d.Last()

	c.Assert(s.d.Remove(s.nodes, h), gc.Equals, 2)
	s.assertContents(c, 1, 3)
	c.Assert(s.d.First(), gc.Equals, first)
	c.Assert(s.d.Last(), gc.Equals, last)
}

func (s *dequeSuite) TestRemoveHead(c *gc.C) {
	h := s.d.PushBack(s.nodes, 1)
	second := s.d.PushBack(s.nodes, 2)
	s.d.PushBack(s.nodes, 3)

	c.Assert(s.d.Remove(s.nodes, h), gc.Equals, 1)
	s.assertContents(c, 2, 3)
	c.Assert(s.d.First(), gc.Equals, second)
	c.Assert(s.nodes.Get(second).Prev, gc.Equals, deque.Nil)
}

func (s *dequeSuite) TestRemoveTail(c *gc.C) {
	s.d.PushBack(s.nodes, 1)
	second := s.d.PushBack(s.nodes, 2)
	h := s.d.PushBack(s.nodes, 3)

	c.Assert(s.d.Remove(s.nodes, h), gc.Equals, 3)
	s.assertContents(c, 1, 2)
	c.Assert(s.d.Last(), gc.Equals, second)
	c.Assert(s.nodes.Get(second).Next, gc.Equals, deque.Nil)
}

func (s *dequeSuite) TestRemoveOnly(c *gc.C) {
	h := s.d.PushBack(s.nodes, 1)
	c.Assert(s.d.Remove(s.nodes, h), gc.Equals, 1)
	s.assertEmpty(c)
}

func (s *dequeSuite) TestTryRemoveUnknownHandle(c *gc.C) {
	s.d.PushBack(s.nodes, 1)
	s.d.PushBack(s.nodes, 2)
	first, last := s.d.First(), s.d.Last()

	for _, h := range []deque.Handle{deque.Nil, 999} {
		_, ok := s.d.TryRemove(s.nodes, h)
		c.Check(ok, jc.IsFalse)
	}
	c.Assert(s.d.First(), gc.Equals, first)
	c.Assert(s.d.Last(), gc.Equals, last)
	s.assertContents(c, 1, 2)
}

func (s *dequeSuite) TestTryRemoveStaleHandle(c *gc.C) {
	h := s.d.PushBack(s.nodes, 1)
	s.d.PushBack(s.nodes, 2)

	v, ok := s.d.TryRemove(s.nodes, h)
	c.Assert(ok, jc.IsTrue)
	c.Assert(v, gc.Equals, 1)

	_, ok = s.d.TryRemove(s.nodes, h)
	c.Assert(ok, jc.IsFalse)
	s.assertContents(c, 2)
}

func (s *dequeSuite) TestInsertAfter(c *gc.C) {
	h1 := s.d.PushBack(s.nodes, 1)
	h3 := s.d.PushBack(s.nodes, 3)

	s.d.InsertAfter(s.nodes, 2, h1)
	s.assertContents(c, 1, 2, 3)
	c.Assert(s.d.Last(), gc.Equals, h3)

	h4 := s.d.InsertAfter(s.nodes, 4, h3)
	s.assertContents(c, 1, 2, 3, 4)
	c.Assert(s.d.Last(), gc.Equals, h4)
	c.Assert(s.d.First(), gc.Equals, h1)
}

func (s *dequeSuite) TestInsertBefore(c *gc.C) {
	h2 := s.d.PushBack(s.nodes, 2)
	h4 := s.d.PushBack(s.nodes, 4)

	s.d.InsertBefore(s.nodes, 3, h4)
	s.assertContents(c, 2, 3, 4)
	c.Assert(s.d.First(), gc.Equals, h2)

	h1 := s.d.InsertBefore(s.nodes, 1, h2)
	s.assertContents(c, 1, 2, 3, 4)
	c.Assert(s.d.First(), gc.Equals, h1)
	c.Assert(s.d.Last(), gc.Equals, h4)
}

func (s *dequeSuite) TestInsertAroundSingle(c *gc.C) {
	h := s.d.PushBack(s.nodes, 2)
	s.d.InsertBefore(s.nodes, 1, h)
	s.d.InsertAfter(s.nodes, 3, h)
	s.assertContents(c, 1, 2, 3)
}

func (s *dequeSuite) TestClear(c *gc.C) {
	for i := 0; i < 10; i++ {
		s.d.PushBack(s.nodes, i)
	}
	s.d.Clear(s.nodes)
	s.assertEmpty(c)
	c.Assert(s.nodes.Len(), gc.Equals, 0)
}

func (s *dequeSuite) TestClearMatchesRepeatedPopFront(c *gc.C) {
	other := deque.New[int]()
	for i := 0; i < 5; i++ {
		s.d.PushBack(s.nodes, i)
		other.PushBack(s.nodes, i)
	}

	s.d.Clear(s.nodes)
	for i := 0; i < 5; i++ {
		other.PopFront(s.nodes)
	}
	c.Assert(s.d.String(), gc.Equals, other.String())
	c.Assert(s.nodes.Len(), gc.Equals, 0)
}

func (s *dequeSuite) TestIterRestartsAndIsIdempotent(c *gc.C) {
	for _, v := range []int{5, 6, 7} {
		s.d.PushBack(s.nodes, v)
	}

	walk := func() []int {
		var out []int
		it := s.d.Iter(s.nodes)
		for v, ok := it.Next(); ok; v, ok = it.Next() {
			out = append(out, *v)
		}
		return out
	}
	c.Assert(walk(), jc.DeepEquals, []int{5, 6, 7})
	c.Assert(walk(), jc.DeepEquals, []int{5, 6, 7})
	c.Assert(s.d.Len(), gc.Equals, 3)

	it := s.d.Iter(s.nodes)
	v, ok := it.Next()
	c.Assert(ok, jc.IsTrue)
	*v = 50
	c.Assert(s.forward(), jc.DeepEquals, []int{50, 6, 7})
}

func (s *dequeSuite) TestIterEmpty(c *gc.C) {
	v, ok := s.d.Iter(s.nodes).Next()
	c.Assert(ok, jc.IsFalse)
	c.Assert(v, gc.IsNil)
}

func (s *dequeSuite) TestAllStopsEarly(c *gc.C) {
	for i := 0; i < 5; i++ {
		s.d.PushBack(s.nodes, i)
	}
	var seen []int
	for v := range s.d.All(s.nodes) {
		if v == 2 {
			break
		}
		seen = append(seen, v)
	}
	c.Assert(seen, jc.DeepEquals, []int{0, 1})
}

func (s *dequeSuite) TestHandlesAllowsRemovingYielded(c *gc.C) {
	for i := 0; i < 6; i++ {
		s.d.PushBack(s.nodes, i)
	}
	for h, v := range s.d.Handles(s.nodes) {
		if v%2 == 0 {
			s.d.Remove(s.nodes, h)
		}
	}
	s.assertContents(c, 1, 3, 5)
}

func (s *dequeSuite) TestString(c *gc.C) {
	c.Assert(s.d.String(), gc.Equals, "Deque{first: 0, last: 0, len: 0}")
	h := s.d.PushBack(s.nodes, 1)
	s.d.PushBack(s.nodes, 2)
	c.Assert(s.d.String(), gc.Equals, "Deque{first: 1, last: 2, len: 2}")
	c.Assert(s.nodes.Get(h).String(), gc.Equals, "Node{elem: 1, prev: 0, next: 2}")
}

func (s *dequeSuite) TestCopyIsIndependentBoundary(c *gc.C) {
	s.d.PushBack(s.nodes, 1)
	clone := *s.d
	c.Assert(clone.String(), gc.Equals, s.d.String())
	c.Assert(slices.Collect(clone.All(s.nodes)), jc.DeepEquals, []int{1})
}

func (s *dequeSuite) TestVerifyDetectsBrokenLink(c *gc.C) {
	s.d.PushBack(s.nodes, 1)
	h := s.d.PushBack(s.nodes, 2)
	s.d.PushBack(s.nodes, 3)

	s.nodes.Get(h).Prev = deque.Nil
	err := s.d.Verify(s.nodes)
	c.Assert(err, jc.Satisfies, errors.IsNotValid)
}

// Operations checked against a slice model over a long random run.
func (s *dequeSuite) TestRandomOperationsAgainstModel(c *gc.C) {
	rng := rand.New(rand.NewSource(42))
	var (
		values  []int
		handles []deque.Handle
	)

	for i := 0; i < 2000; i++ {
		switch op := rng.Intn(7); {
		case op == 0:
			handles = append(handles, s.d.PushBack(s.nodes, i))
			values = append(values, i)
		case op == 1:
			handles = slices.Insert(handles, 0, s.d.PushFront(s.nodes, i))
			values = slices.Insert(values, 0, i)
		case op == 2 && len(values) > 0:
			at := rng.Intn(len(values))
			handles = slices.Insert(handles, at+1, s.d.InsertAfter(s.nodes, i, handles[at]))
			values = slices.Insert(values, at+1, i)
		case op == 3 && len(values) > 0:
			at := rng.Intn(len(values))
			handles = slices.Insert(handles, at, s.d.InsertBefore(s.nodes, i, handles[at]))
			values = slices.Insert(values, at, i)
		case op == 4:
			v, ok := s.d.PopFront(s.nodes)
			c.Assert(ok, gc.Equals, len(values) > 0)
			if ok {
				c.Assert(v, gc.Equals, values[0])
				values, handles = values[1:], handles[1:]
			}
		case op == 5:
			v, ok := s.d.PopBack(s.nodes)
			c.Assert(ok, gc.Equals, len(values) > 0)
			if ok {
				c.Assert(v, gc.Equals, values[len(values)-1])
				values, handles = values[:len(values)-1], handles[:len(handles)-1]
			}
		case op == 6 && len(values) > 0:
			at := rng.Intn(len(values))
			c.Assert(s.d.Remove(s.nodes, handles[at]), gc.Equals, values[at])
			values = slices.Delete(values, at, at+1)
			handles = slices.Delete(handles, at, at+1)
		}

		c.Assert(s.d.Verify(s.nodes), jc.ErrorIsNil)
		c.Assert(s.d.Len(), gc.Equals, len(values))
		c.Assert(s.nodes.Len(), gc.Equals, len(values))
	}
	s.assertContents(c, values...)
}
