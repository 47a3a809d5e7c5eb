package deque_test

import (
	"slices"

	"github.com/juju/errors"
	jc "github.com/juju/testing/checkers"
	gc "gopkg.in/check.v1"

	"skabillium/memo/deque"
	"skabillium/memo/slab"
)

// sharedSuite runs two deques over one slab.
type sharedSuite struct {
	nodes *slab.Slab[deque.Node[string]]
	left  deque.Deque[string]
	right deque.Deque[string]
}

var _ = gc.Suite(&sharedSuite{})

func (s *sharedSuite) SetUpTest(c *gc.C) {
	s.nodes = slab.New[deque.Node[string]](0)
	s.left = deque.Deque[string]{}
	s.right = deque.Deque[string]{}
}

func (s *sharedSuite) TestInterleavedPushes(c *gc.C) {
	for _, v := range []string{"a", "b", "c"} {
		s.left.PushBack(s.nodes, v)
		s.right.PushFront(s.nodes, v)
	}
	c.Assert(slices.Collect(s.left.All(s.nodes)), jc.DeepEquals, []string{"a", "b", "c"})
	c.Assert(slices.Collect(s.right.All(s.nodes)), jc.DeepEquals, []string{"c", "b", "a"})
	c.Assert(s.nodes.Len(), gc.Equals, 6)
	c.Assert(s.left.Verify(s.nodes), jc.ErrorIsNil)
	c.Assert(s.right.Verify(s.nodes), jc.ErrorIsNil)
}

func (s *sharedSuite) TestOwns(c *gc.C) {
	l := s.left.PushBack(s.nodes, "l")
	r := s.right.PushBack(s.nodes, "r")

	c.Assert(s.left.Owns(s.nodes, l), jc.IsTrue)
	c.Assert(s.left.Owns(s.nodes, r), jc.IsFalse)
	c.Assert(s.right.Owns(s.nodes, r), jc.IsTrue)
	c.Assert(s.left.Owns(s.nodes, deque.Nil), jc.IsFalse)
}

func (s *sharedSuite) TestRemoveCheckedRejectsForeignHandle(c *gc.C) {
	s.left.PushBack(s.nodes, "l1")
	s.left.PushBack(s.nodes, "l2")
	foreign := s.right.PushBack(s.nodes, "r1")
	before := s.left.String()

	// The handle is live, so a bare liveness check would accept it.
	c.Assert(s.nodes.Contains(foreign), jc.IsTrue)

	_, err := s.left.RemoveChecked(s.nodes, foreign)
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
	c.Assert(s.left.String(), gc.Equals, before)
	c.Assert(s.right.Len(), gc.Equals, 1)
	c.Assert(s.left.Verify(s.nodes), jc.ErrorIsNil)
	c.Assert(s.right.Verify(s.nodes), jc.ErrorIsNil)
}

func (s *sharedSuite) TestRemoveCheckedMember(c *gc.C) {
	s.left.PushBack(s.nodes, "l1")
	h := s.left.PushBack(s.nodes, "l2")

	v, err := s.left.RemoveChecked(s.nodes, h)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(v, gc.Equals, "l2")

	_, err = s.left.RemoveChecked(s.nodes, h)
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
}

func (s *sharedSuite) TestInsertCheckedRejectsForeignAnchor(c *gc.C) {
	own := s.left.PushBack(s.nodes, "l1")
	foreign := s.right.PushBack(s.nodes, "r1")

	_, err := s.left.InsertAfterChecked(s.nodes, "x", foreign)
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
	_, err = s.left.InsertBeforeChecked(s.nodes, "x", foreign)
	c.Assert(err, jc.Satisfies, errors.IsNotFound)
	c.Assert(s.nodes.Len(), gc.Equals, 2)

	_, err = s.left.InsertAfterChecked(s.nodes, "l2", own)
	c.Assert(err, jc.ErrorIsNil)
	_, err = s.left.InsertBeforeChecked(s.nodes, "l0", own)
	c.Assert(err, jc.ErrorIsNil)
	c.Assert(slices.Collect(s.left.All(s.nodes)), jc.DeepEquals, []string{"l0", "l1", "l2"})
	c.Assert(slices.Collect(s.right.All(s.nodes)), jc.DeepEquals, []string{"r1"})
}

func (s *sharedSuite) TestClearLeavesOtherDequeIntact(c *gc.C) {
	for _, v := range []string{"a", "b", "c"} {
		s.left.PushBack(s.nodes, v)
		s.right.PushBack(s.nodes, v)
	}
	s.left.Clear(s.nodes)

	c.Assert(s.left.Len(), gc.Equals, 0)
	c.Assert(s.nodes.Len(), gc.Equals, 3)
	c.Assert(slices.Collect(s.right.All(s.nodes)), jc.DeepEquals, []string{"a", "b", "c"})
	c.Assert(s.right.Verify(s.nodes), jc.ErrorIsNil)

	// Freed slots are handed to the surviving deque.
	h := s.right.PushBack(s.nodes, "d")
	c.Assert(int(h) <= 6, jc.IsTrue)
	c.Assert(s.nodes.Free(), gc.Equals, 2)
}
