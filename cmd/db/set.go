package db

import (
	"github.com/juju/collections/set"
)

type Set struct {
	items set.Strings
}

func NewSet() *Set {
	return &Set{items: set.NewStrings()}
}

// Items returns the members in sorted order.
func (s *Set) Items() []string {
	return s.items.SortedValues()
}

func (s *Set) Size() int {
	return s.items.Size()
}

// Add inserts items and returns how many were new.
func (s *Set) Add(items ...string) int {
	added := 0
	for _, item := range items {
		if !s.items.Contains(item) {
			s.items.Add(item)
			added++
		}
	}
	return added
}

func (s *Set) Has(key string) bool {
	return s.items.Contains(key)
}

// Delete removes items and returns how many were present.
func (s *Set) Delete(items ...string) int {
	removed := 0
	for _, item := range items {
		if s.items.Contains(item) {
			s.items.Remove(item)
			removed++
		}
	}
	return removed
}

// Intersect returns the sorted members present in both sets.
func (s *Set) Intersect(other *Set) []string {
	return s.items.Intersection(other.items).SortedValues()
}
