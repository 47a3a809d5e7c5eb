package db

import "container/heap"

// priorities is a min-heap of the distinct priorities that currently
// have items queued.
type priorities []int

func (p priorities) Len() int           { return len(p) }
func (p priorities) Less(i, j int) bool { return p[i] < p[j] }
func (p priorities) Swap(i, j int)      { p[i], p[j] = p[j], p[i] }

func (p *priorities) Push(x any) {
	*p = append(*p, x.(int))
}

func (p *priorities) Pop() any {
	old := *p
	n := len(old)
	x := old[n-1]
	*p = old[:n-1]
	return x
}

func (p *priorities) push(priority int) {
	heap.Push(p, priority)
}

func (p *priorities) pop() int {
	return heap.Pop(p).(int)
}

func (p priorities) peek() (int, bool) {
	if len(p) == 0 {
		return 0, false
	}
	return p[0], true
}
