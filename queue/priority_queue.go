// Package queue provides a generic priority queue implementation based on container/heap.
// It is used by the k-way merge to pick the cursor holding the smallest head record.
package queue

// Priority queue based on
// https://golang.org/pkg/container/heap/#example__priorityQueue

import (
	"container/heap"
)

// innerPriorityQueue implements heap.Interface over a plain slice of values
type innerPriorityQueue[E any] struct {
	items   []E
	compare func(E, E) int
}

// PriorityQueue is a min-heap ordered by the compare function given to NewPriorityQueue.
// The smallest element is always at the head.
type PriorityQueue[E any] struct {
	ipq innerPriorityQueue[E]
}

// NewPriorityQueue creates a new heap based PriorityQueue.
// compare returns a negative number when a has higher priority than b, as cmp.Compare does.
func NewPriorityQueue[E any](compare func(a, b E) int) *PriorityQueue[E] {
	return NewPriorityQueueSize(compare, 0)
}

// NewPriorityQueueSize is NewPriorityQueue with room preallocated for n elements.
func NewPriorityQueueSize[E any](compare func(a, b E) int, n int) *PriorityQueue[E] {
	var pq PriorityQueue[E]
	pq.ipq.items = make([]E, 0, n)
	pq.ipq.compare = compare
	return &pq
}

// Len returns the number of items in the queue
func (pq *PriorityQueue[E]) Len() int {
	return pq.ipq.Len()
}

// Push adds x to the queue in O(log n)
func (pq *PriorityQueue[E]) Push(x E) {
	heap.Push(&pq.ipq, x)
}

// Pop removes and returns the head of the queue in O(log n)
func (pq *PriorityQueue[E]) Pop() E {
	return heap.Pop(&pq.ipq).(E)
}

// Peek returns the head of the queue without removing it.
// It panics if the queue is empty.
func (pq *PriorityQueue[E]) Peek() E {
	return pq.ipq.items[0]
}

// PeekUpdate restores heap order after the value returned by Peek changed priority.
func (pq *PriorityQueue[E]) PeekUpdate() {
	heap.Fix(&pq.ipq, 0)
}

func (pq *innerPriorityQueue[E]) Len() int {
	return len(pq.items)
}

func (pq *innerPriorityQueue[E]) Less(i, j int) bool {
	return pq.compare(pq.items[i], pq.items[j]) < 0
}

func (pq *innerPriorityQueue[E]) Swap(i, j int) {
	pq.items[i], pq.items[j] = pq.items[j], pq.items[i]
}

func (pq *innerPriorityQueue[E]) Push(x any) {
	pq.items = append(pq.items, x.(E))
}

func (pq *innerPriorityQueue[E]) Pop() any {
	old := pq.items
	n := len(old)
	x := old[n-1]
	var zero E
	old[n-1] = zero // drop the reference for the GC
	pq.items = old[0 : n-1]
	return x
}
