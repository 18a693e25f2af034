// Package topk implements the min/max-heap based top-k selector used by
// search_layer and by flat-buffer brute force search. It is adapted from
// the container/heap wrappers in xDarkicex-libravdb's internal/util/heap.go,
// split into a max-heap "working set" (what HNSW's beam search calls the
// candidate/result set) and a dedicated Selector type with the small-k
// sorted-insertion fast path the teacher's heap.go did not have.
package topk

import "container/heap"

// Candidate is a scored graph or flat-buffer entry.
type Candidate struct {
	ID       uint32
	Distance float32
}

// sortedInsertThreshold is the cutover point between the O(k) shift-array
// fast path and the heap-based path (spec §4.9).
const sortedInsertThreshold = 16

// Selector collects up to k (id, distance) pairs and returns them sorted
// ascending by distance.
type Selector struct {
	k         int
	small     []Candidate // used when k <= sortedInsertThreshold, kept sorted ascending
	heap      *maxHeap    // used when k > sortedInsertThreshold
	useSorted bool
}

// NewSelector creates a selector that will retain the k closest candidates
// pushed to it.
func NewSelector(k int) *Selector {
	if k < 1 {
		k = 1
	}
	s := &Selector{k: k}
	if k <= sortedInsertThreshold {
		s.useSorted = true
		s.small = make([]Candidate, 0, k)
	} else {
		s.heap = newMaxHeap(k)
	}
	return s
}

// Len returns the number of candidates currently retained.
func (s *Selector) Len() int {
	if s.useSorted {
		return len(s.small)
	}
	return s.heap.Len()
}

// Full reports whether the selector already holds k candidates.
func (s *Selector) Full() bool {
	return s.Len() >= s.k
}

// Worst returns the current worst (largest) retained distance. Only valid
// when Full() is true.
func (s *Selector) Worst() float32 {
	if s.useSorted {
		return s.small[len(s.small)-1].Distance
	}
	return s.heap.Top().Distance
}

// Push offers a candidate to the selector. It is retained if there is room
// or if it beats the current worst retained candidate.
func (s *Selector) Push(c Candidate) {
	if s.useSorted {
		s.pushSorted(c)
		return
	}
	s.pushHeap(c)
}

func (s *Selector) pushSorted(c Candidate) {
	n := len(s.small)
	if n < s.k {
		// Insertion sort: scan from the end, shift larger entries right.
		s.small = append(s.small, c)
		i := n
		for i > 0 && s.small[i-1].Distance > c.Distance {
			s.small[i] = s.small[i-1]
			i--
		}
		s.small[i] = c
		return
	}
	if c.Distance >= s.small[n-1].Distance {
		return
	}
	i := n - 1
	for i > 0 && s.small[i-1].Distance > c.Distance {
		s.small[i] = s.small[i-1]
		i--
	}
	s.small[i] = c
}

func (s *Selector) pushHeap(c Candidate) {
	if s.heap.Len() < s.k {
		heap.Push(s.heap, c)
		return
	}
	if c.Distance < s.heap.Top().Distance {
		heap.Pop(s.heap)
		heap.Push(s.heap, c)
	}
}

// Finalize returns the retained candidates sorted ascending by distance.
// The selector should not be reused after calling Finalize.
func (s *Selector) Finalize() []Candidate {
	if s.useSorted {
		return s.small
	}
	out := make([]Candidate, s.heap.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(s.heap).(Candidate)
	}
	return out
}

// maxHeap is a container/heap max-heap over Candidate, ordered so the
// largest distance is always at the root (for O(log k) eviction of the
// current worst candidate).
type maxHeap struct {
	items []Candidate
}

func newMaxHeap(capacity int) *maxHeap {
	return &maxHeap{items: make([]Candidate, 0, capacity)}
}

func (h *maxHeap) Len() int { return len(h.items) }
func (h *maxHeap) Less(i, j int) bool {
	return h.items[i].Distance > h.items[j].Distance
}
func (h *maxHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *maxHeap) Push(x any) {
	h.items = append(h.items, x.(Candidate))
}

func (h *maxHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func (h *maxHeap) Top() Candidate {
	return h.items[0]
}

// MinHeap is a standalone min-heap over Candidate, used by HNSW's
// search_layer for the candidate priority queue (spec §4.5.3) where the
// closest unexplored candidate must be popped first.
type MinHeap struct {
	items []Candidate
}

// NewMinHeap creates an empty min-heap.
func NewMinHeap() *MinHeap {
	return &MinHeap{}
}

func (h *MinHeap) Len() int { return len(h.items) }
func (h *MinHeap) Less(i, j int) bool {
	return h.items[i].Distance < h.items[j].Distance
}
func (h *MinHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *MinHeap) Push(x any) {
	h.items = append(h.items, x.(Candidate))
}

func (h *MinHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// PushCandidate adds a candidate to the heap.
func (h *MinHeap) PushCandidate(c Candidate) { heap.Push(h, c) }

// PopCandidate removes and returns the minimum candidate. Callers must
// check Len() > 0 first.
func (h *MinHeap) PopCandidate() Candidate { return heap.Pop(h).(Candidate) }
