// Package timerheap implements the expiry min-heap described in spec.md
// §3/§4.8: a binary heap over a slab-allocated free-list of nodes, each
// carrying an intrusive index so removal driven by the connection side is
// O(log n) rather than a linear search.
//
// The heap never imports the connection package. A Node's owner is the
// Expirable interface so the ownership cycle the connection record and its
// timer node would otherwise form (spec.md §9) is broken at the package
// boundary: the heap owns nodes (slab + free-list), the connection holds a
// weak, nullable *Node back-reference.
package timerheap

import (
	"container/heap"
	"errors"
	"time"
)

// ErrFull is returned by Add when the node slab is exhausted.
var ErrFull = errors.New("timerheap: node slab exhausted")

// Expirable is whatever the heap drives to CLOSING when its node's expiry
// has passed. Connection records implement this.
type Expirable interface {
	Expire()
}

// Node is one heap entry. heapIndex is unexported state the
// connection side never touches; it exists so Swap can
// keep it current and so Remove can locate the node in O(1) before the
// O(log n) sift.
type Node struct {
	expiry    time.Time
	owner     Expirable
	heapIndex int
}

type nodeHeap []*Node

func (h nodeHeap) Len() int { return len(h) }

func (h nodeHeap) Less(i, j int) bool { return h[i].expiry.Before(h[j].expiry) }

func (h nodeHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}

func (h *nodeHeap) Push(x any) {
	n := x.(*Node)
	n.heapIndex = len(*h)
	*h = append(*h, n)
}

func (h *nodeHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.heapIndex = -1
	*h = old[:n-1]
	return item
}

// Heap is a single-owner (single worker) timer heap: no internal locking,
// matching the per-worker ownership model of spec.md §5.
type Heap struct {
	h    nodeHeap
	free []*Node
}

// New allocates a Heap with a slab of `capacity` nodes backing its
// free-list, per spec.md §3's 16,384-65,536 sizing guidance.
func New(capacity int) *Heap {
	slab := make([]Node, capacity)
	free := make([]*Node, capacity)
	for i := range slab {
		slab[i].heapIndex = -1
		free[i] = &slab[i]
	}
	return &Heap{
		h:    make(nodeHeap, 0, capacity),
		free: free,
	}
}

// Len reports the number of live (waiting) timer nodes.
func (h *Heap) Len() int { return len(h.h) }

// Add arms a timer for owner expiring timeout from now, returning the node
// so the caller can store it as a weak back-reference and later Remove it.
func (h *Heap) Add(owner Expirable, timeout time.Duration) (*Node, error) {
	if len(h.free) == 0 {
		return nil, ErrFull
	}
	n := h.free[len(h.free)-1]
	h.free = h.free[:len(h.free)-1]

	n.owner = owner
	n.expiry = time.Now().Add(timeout)
	heap.Push(&h.h, n)
	return n, nil
}

// Remove cancels a timer node. It is idempotent: calling it twice, or
// calling it on a node already popped by ProcessExpired, is a no-op,
// matching the double-release tolerance spec.md §4.8 requires of
// ProcessExpired's pop path.
func (h *Heap) Remove(n *Node) {
	if n == nil || n.heapIndex < 0 {
		return
	}
	heap.Remove(&h.h, n.heapIndex)
	n.owner = nil
	n.heapIndex = -1
	h.free = append(h.free, n)
}

// NextTimeout returns the number of milliseconds until the nearest expiry,
// and infinite=true when the heap is empty ("no timeout" per spec.md
// §4.2). A root that has already expired returns (0, false) so the caller
// polls immediately rather than blocking.
func (h *Heap) NextTimeout(now time.Time) (ms int, infinite bool) {
	if len(h.h) == 0 {
		return 0, true
	}
	root := h.h[0]
	if !root.expiry.After(now) {
		return 0, false
	}
	d := root.expiry.Sub(now)
	ms = int(d / time.Millisecond)
	if ms < 0 {
		ms = 0
	}
	return ms, false
}

// ProcessExpired drives every node whose expiry is <= now to Expire(),
// repeatedly, tolerating an owner that removes its own node (the usual
// case: Expire transitions the connection to CLOSING, which releases and
// calls Remove) by force-evicting any node still present afterward.
func (h *Heap) ProcessExpired(now time.Time) {
	for len(h.h) > 0 {
		n := h.h[0]
		if n.expiry.After(now) {
			return
		}
		owner := n.owner
		if owner != nil {
			owner.Expire()
		}
		if n.heapIndex >= 0 {
			h.Remove(n)
		}
	}
}
