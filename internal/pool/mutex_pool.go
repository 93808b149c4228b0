// Package pool implements the two connection-pool variants spec.md §4.7
// calls out: a single global mutex-guarded slab with a LIFO free-stack
// (MutexPool, "Variant A"), and a per-CPU lock-free slab set with a shared
// fallback (PerCPUPool, "Variant B", in percpu_pool.go).
//
// Both operate on a caller-supplied record type via Go generics rather than
// the teacher's any-typed ConnectionPoolable interface
// (core/pools/connection_pool.go): the slab needs to store T by value for
// cache locality, which an interface-typed sync.Pool cannot express.
package pool

import "sync"

// MutexPool is the Variant A global slab: one mutex, one LIFO index
// free-stack, one contiguous backing array.
type MutexPool[T any] struct {
	mu       sync.Mutex
	slab     []T
	free     []int32
	inUse    []bool
	used     int
	peak     int
}

// NewMutexPool allocates a slab of the given capacity with every index
// initially free.
func NewMutexPool[T any](capacity int) *MutexPool[T] {
	p := &MutexPool[T]{
		slab:  make([]T, capacity),
		free:  make([]int32, capacity),
		inUse: make([]bool, capacity),
	}
	for i := range p.free {
		p.free[i] = int32(i)
	}
	return p
}

// Claim pops the top free index, marks it in-use, and returns a pointer
// into the slab. ok is false when the pool is exhausted (spec.md §4.7's
// "exhaustion is signalled by a null result").
func (p *MutexPool[T]) Claim() (idx int32, rec *T, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.free) == 0 {
		return 0, nil, false
	}

	idx = p.free[len(p.free)-1]
	p.free = p.free[:len(p.free)-1]
	p.inUse[idx] = true
	p.used++
	if p.used > p.peak {
		p.peak = p.used
	}
	return idx, &p.slab[idx], true
}

// Release returns idx to the free-stack. It is idempotent: releasing an
// index that is already free is detected and suppressed rather than
// corrupting the free-stack, per the Variant A half of the open question
// spec.md §9 raises (this module's resolution: both variants detect and
// suppress double-release; see DESIGN.md).
func (p *MutexPool[T]) Release(idx int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.inUse[idx] {
		return false
	}
	p.inUse[idx] = false
	p.free = append(p.free, idx)
	p.used--
	return true
}

// Stats reports live usage, high-water mark, and total capacity.
func (p *MutexPool[T]) Stats() (used, peak, capacity int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.used, p.peak, len(p.slab)
}
