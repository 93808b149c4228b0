package pool

import "sync/atomic"

// lockFreeStack is the index-array free-stack spec.md §4.7/§5 describes:
// a fixed array plus a single atomic top counter. Push writes its value
// into the slot it is optimistically claiming, then publishes with a CAS
// on top; on CAS failure it retries at the new top. Pop reads the slot at
// top-1 then CAS-decrements top to claim it, retrying on failure. The
// acquire/release pairing lives on the top counter: a successful Pop's
// load-then-CAS of top happens-after the Push whose CAS made that height
// visible, which is what transitively publishes the slot write — exactly
// the ordering spec.md §5 calls out.
type lockFreeStack struct {
	slots []int32
	top   atomic.Int32
}

func newLockFreeStack(capacity int) *lockFreeStack {
	return &lockFreeStack{slots: make([]int32, capacity)}
}

func (s *lockFreeStack) push(v int32) bool {
	for {
		t := s.top.Load()
		if int(t) >= len(s.slots) {
			return false // full
		}
		s.slots[t] = v
		if s.top.CompareAndSwap(t, t+1) {
			return true
		}
	}
}

func (s *lockFreeStack) pop() (int32, bool) {
	for {
		t := s.top.Load()
		if t == 0 {
			return 0, false // empty
		}
		v := s.slots[t-1]
		if s.top.CompareAndSwap(t, t-1) {
			return v, true
		}
	}
}

// cpuSlab is one per-CPU (or shared-fallback) slab: a contiguous record
// array and its own lock-free free-stack. A 64-byte pad trails the
// struct's fields; the free-stack's top counter lives in the separately
// allocated lockFreeStack, which carries no padding of its own.
type cpuSlab[T any] struct {
	slab  []T
	free  *lockFreeStack
	inUse []atomic.Bool
	_     [64]byte // cache-line padding
}

// PerCPUPool is the Variant B connection pool: N per-CPU slabs plus one
// shared fallback slab for cross-CPU borrowing when a local slab is
// empty, per spec.md §4.7.
type PerCPUPool[T any] struct {
	perCPU   []*cpuSlab[T]
	shared   *cpuSlab[T]
	crossCPU atomic.Uint64
}

// NewPerCPUPool allocates numCPU local slabs of perCPUSize records each
// plus one shared fallback slab of sharedSize records.
func NewPerCPUPool[T any](numCPU, perCPUSize, sharedSize int) *PerCPUPool[T] {
	p := &PerCPUPool[T]{
		perCPU: make([]*cpuSlab[T], numCPU),
		shared: newCPUSlab[T](sharedSize),
	}
	for i := range p.perCPU {
		p.perCPU[i] = newCPUSlab[T](perCPUSize)
	}
	return p
}

func newCPUSlab[T any](size int) *cpuSlab[T] {
	s := &cpuSlab[T]{
		slab:  make([]T, size),
		free:  newLockFreeStack(size),
		inUse: make([]atomic.Bool, size),
	}
	for i := 0; i < size; i++ {
		s.free.push(int32(i))
	}
	return s
}

// Handle identifies a claimed record by which slab it came from and its
// index within that slab, so Release can return it to the correct slab
// ("the slab that owns the record", spec.md §4.7) without needing to
// compute a pointer range.
type Handle[T any] struct {
	slab *cpuSlab[T]
	idx  int32
}

// Claim pops from the slab belonging to cpu; on local exhaustion it falls
// back to the shared slab and counts the borrow as a cross-CPU allocation.
func (p *PerCPUPool[T]) Claim(cpu int) (h Handle[T], rec *T, ok bool) {
	local := p.perCPU[cpu%len(p.perCPU)]
	if idx, ok := local.free.pop(); ok {
		local.inUse[idx].Store(true)
		return Handle[T]{slab: local, idx: idx}, &local.slab[idx], true
	}

	if idx, ok := p.shared.free.pop(); ok {
		p.shared.inUse[idx].Store(true)
		p.crossCPU.Add(1)
		return Handle[T]{slab: p.shared, idx: idx}, &p.shared.slab[idx], true
	}

	return Handle[T]{}, nil, false
}

// Release returns a claimed record to the slab it came from. Double-
// release is detected via the per-slot atomic in-use flag and suppressed,
// the same "both variants check" resolution MutexPool.Release uses for
// the open question spec.md §9 raises — see DESIGN.md.
func (p *PerCPUPool[T]) Release(h Handle[T]) bool {
	if h.slab == nil {
		return false
	}
	if !h.slab.inUse[h.idx].CompareAndSwap(true, false) {
		return false
	}
	h.slab.free.push(h.idx)
	return true
}

// CrossCPUAllocations reports how many claims were satisfied by the
// shared fallback slab rather than the caller's local slab.
func (p *PerCPUPool[T]) CrossCPUAllocations() uint64 {
	return p.crossCPU.Load()
}
