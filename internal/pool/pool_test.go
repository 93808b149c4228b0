package pool

import (
	"sync"
	"testing"
)

type record struct {
	value int
}

func TestMutexPoolClaimReleaseInvariant(t *testing.T) {
	p := NewMutexPool[record](4)

	idx0, r0, ok := p.Claim()
	if !ok {
		t.Fatal("expected claim to succeed")
	}
	r0.value = 42

	used, _, cap := p.Stats()
	if used != 1 || cap != 4 {
		t.Fatalf("used=%d cap=%d, want 1,4", used, cap)
	}

	if !p.Release(idx0) {
		t.Fatal("expected release to succeed")
	}
	used, _, _ = p.Stats()
	if used != 0 {
		t.Fatalf("used=%d after release, want 0", used)
	}
}

func TestMutexPoolExhaustion(t *testing.T) {
	p := NewMutexPool[record](2)
	_, _, ok1 := p.Claim()
	_, _, ok2 := p.Claim()
	_, _, ok3 := p.Claim()

	if !ok1 || !ok2 {
		t.Fatal("first two claims should succeed")
	}
	if ok3 {
		t.Fatal("third claim should fail: pool exhausted")
	}
}

func TestMutexPoolDoubleReleaseSuppressed(t *testing.T) {
	p := NewMutexPool[record](2)
	idx, _, _ := p.Claim()

	if !p.Release(idx) {
		t.Fatal("first release should succeed")
	}
	if p.Release(idx) {
		t.Fatal("second release of the same index should be suppressed")
	}
}

func TestMutexPoolConcurrentClaimRelease(t *testing.T) {
	const capacity = 64
	p := NewMutexPool[record](capacity)

	var wg sync.WaitGroup
	claims := 2000
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < claims/16; i++ {
				idx, _, ok := p.Claim()
				if ok {
					p.Release(idx)
				}
			}
		}()
	}
	wg.Wait()

	used, _, cap := p.Stats()
	if used != 0 {
		t.Fatalf("used=%d after all claims released, want 0", used)
	}
	if cap != capacity {
		t.Fatalf("cap=%d, want %d", cap, capacity)
	}
}

func TestPerCPUPoolLocalThenFallback(t *testing.T) {
	p := NewPerCPUPool[record](2, 1, 1)

	h0, _, ok := p.Claim(0)
	if !ok {
		t.Fatal("expected first claim on cpu 0 to succeed")
	}

	// cpu 0's local slab (size 1) is now empty; next claim on cpu 0 must
	// borrow from the shared fallback slab.
	h1, _, ok := p.Claim(0)
	if !ok {
		t.Fatal("expected fallback claim to succeed")
	}
	if p.CrossCPUAllocations() != 1 {
		t.Fatalf("CrossCPUAllocations = %d, want 1", p.CrossCPUAllocations())
	}

	// Shared slab (size 1) is now also empty.
	if _, _, ok := p.Claim(0); ok {
		t.Fatal("expected claim to fail: local and shared both exhausted")
	}

	p.Release(h0)
	p.Release(h1)
}

func TestPerCPUPoolDoubleReleaseSuppressed(t *testing.T) {
	p := NewPerCPUPool[record](1, 2, 1)
	h, _, _ := p.Claim(0)

	if !p.Release(h) {
		t.Fatal("first release should succeed")
	}
	if p.Release(h) {
		t.Fatal("second release should be suppressed")
	}
}

func TestPerCPUPoolNoSharedRecordAcrossWorkers(t *testing.T) {
	// Claims made for two different workers, including ones served by the
	// shared fallback slab, must never alias the same slab slot while all
	// are live.
	p := NewPerCPUPool[record](2, 2, 2)
	seen := map[*record]bool{}

	var handles []Handle[record]
	for i := 0; i < 6; i++ {
		h, r, ok := p.Claim(i % 2)
		if !ok {
			t.Fatalf("claim %d failed", i)
		}
		if seen[r] {
			t.Fatalf("duplicate record pointer returned by claim %d", i)
		}
		seen[r] = true
		handles = append(handles, h)
	}
	for _, h := range handles {
		p.Release(h)
	}
}
