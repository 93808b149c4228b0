package worker

import (
	"github.com/searchktools/fastcore/internal/connrec"
	"github.com/searchktools/fastcore/internal/pool"
)

// ConnPool is the narrow claim/release capability a Worker needs from
// either connection-pool variant spec.md §4.7 describes. Hiding the
// generic pool types behind this interface lets one Worker implementation
// drive Variant A or Variant B without a type switch in the hot path.
type ConnPool interface {
	// Claim returns a freshly-reset record and a release closure, or
	// ok=false on exhaustion (spec.md §4.7's "exhaustion is signalled by
	// a null result").
	Claim() (rec *connrec.Conn, release func(), ok bool)
}

type mutexPoolAdapter struct {
	p *pool.MutexPool[connrec.Conn]
}

// NewMutexConnPool wraps a Variant A global-mutex slab sized to capacity.
func NewMutexConnPool(capacity int) ConnPool {
	return &mutexPoolAdapter{p: pool.NewMutexPool[connrec.Conn](capacity)}
}

func (a *mutexPoolAdapter) Claim() (*connrec.Conn, func(), bool) {
	idx, rec, ok := a.p.Claim()
	if !ok {
		return nil, nil, false
	}
	rec.Reset()
	return rec, func() { a.p.Release(idx) }, true
}

type perCPUPoolAdapter struct {
	p   *pool.PerCPUPool[connrec.Conn]
	cpu int
}

// NewPerCPUConnPool wraps a Variant B per-CPU slab set. The same *pool.PerCPUPool
// is shared by every worker; cpu selects which worker's slab this adapter
// claims from first, falling back to the shared slab on local exhaustion.
func NewPerCPUConnPool(p *pool.PerCPUPool[connrec.Conn], cpu int) ConnPool {
	return &perCPUPoolAdapter{p: p, cpu: cpu}
}

func (a *perCPUPoolAdapter) Claim() (*connrec.Conn, func(), bool) {
	h, rec, ok := a.p.Claim(a.cpu)
	if !ok {
		return nil, nil, false
	}
	rec.Reset()
	return rec, func() { a.p.Release(h) }, true
}
