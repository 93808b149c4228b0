// Package metrics is the fire-and-forget counter/histogram sink spec.md
// §1/§4.6/§9 describes as an external collaborator and an injection point
// rather than a contract. It is grounded in the teacher's
// observability.PerformanceMonitor (core/observability/monitor.go): atomic
// counters keyed by a sync.Map, no locking on the hot path, no blocking
// call anywhere in Record*.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type pathCounters struct {
	total  atomic.Uint64
	errors sync.Map // status code (int) -> *atomic.Uint64
}

// Sink accumulates per-path request totals, per-(path,status) error
// counts, and a coarse latency histogram. All methods are safe for
// concurrent use by every worker without coordination.
type Sink struct {
	paths          sync.Map // path (string) -> *pathCounters
	latencyBuckets [12]atomic.Uint64
}

// New returns an empty metrics sink.
func New() *Sink {
	return &Sink{}
}

func (s *Sink) counters(path string) *pathCounters {
	if v, ok := s.paths.Load(path); ok {
		return v.(*pathCounters)
	}
	v, _ := s.paths.LoadOrStore(path, &pathCounters{})
	return v.(*pathCounters)
}

// RecordRequest increments the total-requests counter for path, and the
// error counter for (path, status) when status != 200, per spec.md §4.6.
func (s *Sink) RecordRequest(path string, status int) {
	pc := s.counters(path)
	pc.total.Add(1)
	if status != 200 {
		v, _ := pc.errors.LoadOrStore(status, new(atomic.Uint64))
		v.(*atomic.Uint64).Add(1)
	}
}

// latencyBucketBounds are upper bounds in microseconds for each histogram
// bucket, chosen for the sub-millisecond-to-tens-of-milliseconds range
// this engine's static-payload responses live in.
var latencyBucketBounds = [12]time.Duration{
	10 * time.Microsecond, 25 * time.Microsecond, 50 * time.Microsecond,
	100 * time.Microsecond, 250 * time.Microsecond, 500 * time.Microsecond,
	1 * time.Millisecond, 2500 * time.Microsecond, 5 * time.Millisecond,
	10 * time.Millisecond, 25 * time.Millisecond, 50 * time.Millisecond,
}

// ObserveLatency records a single request's end-to-end handler latency.
func (s *Sink) ObserveLatency(d time.Duration) {
	for i, bound := range latencyBucketBounds {
		if d <= bound {
			s.latencyBuckets[i].Add(1)
			return
		}
	}
	s.latencyBuckets[len(s.latencyBuckets)-1].Add(1)
}

// PathTotal returns the total-requests count for path (test/debug use).
func (s *Sink) PathTotal(path string) uint64 {
	if v, ok := s.paths.Load(path); ok {
		return v.(*pathCounters).total.Load()
	}
	return 0
}

// PathErrors returns the error count for (path, status).
func (s *Sink) PathErrors(path string, status int) uint64 {
	if v, ok := s.paths.Load(path); ok {
		pc := v.(*pathCounters)
		if e, ok := pc.errors.Load(status); ok {
			return e.(*atomic.Uint64).Load()
		}
	}
	return 0
}
