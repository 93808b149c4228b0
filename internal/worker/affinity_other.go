//go:build !linux

package worker

import "log"

// applyAffinity is a no-op outside Linux: unix.SchedSetaffinity has no
// portable equivalent on Darwin/BSD, and this engine's affinity pinning is
// explicitly best-effort per spec.md §4.2.
func (w *Worker) applyAffinity() {
	if w.cfg.PinCPU {
		log.Printf("worker %d: CPU affinity not supported on this platform", w.cfg.ID)
	}
}
