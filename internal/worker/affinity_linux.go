//go:build linux

package worker

import (
	"log"

	"golang.org/x/sys/unix"
)

// applyAffinity pins the calling OS thread to w.cfg.CPU and raises its
// scheduling priority, per spec.md §4.2: "workers may set CPU affinity and
// an elevated scheduling class; failure of either is non-fatal and must be
// logged, not propagated." Run() must have called runtime.LockOSThread
// before this executes, or the pin applies to whichever thread the
// goroutine happens to be on at the syscall.
func (w *Worker) applyAffinity() {
	if !w.cfg.PinCPU {
		return
	}

	var set unix.CPUSet
	set.Zero()
	set.Set(w.cfg.CPU)
	tid := unix.Gettid()
	if err := unix.SchedSetaffinity(tid, &set); err != nil {
		log.Printf("worker %d: SchedSetaffinity(cpu=%d) failed: %v", w.cfg.ID, w.cfg.CPU, err)
	}

	// A modest negative niceness; this is best-effort and frequently
	// fails under an unprivileged account, which is fine.
	if err := unix.Setpriority(unix.PRIO_PROCESS, tid, -5); err != nil {
		log.Printf("worker %d: Setpriority failed: %v", w.cfg.ID, err)
	}
}
