package worker

import "time"

// Config holds the per-worker tunables spec.md §4-§5 name. Every field has
// a spec-derived default via DefaultConfig; callers only need to override
// ID/CPU (and PinCPU, on a shared or constrained host).
type Config struct {
	// ID is a human-readable worker index used only in log lines.
	ID int
	// CPU is the core this worker pins itself to when PinCPU is set. The
	// per-CPU pool slab a worker claims from is not taken from this field;
	// it is fixed by the ConnPool the worker is given.
	CPU int
	// PinCPU toggles the CPU-affinity/scheduling-class calls in
	// applyAffinity; both are best-effort and non-fatal on failure per
	// spec.md §4.2.
	PinCPU bool

	RequestTimeout   time.Duration
	KeepAliveTimeout time.Duration

	// AcceptBatchCap bounds accepts drained per listener wake (spec.md
	// §4.3: "<=64 or <=128").
	AcceptBatchCap int
	// ReadAttemptCap bounds read syscalls per event (spec.md §4.4/§5:
	// "8-16").
	ReadAttemptCap int
	// WriteAttemptCap bounds write syscalls per event (spec.md §4.5/§5:
	// "16-64").
	WriteAttemptCap int

	MaxRequestSize  int
	MaxResponseSize int

	// SendRecvBufHint is the SO_SNDBUF/SO_RCVBUF hint applied to accepted
	// sockets (spec.md §4.3: "32-64 KiB").
	SendRecvBufHint int

	// PollBatchSize records the per-Wait event batch size (spec.md §4.2:
	// "1,024-2,048"). No poller reads it: the epoll and kqueue pollers
	// both use a fixed batch of 2048 events set at construction.
	PollBatchSize int
}

// DefaultConfig returns the spec-median tunables for worker id pinned to
// cpu, with CPU pinning enabled.
func DefaultConfig(id, cpu int) Config {
	return Config{
		ID:               id,
		CPU:              cpu,
		PinCPU:           true,
		RequestTimeout:   5 * time.Second,
		KeepAliveTimeout: 10 * time.Second,
		AcceptBatchCap:   64,
		ReadAttemptCap:   16,
		WriteAttemptCap:  32,
		MaxRequestSize:   8192,
		MaxResponseSize:  65536,
		SendRecvBufHint:  49152,
		PollBatchSize:    2048,
	}
}
