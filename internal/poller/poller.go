// Package poller is the I/O multiplexer abstraction spec.md §4.2
// requires: edge-triggered, one-shot registration that must be re-armed
// after every interaction, with an exclusive-wake listener registration
// so only one worker wakes per incoming connection. Grounded in the
// teacher's poller.Poller interface (core/poller/poller.go), extended
// from its level-triggered Add/Remove/Wait shape to the edge-triggered
// one-shot ArmRead/ArmWrite contract this spec requires.
package poller

// Event reports what fired on one file descriptor.
type Event struct {
	FD       int
	Readable bool
	Writable bool
	// Err is set on hang-up or an error condition reported by the
	// multiplexer itself (EPOLLERR/EPOLLHUP, EV_EOF).
	Err bool
}

// Poller is the edge-triggered, one-shot I/O multiplexer interface every
// worker owns exactly one instance of.
type Poller interface {
	// AddListener registers the shared listening socket in exclusive-wake
	// mode, per spec.md §4.2, so an incoming connection wakes only one
	// worker.
	AddListener(fd int) error

	// ArmRead (re-)arms fd for a single readable-or-hangup event.
	ArmRead(fd int) error

	// ArmWrite (re-)arms fd for a single writable-or-hangup event.
	ArmWrite(fd int) error

	// Remove deregisters fd. Safe to call on an fd already removed.
	Remove(fd int) error

	// Wait blocks up to timeoutMs milliseconds (or indefinitely when
	// timeoutMs < 0) and returns the events that fired, capped at the
	// batch size spec.md §4.2 calls out (1,024-2,048).
	Wait(timeoutMs int) ([]Event, error)

	Close() error
}
