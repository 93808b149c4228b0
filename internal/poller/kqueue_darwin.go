//go:build darwin

package poller

import "golang.org/x/sys/unix"

// KqueuePoller is the macOS implementation, kept for darwin dev builds per
// SPEC_FULL.md §2.2. Adapted from the teacher's core/poller/kqueue.go, but
// rebuilt on golang.org/x/sys/unix (matching the epoll side) and switched
// from the teacher's deliberately level-triggered EV_ADD|EV_ENABLE registration
// to EV_CLEAR|EV_DISPATCH, which is kqueue's edge-triggered, one-shot
// equivalent: EV_CLEAR resets the event's state after delivery and
// EV_DISPATCH disables the filter until it is re-armed with EV_ENABLE.
//
// kqueue has no EPOLLEXCLUSIVE equivalent: if two kqueues watch the same
// listening fd, both wake on an incoming connection. Single-listener,
// single-kqueue-per-worker deployments (the only topology this engine
// exercises) are unaffected.
type KqueuePoller struct {
	kqfd   int
	events []unix.Kevent_t
}

// NewPoller creates a new Poller (macOS).
func NewPoller() (Poller, error) {
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	if _, err := unix.FcntlInt(uintptr(kqfd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(kqfd)
		return nil, err
	}
	return &KqueuePoller{
		kqfd:   kqfd,
		events: make([]unix.Kevent_t, batchSize),
	}, nil
}

const batchSize = 2048

func (p *KqueuePoller) register(fd int, filter int16, flags uint16) error {
	ev := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: filter,
		Flags:  flags,
	}
	_, err := unix.Kevent(p.kqfd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

// AddListener registers the shared listening socket. kqueue has no
// exclusive-wake flag; see the type comment.
func (p *KqueuePoller) AddListener(fd int) error {
	return p.register(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE)
}

// ArmRead (re-)arms fd for one readable event, auto-disabling after
// delivery (EV_DISPATCH) to mirror epoll's EPOLLONESHOT.
func (p *KqueuePoller) ArmRead(fd int) error {
	return p.register(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE|unix.EV_CLEAR|unix.EV_DISPATCH)
}

// ArmWrite (re-)arms fd for one writable event.
func (p *KqueuePoller) ArmWrite(fd int) error {
	return p.register(fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ENABLE|unix.EV_CLEAR|unix.EV_DISPATCH)
}

// Remove deregisters both filters for fd. Deleting a filter that was never
// added returns ENOENT, which is swallowed to keep Remove idempotent.
func (p *KqueuePoller) Remove(fd int) error {
	errRead := p.register(fd, unix.EVFILT_READ, unix.EV_DELETE)
	errWrite := p.register(fd, unix.EVFILT_WRITE, unix.EV_DELETE)
	if errRead != nil && errRead != unix.ENOENT {
		return errRead
	}
	if errWrite != nil && errWrite != unix.ENOENT {
		return errWrite
	}
	return nil
}

func (p *KqueuePoller) Wait(timeoutMs int) ([]Event, error) {
	var ts *unix.Timespec
	if timeoutMs >= 0 {
		ts = &unix.Timespec{
			Sec:  int64(timeoutMs / 1000),
			Nsec: int64((timeoutMs % 1000) * 1000000),
		}
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	// Multiple kevents (one per filter) can report the same fd in one
	// Wait call; merge them into a single Event per fd.
	merged := make(map[int]*Event, n)
	order := make([]int, 0, n)
	for i := 0; i < n; i++ {
		kev := p.events[i]
		fd := int(kev.Ident)
		e, ok := merged[fd]
		if !ok {
			e = &Event{FD: fd}
			merged[fd] = e
			order = append(order, fd)
		}
		switch kev.Filter {
		case unix.EVFILT_READ:
			e.Readable = true
		case unix.EVFILT_WRITE:
			e.Writable = true
		}
		if kev.Flags&unix.EV_EOF != 0 || kev.Flags&unix.EV_ERROR != 0 {
			e.Err = true
		}
	}

	out := make([]Event, 0, len(order))
	for _, fd := range order {
		out = append(out, *merged[fd])
	}
	return out, nil
}

func (p *KqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}
