//go:build linux

package poller

import (
	"testing"

	"golang.org/x/sys/unix"
)

func TestEpollArmReadFiresOnce(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	if err := p.ArmRead(fds[0]); err != nil {
		t.Fatalf("ArmRead: %v", err)
	}

	if _, err := unix.Write(fds[1], []byte("x")); err != nil {
		t.Fatalf("write: %v", err)
	}

	events, err := p.Wait(1000)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(events) != 1 || events[0].FD != fds[0] || !events[0].Readable {
		t.Fatalf("events = %+v, want one readable event on fds[0]", events)
	}

	// One-shot: a second byte must not produce a new event until re-armed.
	if _, err := unix.Write(fds[1], []byte("y")); err != nil {
		t.Fatalf("write: %v", err)
	}
	events, err = p.Wait(100)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected no events before re-arm, got %+v", events)
	}

	if err := p.ArmRead(fds[0]); err != nil {
		t.Fatalf("re-arm ArmRead: %v", err)
	}
	events, err = p.Wait(1000)
	if err != nil {
		t.Fatalf("Wait after re-arm: %v", err)
	}
	if len(events) != 1 || !events[0].Readable {
		t.Fatalf("events after re-arm = %+v", events)
	}
}

func TestEpollArmWriteAndRemove(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	if err := p.ArmWrite(fds[0]); err != nil {
		t.Fatalf("ArmWrite: %v", err)
	}
	events, err := p.Wait(1000)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(events) != 1 || !events[0].Writable {
		t.Fatalf("events = %+v, want one writable event", events)
	}

	if err := p.Remove(fds[0]); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// Removing twice must be safe.
	if err := p.Remove(fds[0]); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestEpollAddListenerExclusive(t *testing.T) {
	ln, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socket: %v", err)
	}
	defer unix.Close(ln)

	addr := &unix.SockaddrInet4{Port: 0}
	if err := unix.Bind(ln, addr); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := unix.Listen(ln, 16); err != nil {
		t.Fatalf("listen: %v", err)
	}

	p, err := NewPoller()
	if err != nil {
		t.Fatalf("NewPoller: %v", err)
	}
	defer p.Close()

	if err := p.AddListener(ln); err != nil {
		t.Fatalf("AddListener: %v", err)
	}
}
