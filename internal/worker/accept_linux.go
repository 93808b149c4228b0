//go:build linux

package worker

import "golang.org/x/sys/unix"

// platformAccept accepts one pending connection already set non-blocking,
// using accept4's atomic flag support to avoid the separate fcntl round
// trip the teacher's Engine.acceptConnections needs (core/engine.go).
func platformAccept(listenerFD int) (int, error) {
	return unix.Accept4(listenerFD, unix.SOCK_NONBLOCK)
}
