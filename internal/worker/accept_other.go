//go:build !linux

package worker

import "golang.org/x/sys/unix"

// platformAccept accepts one pending connection and sets it non-blocking
// with a separate syscall, matching the teacher's darwin path
// (syscall.Accept + syscall.SetNonblock in core/engine.go) since accept4
// is not available outside Linux in golang.org/x/sys/unix's BSD build.
func platformAccept(listenerFD int) (int, error) {
	nfd, _, err := unix.Accept(listenerFD)
	if err != nil {
		return -1, err
	}
	if err := unix.SetNonblock(nfd, true); err != nil {
		unix.Close(nfd)
		return -1, err
	}
	return nfd, nil
}
