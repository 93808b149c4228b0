//go:build linux

package worker

import "golang.org/x/sys/unix"

// platformWritev issues a single real vectored write, satisfying spec.md
// §4.5's "emit the pair via vectored write" literally.
func platformWritev(fd int, iovs [][]byte) (int, error) {
	return unix.Writev(fd, iovs)
}
