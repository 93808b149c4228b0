//go:build !linux

package worker

import "golang.org/x/sys/unix"

// platformWritev emulates a vectored write with sequential unix.Write
// calls, since golang.org/x/sys/unix does not expose writev outside
// Linux/illumos. It stops at the first short write or error so the
// caller's would-block and partial-write handling stay identical to the
// real syscall's semantics.
func platformWritev(fd int, iovs [][]byte) (int, error) {
	total := 0
	for _, buf := range iovs {
		if len(buf) == 0 {
			continue
		}
		n, err := unix.Write(fd, buf)
		total += n
		if err != nil {
			return total, err
		}
		if n < len(buf) {
			return total, nil
		}
	}
	return total, nil
}
