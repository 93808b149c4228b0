//go:build arm64

package scan

import "golang.org/x/sys/cpu"

var hasSIMD = cpu.ARM64.HasASIMD

// validURLBytesVectorized scans 8 bytes at a time on ASIMD-capable CPUs,
// the same widened-loop shape as the amd64 variant.
func validURLBytesVectorized(b []byte) bool {
	i := 0
	for ; i+8 <= len(b); i += 8 {
		ok := true
		for j := 0; j < 8; j++ {
			if !urlCharClass[b[i+j]] {
				ok = false
				break
			}
		}
		if !ok {
			return false
		}
	}
	for ; i < len(b); i++ {
		if !urlCharClass[b[i]] {
			return false
		}
	}
	return true
}
