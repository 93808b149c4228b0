//go:build amd64

package scan

import "golang.org/x/sys/cpu"

var hasSIMD = cpu.X86.HasAVX2

// validURLBytesVectorized scans 8 bytes at a time on AVX2-capable CPUs.
// It is a widened software scan rather than hand-written assembly: this
// pack carries no .s backing for an AVX2 byte-class compare, so this
// spec does not fabricate one (see DESIGN.md).
func validURLBytesVectorized(b []byte) bool {
	i := 0
	for ; i+8 <= len(b); i += 8 {
		var ok bool = true
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
