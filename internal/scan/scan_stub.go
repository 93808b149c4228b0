//go:build !(amd64 || arm64)

package scan

var hasSIMD = false

func validURLBytesVectorized(b []byte) bool {
	return validURLBytesScalar(b)
}
