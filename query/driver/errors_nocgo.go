//go:build !cgo

package driver

func isCgoDuplicateKey(error) bool {
	return false
}
