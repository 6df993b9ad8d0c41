//go:build !unix

package device

// isBlockDevice always fails off unix; there is no raw block device to write.
func isBlockDevice(path string) bool {
	return false
}
