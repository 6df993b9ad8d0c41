//go:build unix

package device

import (
	"os"
	"syscall"
)

// isBlockDevice reports whether path exists and is a block special file.
func isBlockDevice(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}
	return stat.Mode&syscall.S_IFMT == syscall.S_IFBLK
}
