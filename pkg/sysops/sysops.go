// Package sysops wraps the privileged operating-system operations the tool
// depends on: unmounting, the raw block copy, the global flush, and device
// ejection. The orchestrator only ever sees typed results from the Manager
// interface, never raw process exit codes.
package sysops

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrPrivilegeDenied is returned when elevated rights cannot be obtained.
var ErrPrivilegeDenied = errors.New("elevated privileges denied")

// Manager performs the privileged device operations.
type Manager interface {
	// EnsureElevated acquires elevated rights, prompting the operator if
	// needed. Called lazily, immediately before each privileged action.
	EnsureElevated(ctx context.Context) error

	// Unmount detaches the filesystem mounted at path.
	Unmount(ctx context.Context, path string) error

	// BlockCopy writes imagePath byte-for-byte onto devicePath with a
	// durability flag; data is on the device when it returns nil.
	BlockCopy(ctx context.Context, imagePath, devicePath string) error

	// SyncAll flushes all buffered filesystem writes.
	SyncAll(ctx context.Context) error

	// Eject ejects the removable device.
	Eject(ctx context.Context, devicePath string) error
}

// CheckDependencies verifies the required external utilities are present.
// It runs once at startup, before any interaction; a missing utility is
// fatal.
func CheckDependencies(elevated bool) error {
	required := []string{"dd", "umount", "eject"}
	if !elevated {
		required = append(required, "sudo")
	}

	var missing []string
	for _, cmd := range required {
		if _, err := exec.LookPath(cmd); err != nil {
			missing = append(missing, cmd)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required commands: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ddArgs builds the block-copy invocation. conv=fsync makes dd flush to the
// device before exiting; status=progress is dd's own incremental reporting.
func ddArgs(imagePath, devicePath, blockSize string) []string {
	return []string{
		"if=" + imagePath,
		"of=" + devicePath,
		"bs=" + blockSize,
		"conv=fsync",
		"status=progress",
	}
}

// elevate prefixes argv with sudo unless the process already runs as root.
func elevate(argv []string, euid int) []string {
	if euid == 0 {
		return argv
	}
	return append([]string{"sudo"}, argv...)
}
