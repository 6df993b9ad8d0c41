//go:build linux

package sysops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/mik-tf/isobootmaker/pkg/errors"
)

// LinuxManager runs the privileged operations through the system utilities,
// prefixed with sudo when the process is not already root.
type LinuxManager struct {
	blockSize string
	geteuid   func() int
}

// NewManager returns a Manager that copies with the given dd block size.
func NewManager(blockSize string) Manager {
	return &LinuxManager{
		blockSize: blockSize,
		geteuid:   os.Geteuid,
	}
}

// EnsureElevated validates sudo credentials interactively. A no-op when the
// process already runs as root.
func (m *LinuxManager) EnsureElevated(ctx context.Context) error {
	if m.geteuid() == 0 {
		return nil
	}

	slog.Info("privilege_elevation_requested")
	cmd := exec.CommandContext(ctx, "sudo", "-v")
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		slog.Error("privilege_elevation_failed", "error", err)
		return fmt.Errorf("%w: %v", ErrPrivilegeDenied, err)
	}
	return nil
}

func (m *LinuxManager) Unmount(ctx context.Context, path string) error {
	slog.Info("unmount_started", "path", path)
	if err := m.runQuiet(ctx, "umount", path); err != nil {
		slog.Warn("unmount_failed", "path", path, "error", err)
		return errors.Wrap(err, "failed to unmount")
	}
	slog.Info("unmount_complete", "path", path)
	return nil
}

// BlockCopy invokes dd with a durability flag. dd's own progress output is
// passed through to the terminal.
func (m *LinuxManager) BlockCopy(ctx context.Context, imagePath, devicePath string) error {
	argv := elevate(append([]string{"dd"}, ddArgs(imagePath, devicePath, m.blockSize)...), m.geteuid())
	slog.Info("block_copy_started", "image", imagePath, "device", devicePath, "block_size", m.blockSize)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		slog.Error("block_copy_failed", "image", imagePath, "device", devicePath, "error", err)
		return errors.Wrap(err, "block copy failed")
	}

	slog.Info("block_copy_complete", "image", imagePath, "device", devicePath)
	return nil
}

// SyncAll flushes every buffered filesystem write, unconditionally.
func (m *LinuxManager) SyncAll(ctx context.Context) error {
	slog.Info("sync_started")
	syscall.Sync()
	slog.Info("sync_complete")
	return nil
}

func (m *LinuxManager) Eject(ctx context.Context, devicePath string) error {
	slog.Info("eject_started", "device", devicePath)
	if err := m.runQuiet(ctx, "eject", devicePath); err != nil {
		slog.Error("eject_failed", "device", devicePath, "error", err)
		return errors.Wrap(err, "failed to eject device")
	}
	slog.Info("eject_complete", "device", devicePath)
	return nil
}

// runQuiet runs a utility capturing its output, folding it into the error on
// failure.
func (m *LinuxManager) runQuiet(ctx context.Context, name string, args ...string) error {
	argv := elevate(append([]string{name}, args...), m.geteuid())
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(out)); msg != "" {
			return fmt.Errorf("%s: %s: %w", name, msg, err)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
