//go:build !linux

package sysops

import (
	"context"
	"fmt"
	"runtime"
)

// StubManager rejects every privileged operation on unsupported platforms.
type StubManager struct{}

// NewManager returns a stub manager on non-Linux systems.
func NewManager(blockSize string) Manager {
	return &StubManager{}
}

func (m *StubManager) EnsureElevated(ctx context.Context) error {
	return fmt.Errorf("device operations not supported on %s", runtime.GOOS)
}

func (m *StubManager) Unmount(ctx context.Context, path string) error {
	return fmt.Errorf("device operations not supported on %s", runtime.GOOS)
}

func (m *StubManager) BlockCopy(ctx context.Context, imagePath, devicePath string) error {
	return fmt.Errorf("device operations not supported on %s", runtime.GOOS)
}

func (m *StubManager) SyncAll(ctx context.Context) error {
	return fmt.Errorf("device operations not supported on %s", runtime.GOOS)
}

func (m *StubManager) Eject(ctx context.Context, devicePath string) error {
	return fmt.Errorf("device operations not supported on %s", runtime.GOOS)
}
