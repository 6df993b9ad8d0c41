// Package device enumerates block devices and validates write targets.
// Validation applies three safety gates in a fixed order: the path must name
// a whole block device, must not be the system disk, and must not appear in
// the live mount table. The first failing gate wins and the caller re-prompts;
// nothing here ever auto-corrects or auto-unmounts.
package device

import (
	"bufio"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Rejection reasons, checked in order. First failure wins.
var (
	ErrNotABlockDevice     = errors.New("not a block device")
	ErrSystemDiskProtected = errors.New("system disk is protected")
	ErrDeviceMounted       = errors.New("device is currently mounted")
)

// Device describes one block device for presentation and selection.
type Device struct {
	Path      string
	Name      string
	Size      uint64
	Model     string
	Vendor    string
	Removable bool
}

// Resolver validates candidate target devices against the configured safety
// rules and lists the devices currently attached to the system.
type Resolver struct {
	pattern    *regexp.Regexp
	systemDisk string

	// Overridable for tests.
	mountsPath   string
	sysBlockPath string
	isBlockDev   func(path string) bool
}

// NewResolver compiles the accepted device-name pattern and returns a
// resolver protecting systemDisk.
func NewResolver(pattern, systemDisk string) (*Resolver, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid device pattern %q: %w", pattern, err)
	}
	return &Resolver{
		pattern:      re,
		systemDisk:   systemDisk,
		mountsPath:   "/proc/mounts",
		sysBlockPath: "/sys/block",
		isBlockDev:   isBlockDevice,
	}, nil
}

// ValidateTarget checks candidatePath against the safety gates and returns
// the device only when all of them hold. Re-running with the same rejected
// input and unchanged system state yields the same rejection.
func (r *Resolver) ValidateTarget(candidatePath string) (Device, error) {
	if !r.pattern.MatchString(candidatePath) || !r.isBlockDev(candidatePath) {
		slog.Info("device_rejected", "path", candidatePath, "reason", "not_a_block_device")
		return Device{}, fmt.Errorf("%s: %w", candidatePath, ErrNotABlockDevice)
	}

	if candidatePath == r.systemDisk {
		slog.Info("device_rejected", "path", candidatePath, "reason", "system_disk_protected")
		return Device{}, fmt.Errorf("%s: %w", candidatePath, ErrSystemDiskProtected)
	}

	mounted, err := r.mountedSources()
	if err != nil {
		return Device{}, fmt.Errorf("reading mount table: %w", err)
	}
	for _, src := range mounted {
		// A mounted partition of the candidate counts as the candidate
		// being in use.
		if src == candidatePath || strings.HasPrefix(src, candidatePath) {
			slog.Info("device_rejected", "path", candidatePath, "reason", "device_mounted", "mounted_source", src)
			return Device{}, fmt.Errorf("%s: %w", candidatePath, ErrDeviceMounted)
		}
	}

	slog.Info("device_validated", "path", candidatePath)
	return Device{Path: candidatePath, Name: filepath.Base(candidatePath)}, nil
}

// List enumerates whole disks under /sys/block for presentation before the
// operator picks a target. Virtual devices are skipped.
func (r *Resolver) List() ([]Device, error) {
	entries, err := os.ReadDir(r.sysBlockPath)
	if err != nil {
		return nil, fmt.Errorf("listing block devices: %w", err)
	}

	var devices []Device
	for _, entry := range entries {
		name := entry.Name()
		if isVirtualDevice(name) {
			continue
		}

		sysPath := filepath.Join(r.sysBlockPath, name)
		dev := Device{
			Path: filepath.Join("/dev", name),
			Name: name,
		}

		if b, err := os.ReadFile(filepath.Join(sysPath, "removable")); err == nil {
			dev.Removable = strings.TrimSpace(string(b)) == "1"
		}
		if b, err := os.ReadFile(filepath.Join(sysPath, "size")); err == nil {
			sectors, _ := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
			dev.Size = sectors * 512
		}
		if b, err := os.ReadFile(filepath.Join(sysPath, "device/model")); err == nil {
			dev.Model = strings.TrimSpace(string(b))
		}
		if b, err := os.ReadFile(filepath.Join(sysPath, "device/vendor")); err == nil {
			dev.Vendor = strings.TrimSpace(string(b))
		}

		devices = append(devices, dev)
	}

	sort.Slice(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

// mountedSources returns the source column of the live mount table.
func (r *Resolver) mountedSources() ([]string, error) {
	f, err := os.Open(r.mountsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var sources []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		sources = append(sources, fields[0])
	}
	return sources, scanner.Err()
}

func isVirtualDevice(name string) bool {
	for _, prefix := range []string{"loop", "ram", "sr", "dm-", "md", "zram"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// FormatSize renders a byte count for the device table.
func FormatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
