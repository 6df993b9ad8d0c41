package device

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestResolver(t *testing.T, mounts string, blockDevs ...string) *Resolver {
	t.Helper()

	r, err := NewResolver(`^/dev/sd[a-z]$`, "/dev/sda")
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}

	mountsPath := filepath.Join(t.TempDir(), "mounts")
	if err := os.WriteFile(mountsPath, []byte(mounts), 0o644); err != nil {
		t.Fatalf("writing mounts fixture: %v", err)
	}
	r.mountsPath = mountsPath

	known := make(map[string]bool, len(blockDevs))
	for _, d := range blockDevs {
		known[d] = true
	}
	r.isBlockDev = func(path string) bool { return known[path] }

	return r
}

const sampleMounts = `/dev/sda1 / ext4 rw,relatime 0 0
proc /proc proc rw 0 0
/dev/sdc1 /mnt/usb vfat rw 0 0
`

func TestValidateTarget_RejectsBadName(t *testing.T) {
	r := newTestResolver(t, sampleMounts, "/dev/sdb", "/dev/sdb1")

	cases := []string{"/dev/sdb1", "/dev/nvme0n1", "/dev/mapper/pool", "sdb", ""}
	for _, path := range cases {
		if _, err := r.ValidateTarget(path); !errors.Is(err, ErrNotABlockDevice) {
			t.Fatalf("ValidateTarget(%q) error = %v, want ErrNotABlockDevice", path, err)
		}
	}
}

func TestValidateTarget_RejectsNonBlockFile(t *testing.T) {
	// Name matches the pattern but the path is not a block special file.
	r := newTestResolver(t, sampleMounts)

	if _, err := r.ValidateTarget("/dev/sdb"); !errors.Is(err, ErrNotABlockDevice) {
		t.Fatalf("error = %v, want ErrNotABlockDevice", err)
	}
}

func TestValidateTarget_ProtectsSystemDisk(t *testing.T) {
	// /dev/sda is a perfectly valid block device; it must still be rejected,
	// and with the system-disk reason rather than the mount reason.
	r := newTestResolver(t, sampleMounts, "/dev/sda")

	if _, err := r.ValidateTarget("/dev/sda"); !errors.Is(err, ErrSystemDiskProtected) {
		t.Fatalf("error = %v, want ErrSystemDiskProtected", err)
	}
}

func TestValidateTarget_RejectsMountedDevice(t *testing.T) {
	r := newTestResolver(t, sampleMounts, "/dev/sdc")

	// /dev/sdc itself is not in the table but its partition /dev/sdc1 is.
	if _, err := r.ValidateTarget("/dev/sdc"); !errors.Is(err, ErrDeviceMounted) {
		t.Fatalf("error = %v, want ErrDeviceMounted", err)
	}
}

func TestValidateTarget_AcceptsValidDevice(t *testing.T) {
	r := newTestResolver(t, sampleMounts, "/dev/sdb")

	dev, err := r.ValidateTarget("/dev/sdb")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev.Path != "/dev/sdb" || dev.Name != "sdb" {
		t.Fatalf("unexpected device: %+v", dev)
	}
}

func TestValidateTarget_Idempotent(t *testing.T) {
	r := newTestResolver(t, sampleMounts, "/dev/sdc")

	first, err1 := r.ValidateTarget("/dev/sdc")
	second, err2 := r.ValidateTarget("/dev/sdc")
	if !errors.Is(err1, ErrDeviceMounted) || !errors.Is(err2, ErrDeviceMounted) {
		t.Fatalf("errors = %v, %v; want ErrDeviceMounted twice", err1, err2)
	}
	if first != second {
		t.Fatalf("results differ across identical calls: %+v vs %+v", first, second)
	}
}

func TestList_ReadsSysfs(t *testing.T) {
	sysBlock := t.TempDir()
	sdb := filepath.Join(sysBlock, "sdb")
	if err := os.MkdirAll(filepath.Join(sdb, "device"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFixture(t, filepath.Join(sdb, "removable"), "1\n")
	writeFixture(t, filepath.Join(sdb, "size"), "30619648\n")
	writeFixture(t, filepath.Join(sdb, "device", "model"), "DataTraveler 3.0\n")
	writeFixture(t, filepath.Join(sdb, "device", "vendor"), "Kingston\n")

	// Virtual devices must be skipped.
	if err := os.MkdirAll(filepath.Join(sysBlock, "loop0"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(sysBlock, "dm-0"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	r := newTestResolver(t, sampleMounts)
	r.sysBlockPath = sysBlock

	devices, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(devices) != 1 {
		t.Fatalf("expected 1 device, got %d: %+v", len(devices), devices)
	}

	dev := devices[0]
	if dev.Path != "/dev/sdb" || !dev.Removable || dev.Model != "DataTraveler 3.0" || dev.Vendor != "Kingston" {
		t.Fatalf("unexpected device: %+v", dev)
	}
	if dev.Size != 30619648*512 {
		t.Fatalf("size = %d, want %d", dev.Size, uint64(30619648*512))
	}
}

func TestFormatSize(t *testing.T) {
	cases := []struct {
		bytes uint64
		want  string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{15 * 1024 * 1024 * 1024, "15.0 GB"},
	}
	for _, tc := range cases {
		if got := FormatSize(tc.bytes); got != tc.want {
			t.Fatalf("FormatSize(%d) = %q, want %q", tc.bytes, got, tc.want)
		}
	}
}

func writeFixture(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", path, err)
	}
}
