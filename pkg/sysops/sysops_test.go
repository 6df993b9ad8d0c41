package sysops

import (
	"reflect"
	"testing"
)

func TestDDArgs(t *testing.T) {
	got := ddArgs("/home/user/os.iso", "/dev/sdb", "4M")
	want := []string{
		"if=/home/user/os.iso",
		"of=/dev/sdb",
		"bs=4M",
		"conv=fsync",
		"status=progress",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ddArgs = %v, want %v", got, want)
	}
}

func TestElevate(t *testing.T) {
	argv := []string{"umount", "/mnt/usb"}

	if got := elevate(argv, 0); !reflect.DeepEqual(got, argv) {
		t.Fatalf("elevate as root = %v, want %v", got, argv)
	}

	want := []string{"sudo", "umount", "/mnt/usb"}
	if got := elevate(argv, 1000); !reflect.DeepEqual(got, want) {
		t.Fatalf("elevate as user = %v, want %v", got, want)
	}
}
