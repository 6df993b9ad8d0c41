package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		SQLitePath:     "/tmp/state/sessions.db",
		FSMDBPath:      "/tmp/state/fsm.db",
		DownloadDir:    "/tmp/downloads",
		ImageExtension: ".iso",
		S3Region:       "us-east-1",
		DevicePattern:  `^/dev/sd[a-z]$`,
		SystemDisk:     "/dev/sda",
		BlockSize:      "4M",
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"empty sqlite path", func(c *Config) { c.SQLitePath = "" }, "sqlite-path"},
		{"empty fsm path", func(c *Config) { c.FSMDBPath = "" }, "fsm-db-path"},
		{"empty download dir", func(c *Config) { c.DownloadDir = "" }, "download-dir"},
		{"extension without dot", func(c *Config) { c.ImageExtension = "iso" }, "image-extension"},
		{"bad device pattern", func(c *Config) { c.DevicePattern = "[" }, "device-pattern"},
		{"system disk not a dev path", func(c *Config) { c.SystemDisk = "sda" }, "system-disk"},
		{"empty block size", func(c *Config) { c.BlockSize = "" }, "block-size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.ImageExtension != ".iso" {
		t.Fatalf("ImageExtension = %q, want .iso", cfg.ImageExtension)
	}
	if cfg.SystemDisk != "/dev/sda" {
		t.Fatalf("SystemDisk = %q, want /dev/sda", cfg.SystemDisk)
	}
}
