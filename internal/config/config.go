package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Database paths
	SQLitePath string `mapstructure:"sqlite-path"`
	FSMDBPath  string `mapstructure:"fsm-db-path"`

	// Image acquisition
	DownloadDir    string `mapstructure:"download-dir"`
	ImageExtension string `mapstructure:"image-extension"`
	S3Region       string `mapstructure:"s3-region"`

	// Device safety
	DevicePattern string `mapstructure:"device-pattern"`
	SystemDisk    string `mapstructure:"system-disk"`

	// Write parameters
	BlockSize string `mapstructure:"block-size"`
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve home directory: %w", err)
	}
	stateDir := filepath.Join(home, ".isobootmaker")

	// Set defaults
	viper.SetDefault("sqlite-path", filepath.Join(stateDir, "sessions.db"))
	viper.SetDefault("fsm-db-path", filepath.Join(stateDir, "fsm.db"))
	viper.SetDefault("download-dir", filepath.Join(home, "Downloads"))
	viper.SetDefault("image-extension", ".iso")
	viper.SetDefault("s3-region", "us-east-1")
	viper.SetDefault("device-pattern", `^/dev/sd[a-z]$`)
	viper.SetDefault("system-disk", "/dev/sda")
	viper.SetDefault("block-size", "4M")

	// Environment variables (will be ISOBOOT_SQLITE_PATH, etc.)
	viper.SetEnvPrefix("ISOBOOT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath(stateDir)

	// Read config file (ignore if not found)
	_ = viper.ReadInConfig()

	// Unmarshal into config struct
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if c.SQLitePath == "" {
		return fmt.Errorf("sqlite-path cannot be empty")
	}
	if c.FSMDBPath == "" {
		return fmt.Errorf("fsm-db-path cannot be empty")
	}
	if c.DownloadDir == "" {
		return fmt.Errorf("download-dir cannot be empty")
	}
	if !strings.HasPrefix(c.ImageExtension, ".") {
		return fmt.Errorf("image-extension must start with a dot")
	}
	if _, err := regexp.Compile(c.DevicePattern); err != nil {
		return fmt.Errorf("device-pattern is not a valid regexp: %w", err)
	}
	if !strings.HasPrefix(c.SystemDisk, "/dev/") {
		return fmt.Errorf("system-disk must be a /dev path")
	}
	if c.BlockSize == "" {
		return fmt.Errorf("block-size cannot be empty")
	}
	return nil
}
