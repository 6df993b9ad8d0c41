package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/superfly/fsm"

	"github.com/mik-tf/isobootmaker/internal/config"
	"github.com/mik-tf/isobootmaker/pkg/db"
	"github.com/mik-tf/isobootmaker/pkg/device"
	"github.com/mik-tf/isobootmaker/pkg/errors"
	"github.com/mik-tf/isobootmaker/pkg/flow"
	"github.com/mik-tf/isobootmaker/pkg/image"
	"github.com/mik-tf/isobootmaker/pkg/prompt"
	"github.com/mik-tf/isobootmaker/pkg/storage"
	"github.com/mik-tf/isobootmaker/pkg/sysops"
)

var rootCmd = &cobra.Command{
	Use:   "isobootmaker",
	Short: "Write a bootable ISO image to a removable device",
	Long: `Interactive wizard that writes an ISO image onto a removable block
device: unmount, pick the target, pick the image (local file, URL, or
s3:// URI), confirm, write, sync, and optionally eject.

Type "exit" at any prompt to cancel.`,
	SilenceUsage: true,
	RunE:         runWrite,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("sqlite-path", "", "session journal database path")
	rootCmd.PersistentFlags().String("fsm-db-path", "", "workflow state database path")
	rootCmd.PersistentFlags().String("download-dir", "", "directory for downloaded images")
	rootCmd.PersistentFlags().String("image-extension", ".iso", "required image file extension")
	rootCmd.PersistentFlags().String("s3-region", "us-east-1", "region for s3:// image sources")
	rootCmd.PersistentFlags().String("device-pattern", `^/dev/sd[a-z]$`, "accepted target device paths")
	rootCmd.PersistentFlags().String("system-disk", "/dev/sda", "disk that must never be written")
	rootCmd.PersistentFlags().String("block-size", "4M", "block size for the raw copy")

	viper.BindPFlag("sqlite-path", rootCmd.PersistentFlags().Lookup("sqlite-path"))
	viper.BindPFlag("fsm-db-path", rootCmd.PersistentFlags().Lookup("fsm-db-path"))
	viper.BindPFlag("download-dir", rootCmd.PersistentFlags().Lookup("download-dir"))
	viper.BindPFlag("image-extension", rootCmd.PersistentFlags().Lookup("image-extension"))
	viper.BindPFlag("s3-region", rootCmd.PersistentFlags().Lookup("s3-region"))
	viper.BindPFlag("device-pattern", rootCmd.PersistentFlags().Lookup("device-pattern"))
	viper.BindPFlag("system-disk", rootCmd.PersistentFlags().Lookup("system-disk"))
	viper.BindPFlag("block-size", rootCmd.PersistentFlags().Lookup("block-size"))
}

func runWrite(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "config invalid")
	}

	if err := sysops.CheckDependencies(os.Geteuid() == 0); err != nil {
		return err
	}

	if err := ensureDirectories(cfg.SQLitePath, cfg.FSMDBPath, cfg.DownloadDir); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "journal init failed")
	}
	defer repo.Close()

	s3Client, err := storage.NewClient(ctx, cfg.S3Region)
	if err != nil {
		return errors.Wrap(err, "S3 client failed")
	}

	resolver, err := device.NewResolver(cfg.DevicePattern, cfg.SystemDisk)
	if err != nil {
		return errors.Wrap(err, "device resolver failed")
	}

	acquirer := image.NewAcquirer(cfg.DownloadDir, cfg.ImageExtension, s3Client)
	prompter := prompt.New(os.Stdin, os.Stdout)
	sys := sysops.NewManager(cfg.BlockSize)

	manager, err := fsm.New(fsm.Config{DBPath: cfg.FSMDBPath})
	if err != nil {
		return errors.Wrap(err, "FSM manager failed")
	}
	defer manager.Shutdown(10 * time.Second)

	machine := flow.NewMachine(prompter, resolver, acquirer, sys, repo)
	start, _, err := machine.Register(ctx, manager)
	if err != nil {
		return errors.Wrap(err, "FSM register failed")
	}

	sessionKey := time.Now().UTC().Format("20060102-150405")
	req := &flow.WriteRequest{SessionKey: sessionKey}
	resp := &flow.WriteSession{}

	version, err := start(ctx, sessionKey, fsm.NewRequest(req, resp))
	if err != nil {
		return errors.Wrap(err, "FSM start failed")
	}

	if err := manager.Wait(ctx, version); err != nil {
		return errors.Wrap(err, "write session failed")
	}

	// A cancelled session is a clean exit, not an error.
	return nil
}
