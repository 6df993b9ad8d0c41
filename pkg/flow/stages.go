package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mik-tf/isobootmaker/pkg/db"
	"github.com/mik-tf/isobootmaker/pkg/device"
	"github.com/mik-tf/isobootmaker/pkg/errors"
	"github.com/mik-tf/isobootmaker/pkg/prompt"
)

func (m *Machine) cancel(sess *WriteSession) {
	sess.Outcome = OutcomeCancelled
}

// stageShowLayout prints the current block device layout. Listing failures
// are informational only; the operator can still type a device path.
func (m *Machine) stageShowLayout(_ context.Context, sess *WriteSession) error {
	slog.Info("session_start", "session_key", sess.SessionKey)
	m.prompter.Println("Current disk layout:")
	devices, err := m.resolver.List()
	if err != nil {
		slog.Warn("device_list_failed", "error", err)
		m.prompter.Println("  (device listing unavailable)")
		return nil
	}
	if len(devices) == 0 {
		m.prompter.Println("  (no removable block devices found)")
		return nil
	}
	for _, d := range devices {
		label := strings.TrimSpace(d.Vendor + " " + d.Model)
		if label == "" {
			label = "unknown"
		}
		m.prompter.Printf("  %-12s %10s  %s\n", d.Path, device.FormatSize(d.Size), label)
	}
	return nil
}

// stageUnmount optionally unmounts a path before the target is chosen.
// Unmount failures are warnings, not fatal; the mounted-device gate in
// select_target still protects the write.
func (m *Machine) stageUnmount(ctx context.Context, sess *WriteSession) error {
	want, err := m.prompter.YesNo("Unmount a mounted path before continuing?")
	if errors.Is(err, prompt.ErrCancelled) {
		m.cancel(sess)
		return nil
	}
	if err != nil {
		return err
	}
	sess.UnmountRequested = want
	if !want {
		return nil
	}

	path, err := m.prompter.Text("Path to unmount (e.g. /mnt/usb):")
	if errors.Is(err, prompt.ErrCancelled) {
		m.cancel(sess)
		return nil
	}
	if err != nil {
		return err
	}

	if err := m.sys.EnsureElevated(ctx); err != nil {
		slog.Warn("unmount_skipped", "path", path, "error", err)
		m.prompter.Printf("Warning: cannot unmount %s: %v\n", path, err)
		return nil
	}
	if err := m.sys.Unmount(ctx, path); err != nil {
		slog.Warn("unmount_failed", "path", path, "error", err)
		m.prompter.Printf("Warning: unmount of %s failed: %v\n", path, err)
		return nil
	}
	sess.UnmountedPath = path
	slog.Info("unmounted", "path", path)
	m.prompter.Printf("Unmounted %s.\n", path)
	return nil
}

// stageSelectTarget re-prompts until a device passes all safety gates.
func (m *Machine) stageSelectTarget(_ context.Context, sess *WriteSession) error {
	for {
		input, err := m.prompter.Text("Target device (e.g. /dev/sdb):")
		if errors.Is(err, prompt.ErrCancelled) {
			m.cancel(sess)
			return nil
		}
		if err != nil {
			return err
		}
		dev, err := m.resolver.ValidateTarget(input)
		if err != nil {
			slog.Info("target_rejected", "input", input, "reason", err)
			m.prompter.Printf("Cannot use %s: %v\n", input, err)
			continue
		}
		sess.TargetDevice = dev.Path
		slog.Info("target_selected", "device", dev.Path)
		return nil
	}
}

// stageSelectImage re-prompts until an image resolves to a valid local file.
func (m *Machine) stageSelectImage(ctx context.Context, sess *WriteSession) error {
	for {
		input, err := m.prompter.Text("Image file, URL, or s3:// URI:")
		if errors.Is(err, prompt.ErrCancelled) {
			m.cancel(sess)
			return nil
		}
		if err != nil {
			return err
		}
		resolved, err := m.acquirer.Resolve(ctx, input)
		if err != nil {
			slog.Info("image_rejected", "input", input, "reason", err)
			m.prompter.Printf("Cannot use this image: %v\n", err)
			continue
		}
		sess.ImagePath = resolved.Path
		sess.ImageSource = resolved.Source
		sess.SHA256 = resolved.SHA256
		slog.Info("image_selected", "path", resolved.Path, "source", resolved.Source)
		return nil
	}
}

// stageConfirmWrite is the point of no return. Declining is a clean cancel.
func (m *Machine) stageConfirmWrite(_ context.Context, sess *WriteSession) error {
	m.prompter.Printf("About to write %s to %s.\n", sess.ImagePath, sess.TargetDevice)
	ok, err := m.prompter.YesNo("ALL DATA ON " + sess.TargetDevice + " WILL BE LOST. Continue?")
	if errors.Is(err, prompt.ErrCancelled) {
		m.cancel(sess)
		return nil
	}
	if err != nil {
		return err
	}
	if !ok {
		m.cancel(sess)
		return nil
	}
	sess.Confirmed = true
	return nil
}

// stageWrite performs the raw block copy. Any failure here is fatal and
// recorded in the journal.
func (m *Machine) stageWrite(ctx context.Context, sess *WriteSession) error {
	if err := m.sys.EnsureElevated(ctx); err != nil {
		return errors.Wrap(err, "cannot elevate privileges for write")
	}

	rec := &db.Session{
		SessionKey:  sess.SessionKey,
		DevicePath:  sess.TargetDevice,
		ImagePath:   sess.ImagePath,
		ImageSource: sess.ImageSource,
		SHA256:      sess.SHA256,
		Status:      db.StatusWriting,
	}
	if err := m.journal.Create(rec); err != nil {
		slog.Warn("journal_create_failed", "error", err)
	} else {
		sess.JournalID = rec.ID
	}

	m.prompter.Println("Writing image to device. Do not remove the device.")
	slog.Info("write_start", "device", sess.TargetDevice, "image", sess.ImagePath)
	if err := m.sys.BlockCopy(ctx, sess.ImagePath, sess.TargetDevice); err != nil {
		sess.Outcome = OutcomeFailed
		m.markFailed(sess, err)
		return errors.Wrap(err, "writing image to "+sess.TargetDevice)
	}
	return nil
}

func (m *Machine) markFailed(sess *WriteSession, cause error) {
	if sess.JournalID == 0 {
		return
	}
	if err := m.journal.UpdateStatus(sess.JournalID, db.StatusFailed, cause.Error()); err != nil {
		slog.Warn("journal_update_failed", "error", err)
	}
}

// stageSync flushes kernel buffers so the copy is durable, then marks the
// journal row successful.
func (m *Machine) stageSync(ctx context.Context, sess *WriteSession) error {
	m.prompter.Println("Flushing buffers...")
	if err := m.sys.SyncAll(ctx); err != nil {
		slog.Warn("sync_failed", "error", err)
	}
	if sess.JournalID != 0 {
		if err := m.journal.UpdateStatus(sess.JournalID, db.StatusSuccess, ""); err != nil {
			slog.Warn("journal_update_failed", "error", err)
		}
	}
	slog.Info("write_complete", "device", sess.TargetDevice)
	return nil
}

// stageOfferEject runs only after the write is durable, so cancelling or
// declining here never touches the journal status.
func (m *Machine) stageOfferEject(ctx context.Context, sess *WriteSession) error {
	want, err := m.prompter.YesNo("Eject " + sess.TargetDevice + "?")
	if errors.Is(err, prompt.ErrCancelled) {
		m.cancel(sess)
		return nil
	}
	if err != nil {
		return err
	}
	if !want {
		return nil
	}
	sess.EjectRequested = true
	if err := m.sys.EnsureElevated(ctx); err != nil {
		return errors.Wrap(err, "cannot elevate privileges for eject")
	}
	if err := m.sys.Eject(ctx, sess.TargetDevice); err != nil {
		return errors.Wrap(err, "ejecting "+sess.TargetDevice)
	}
	m.prompter.Printf("Ejected %s.\n", sess.TargetDevice)
	slog.Info("ejected", "device", sess.TargetDevice)
	return nil
}
