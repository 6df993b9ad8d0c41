package commands

import (
	"os"
	"path/filepath"

	"github.com/mik-tf/isobootmaker/pkg/errors"
)

// ensureDirectories creates all necessary directories for the application
func ensureDirectories(sqlitePath, fsmDBPath, downloadDir string) error {
	if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
		return errors.Wrap(err, "failed to create journal directory")
	}

	// FSM database (only needed for the write wizard)
	if fsmDBPath != "" {
		if err := os.MkdirAll(filepath.Dir(fsmDBPath), 0755); err != nil {
			return errors.Wrap(err, "failed to create state directory")
		}
	}

	// Download directory (only needed for the write wizard)
	if downloadDir != "" {
		if err := os.MkdirAll(downloadDir, 0755); err != nil {
			return errors.Wrap(err, "failed to create download directory")
		}
	}

	return nil
}
