package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mik-tf/isobootmaker/internal/config"
	"github.com/mik-tf/isobootmaker/pkg/db"
	"github.com/mik-tf/isobootmaker/pkg/errors"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past write sessions and their status",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "config load failed")
	}

	if err := ensureDirectories(cfg.SQLitePath, "", ""); err != nil {
		return err
	}

	repo, err := db.NewRepository(cfg.SQLitePath)
	if err != nil {
		return errors.Wrap(err, "journal init failed")
	}
	defer repo.Close()

	sessions, err := repo.List()
	if err != nil {
		return errors.Wrap(err, "list failed")
	}

	if len(sessions) == 0 {
		fmt.Println("No write sessions recorded")
		return nil
	}

	fmt.Printf("%-18s %-12s %-12s %-8s %s\n", "SESSION", "DEVICE", "STATUS", "SOURCE", "IMAGE")
	fmt.Println("--------------------------------------------------------------------------------")

	for _, s := range sessions {
		imagePath := s.ImagePath
		if s.Status == db.StatusFailed && s.ErrorMessage != "" {
			imagePath = fmt.Sprintf("%s (%s)", s.ImagePath, s.ErrorMessage)
		}
		fmt.Printf("%-18s %-12s %-12s %-8s %s\n",
			s.SessionKey, s.DevicePath, s.Status, s.ImageSource, imagePath)
	}

	return nil
}
