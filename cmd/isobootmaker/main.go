package main

import (
	"log/slog"
	"os"

	"github.com/mik-tf/isobootmaker/cmd/isobootmaker/commands"
)

func main() {
	// Structured logs go to stderr; stdout belongs to the interactive wizard
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	commands.Execute()
}
