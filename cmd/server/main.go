// Package main is the entry point for the chattings server. It reads
// configuration, sets up logging, and starts the HTTP server; everything
// else lives in internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/whyme0/chattings/internal/config"
	"github.com/whyme0/chattings/internal/server"
)

func main() {
	cfg := config.Load()

	level := slog.LevelDebug
	if cfg.Env == "production" {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	if dir := filepath.Dir(cfg.DBPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("creating data directory failed",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
