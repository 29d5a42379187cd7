// Package main is the entry point for the recipe API server.
//
// main only reads configuration, builds the logger, makes sure the data
// directories exist and hands over to internal/server.
package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/sakif/recipe-api/internal/config"
	"github.com/sakif/recipe-api/internal/server"
)

func main() {
	cfg, err := config.Load(context.Background())
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	// MkdirAll is a no-op for directories that already exist.
	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("path", cfg.DBPath),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}
	if err := os.MkdirAll(cfg.MediaRoot, 0o755); err != nil {
		logger.Error("failed to create media directory",
			slog.String("dir", cfg.MediaRoot),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT/SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger picks the text or JSON handler from LOG_FORMAT.
func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
