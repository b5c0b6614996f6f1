package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/csmith/envflag/v2"
	"github.com/joho/godotenv"

	"github.com/handiism/bandcamp-catalog/internal/app"
	"github.com/handiism/bandcamp-catalog/internal/config"
	"github.com/handiism/bandcamp-catalog/internal/tui"
)

var (
	configPath = flag.String("config", "", "Path to the settings file (default: user config dir)")
	logPath    = flag.String("log-file", "", "Write logs to this file (default: bandcamp-tui.log in the config dir)")
	debug      = flag.Bool("debug", false, "Log debug messages")
)

func main() {
	_ = godotenv.Load()
	envflag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	path := *configPath
	if path == "" {
		path = config.DefaultPath()
	}
	settings, err := config.Load(path)
	if err != nil {
		return err
	}

	// The terminal belongs to the UI, so logs go to a file.
	lp := *logPath
	if lp == "" {
		lp = filepath.Join(config.Dir(), "bandcamp-tui.log")
	}
	if err := os.MkdirAll(filepath.Dir(lp), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(lp, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	a, err := app.New(context.Background(), settings, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return tui.Run(tui.Deps{
		Catalog:       a.Provider,
		Downloads:     a.Downloads,
		DownloadsPath: settings.DownloadsPath,
	})
}
