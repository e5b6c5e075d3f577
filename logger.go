package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// parseLogLevel converts a config string into a slog level
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "error":
		return slog.LevelError, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level: %s (must be error, warn, info, or debug)", level)
	}
}

// stateDir is soundbar's directory under XDG_STATE_HOME, falling back to
// ~/.local/state
func stateDir() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateHome = filepath.Join(homeDir, ".local", "state")
	}
	return filepath.Join(stateHome, "soundbar"), nil
}

func defaultLogFile() string {
	dir, err := stateDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "soundbar.log")
	}
	return filepath.Join(dir, "soundbar.log")
}

// setupLogger creates a text logger writing to path. The terminal belongs
// to the UI, so logs never go to stdout.
func setupLogger(level, path string) (*slog.Logger, io.Closer, error) {
	slogLevel, err := parseLogLevel(level)
	if err != nil {
		return nil, nil, err
	}
	if path == "" {
		path = defaultLogFile()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
	}
	handler := slog.NewTextHandler(f, opts)
	return slog.New(handler), f, nil
}
