// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging provides structured file-based logging for lumen-tui.
//
// The TUI owns stdout/stderr, so all logs go to ~/.lumen/lumen.log. Call
// Init once at startup; L() returns the process-wide logger afterwards.
package logging

import (
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	logger = zap.NewNop()
)

// Init configures the global logger to write JSON lines to logPath.
// An empty logPath resolves to ~/.lumen/lumen.log. Debug enables
// debug-level output.
func Init(logPath string, debug bool) (*zap.Logger, error) {
	if logPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logPath = filepath.Join(home, ".lumen", "lumen.log")
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{logPath}
	cfg.ErrorOutputPaths = []string{logPath}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	mu.Lock()
	logger = l
	mu.Unlock()
	return l, nil
}

// L returns the global logger. Safe to call before Init; logs are
// discarded until Init succeeds.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.Lock()
	l := logger
	mu.Unlock()
	_ = l.Sync()
}
