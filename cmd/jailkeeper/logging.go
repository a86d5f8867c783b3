// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/term"
)

// invokerLogger writes human-readable logs to an interactive stderr and
// JSON otherwise.
func invokerLogger(level slog.Level) *slog.Logger {
	return newLogger(os.Stderr, level, !term.IsTerminal(int(os.Stderr.Fd())))
}

func newLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, options))
	}
	return slog.New(slog.NewTextHandler(w, options))
}

// openLogFile opens path for appending, creating it and its directory
// if needed.
func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0640)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return file, nil
}

// roleLogger returns a JSON logger on the shared log file, tagged with
// the role and pid.
func roleLogger(file *os.File, level slog.Level, role string) *slog.Logger {
	return newLogger(file, level, true).With("role", role, "pid", os.Getpid())
}
