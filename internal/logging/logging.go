// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

// Package logging provides the file-backed debug logger. The TUI owns the
// terminal, so log output goes to ~/.cisplan-scout/logs/scout.log instead
// of stderr.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

const logDirName = ".cisplan-scout"

// New returns a logger for the given component. When the log file cannot
// be opened the logger is disabled rather than failing the command.
func New(component string) zerolog.Logger {
	w, err := logWriter()
	if err != nil {
		return zerolog.New(io.Discard).Level(zerolog.Disabled)
	}
	return zerolog.New(w).With().
		Timestamp().
		Str("component", component).
		Logger()
}

func logWriter() (io.Writer, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(home, logDirName, "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "scout.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}
