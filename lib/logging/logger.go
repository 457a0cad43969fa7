// Copyright 2026 The Zero DAQ Authors
// SPDX-License-Identifier: Apache-2.0

package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// StderrHandler returns a text handler when stderr is a terminal and a
// JSON handler when it is piped or redirected.
func StderrHandler(level slog.Leveler) slog.Handler {
	options := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.NewTextHandler(os.Stderr, options)
	}
	return slog.NewJSONHandler(os.Stderr, options)
}

// FileHandler returns a JSON handler writing to w, normally a data log
// writer opened for the process's log file.
func FileHandler(w io.Writer, level slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// New returns a logger writing to stderr and to every extra handler.
func New(level slog.Leveler, extra ...slog.Handler) *slog.Logger {
	handlers := append(Fanout{StderrHandler(level)}, extra...)
	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(handlers)
}

// ParseLevel maps a flag value (debug, info, warn, error) to a level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(name))); err != nil {
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn or error)", name)
	}
	return level, nil
}
