// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bureau-foundation/logrelay/lib/config"
)

// NewCommandLogger creates the logger for one-shot CLI commands,
// writing to stderr. When stderr is a terminal the output is slog text;
// when it is piped or redirected it is JSON.
func NewCommandLogger(stderr io.Writer) *slog.Logger {
	var handler slog.Handler
	options := &slog.HandlerOptions{Level: slog.LevelInfo}
	if file, ok := stderr.(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		handler = slog.NewTextHandler(stderr, options)
	} else {
		handler = slog.NewJSONHandler(stderr, options)
	}
	return slog.New(handler)
}

// NewServiceLogger creates the collector's logger from the logging
// section of the configuration. Output goes to stderr, or to
// logging.log_file when set; stdout is reserved for MCP. The returned
// closer releases the log file and is never nil.
func NewServiceLogger(settings config.LoggingConfig, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	level, err := ParseLogLevel(settings.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	output := stderr
	var closer io.Closer = nopCloser{}
	if settings.LogFile != "" {
		file, err := os.OpenFile(settings.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file: %w", err)
		}
		output = file
		closer = file
	}

	options := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch settings.LogFormat {
	case "json":
		handler = slog.NewJSONHandler(output, options)
	case "", "text":
		handler = slog.NewTextHandler(output, options)
	default:
		closer.Close()
		return nil, nil, fmt.Errorf("invalid log format %q (valid: text, json)", settings.LogFormat)
	}
	return slog.New(handler), closer, nil
}

// ParseLogLevel maps a configuration level name to a slog level. The
// empty name means info.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", name)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
