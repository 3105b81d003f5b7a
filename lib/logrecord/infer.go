// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logrecord

import (
	"strings"
	"time"
)

// InferLevel guesses a level from free-form output text. Captured
// process output has no structured level, so the agent classifies by
// keyword: "error", "err", or "fatal" mean error; "warn" means warn;
// "debug" or "trace" mean debug; anything else is info. Matching is
// case-insensitive and substring-based.
func InferLevel(message string) Level {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "err") || strings.Contains(lower, "fatal"):
		return LevelError
	case strings.Contains(lower, "warn"):
		return LevelWarn
	case strings.Contains(lower, "debug") || strings.Contains(lower, "trace"):
		return LevelDebug
	default:
		return LevelInfo
	}
}

// Capture builds the record an agent sends for one line of captured
// output, stamped with the given time and an inferred level.
func Capture(project, message string, source Source, pid int, now time.Time) (Record, error) {
	return New(Data{
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Level:     InferLevel(message),
		Source:    source,
		Project:   project,
		Message:   message,
		PID:       int64(pid),
	})
}

// Preview truncates a message to at most limit runes, for console
// notices and top-message keys.
func Preview(message string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for index := range message {
		if count == limit {
			return message[:index]
		}
		count++
	}
	return message
}
