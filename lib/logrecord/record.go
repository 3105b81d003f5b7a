// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logrecord

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

// Wire constants written by agents.
const (
	ProtocolVersion = "1.0"
	TypeLogEntry    = "log_entry"
)

// Level is the severity of a record.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Levels lists every level in ascending severity.
var Levels = []Level{LevelDebug, LevelInfo, LevelWarn, LevelError}

// ParseLevel validates a level name. The empty string is not a level.
func ParseLevel(name string) (Level, error) {
	level := Level(name)
	if !level.Valid() {
		return "", fmt.Errorf("invalid level %q (valid: debug, info, warn, error)", name)
	}
	return level, nil
}

// Valid reports whether the level is one of the four known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarn, LevelError:
		return true
	}
	return false
}

// Source is the output stream a record was captured from.
type Source string

const (
	SourceStdout Source = "stdout"
	SourceStderr Source = "stderr"
)

// ParseSource validates a source name.
func ParseSource(name string) (Source, error) {
	source := Source(name)
	if !source.Valid() {
		return "", fmt.Errorf("invalid source %q (valid: stdout, stderr)", name)
	}
	return source, nil
}

// Valid reports whether the source is stdout or stderr.
func (s Source) Valid() bool {
	return s == SourceStdout || s == SourceStderr
}

// Data is the payload of a record. Query results return Data values
// directly.
type Data struct {
	Timestamp string `json:"timestamp"`
	Level     Level  `json:"level"`
	Source    Source `json:"source"`
	Project   string `json:"project"`
	Message   string `json:"message"`
	PID       int64  `json:"pid"`
}

// Record is one log entry as received from an agent.
type Record struct {
	Version string `json:"version"`
	Type    string `json:"type"`
	Data    Data   `json:"data"`

	instant time.Time
}

// New builds a record from a payload with the current protocol version
// and type, validating it exactly as Parse would.
func New(data Data) (Record, error) {
	record := Record{Version: ProtocolVersion, Type: TypeLogEntry, Data: data}
	if err := record.validate(); err != nil {
		return Record{}, err
	}
	return record, nil
}

// Time returns the resolved instant of the record's timestamp.
func (r Record) Time() time.Time { return r.instant }

// MarshalLine encodes the record as a single wire line including the
// trailing newline.
func (r Record) MarshalLine() ([]byte, error) {
	line, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return append(line, '\n'), nil
}

func (r *Record) validate() error {
	data := &r.Data
	if data.Project == "" {
		return malformed("data.project is empty")
	}
	if !data.Level.Valid() {
		return malformed("data.level %q is not one of debug, info, warn, error", data.Level)
	}
	if !data.Source.Valid() {
		return malformed("data.source %q is not one of stdout, stderr", data.Source)
	}
	if data.PID < 0 {
		return malformed("data.pid %d is negative", data.PID)
	}
	instant, err := timeexpr.ParseTimestamp(data.Timestamp)
	if err != nil {
		return &MalformedRecordError{Reason: "data.timestamp", Err: err}
	}
	r.instant = instant
	return nil
}
