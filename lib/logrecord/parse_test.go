// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logrecord

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

const validLine = `{"version":"1.0","type":"log_entry","data":{"timestamp":"2026-01-18T10:00:00.123Z","level":"warn","source":"stderr","project":"api","message":"disk almost full","pid":4242}}`

func TestParseValid(t *testing.T) {
	t.Parallel()

	record, err := Parse([]byte(validLine))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	want := Data{
		Timestamp: "2026-01-18T10:00:00.123Z",
		Level:     LevelWarn,
		Source:    SourceStderr,
		Project:   "api",
		Message:   "disk almost full",
		PID:       4242,
	}
	if record.Data != want {
		t.Errorf("Data = %+v, want %+v", record.Data, want)
	}
	if record.Version != ProtocolVersion || record.Type != TypeLogEntry {
		t.Errorf("envelope = %q/%q", record.Version, record.Type)
	}
	wantTime := time.Date(2026, 1, 18, 10, 0, 0, 123_000_000, time.UTC)
	if !record.Time().Equal(wantTime) {
		t.Errorf("Time() = %v, want %v", record.Time(), wantTime)
	}
}

func TestParseAcceptsUnknownEnvelopeValues(t *testing.T) {
	t.Parallel()

	line := strings.Replace(validLine, `"version":"1.0"`, `"version":"2.3"`, 1)
	record, err := Parse([]byte(line))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if record.Version != "2.3" {
		t.Errorf("Version = %q, want 2.3", record.Version)
	}
}

func TestParseMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"not json", `hello world`},
		{"truncated", validLine[:40]},
		{"array", `[1,2,3]`},
		{"missing data", `{"version":"1.0","type":"log_entry"}`},
		{"data not object", `{"version":"1.0","type":"log_entry","data":"x"}`},
		{"missing version", strings.Replace(validLine, `"version":"1.0",`, ``, 1)},
		{"numeric type", strings.Replace(validLine, `"type":"log_entry"`, `"type":7`, 1)},
		{"bad level", strings.Replace(validLine, `"level":"warn"`, `"level":"critical"`, 1)},
		{"bad source", strings.Replace(validLine, `"source":"stderr"`, `"source":"journal"`, 1)},
		{"empty project", strings.Replace(validLine, `"project":"api"`, `"project":""`, 1)},
		{"missing message", strings.Replace(validLine, `"message":"disk almost full",`, ``, 1)},
		{"string pid", strings.Replace(validLine, `"pid":4242`, `"pid":"4242"`, 1)},
		{"fractional pid", strings.Replace(validLine, `"pid":4242`, `"pid":42.5`, 1)},
		{"negative pid", strings.Replace(validLine, `"pid":4242`, `"pid":-1`, 1)},
		{"bad timestamp", strings.Replace(validLine, `"2026-01-18T10:00:00.123Z"`, `"yesterday"`, 1)},
		{"relative timestamp", strings.Replace(validLine, `"2026-01-18T10:00:00.123Z"`, `"last 1h"`, 1)},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(test.line))
			if err == nil {
				t.Fatalf("Parse(%s) succeeded, want error", test.line)
			}
			if !errors.Is(err, ErrMalformedRecord) {
				t.Errorf("error %v does not match ErrMalformedRecord", err)
			}
			var malformedError *MalformedRecordError
			if !errors.As(err, &malformedError) {
				t.Errorf("error %T is not *MalformedRecordError", err)
			}
		})
	}
}

func TestParseBadTimestampWrapsTimeError(t *testing.T) {
	t.Parallel()

	line := strings.Replace(validLine, `"2026-01-18T10:00:00.123Z"`, `"not a time"`, 1)
	_, err := Parse([]byte(line))
	if !errors.Is(err, timeexpr.ErrInvalidTimeExpression) {
		t.Errorf("error = %v, want it to wrap ErrInvalidTimeExpression", err)
	}
}

func TestMarshalLineRoundTrip(t *testing.T) {
	t.Parallel()

	record, err := New(Data{
		Timestamp: "2026-01-18T10:00:00Z",
		Level:     LevelInfo,
		Source:    SourceStdout,
		Project:   "worker",
		Message:   "line with \"quotes\" and \ttabs",
		PID:       7,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	line, err := record.MarshalLine()
	if err != nil {
		t.Fatalf("MarshalLine: %v", err)
	}
	if line[len(line)-1] != '\n' {
		t.Fatal("MarshalLine must end with a newline")
	}
	parsed, err := Parse(line[:len(line)-1])
	if err != nil {
		t.Fatalf("Parse(MarshalLine()): %v", err)
	}
	if parsed.Data != record.Data || !parsed.Time().Equal(record.Time()) {
		t.Errorf("round trip = %+v, want %+v", parsed.Data, record.Data)
	}
}

func TestNewRejectsInvalidData(t *testing.T) {
	t.Parallel()

	_, err := New(Data{Timestamp: "2026-01-18T10:00:00Z", Level: "loud", Source: SourceStdout, Project: "x"})
	if !errors.Is(err, ErrMalformedRecord) {
		t.Errorf("New with bad level: %v", err)
	}
}

func TestParseLevelAndSource(t *testing.T) {
	t.Parallel()

	for _, level := range Levels {
		if got, err := ParseLevel(string(level)); err != nil || got != level {
			t.Errorf("ParseLevel(%q) = %q, %v", level, got, err)
		}
	}
	if _, err := ParseLevel("ERROR"); err == nil {
		t.Error("ParseLevel is case-sensitive; ERROR should be rejected")
	}
	if _, err := ParseSource("stdin"); err == nil {
		t.Error("ParseSource(stdin) should fail")
	}
}
