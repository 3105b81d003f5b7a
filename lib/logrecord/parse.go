// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logrecord

import (
	"errors"
	"fmt"

	"github.com/valyala/fastjson"
)

// ErrMalformedRecord matches every parse or validation failure via
// errors.Is.
var ErrMalformedRecord = errors.New("malformed record")

// MalformedRecordError describes why a line was rejected.
type MalformedRecordError struct {
	Reason string
	Err    error
}

func (e *MalformedRecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed record: %s: %v", e.Reason, e.Err)
	}
	return "malformed record: " + e.Reason
}

func (e *MalformedRecordError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMalformedRecord, e.Err}
	}
	return []error{ErrMalformedRecord}
}

func malformed(format string, args ...any) error {
	return &MalformedRecordError{Reason: fmt.Sprintf(format, args...)}
}

var parserPool fastjson.ParserPool

// Parse decodes and validates one wire line (without its newline).
// Every failure is a *MalformedRecordError.
func Parse(line []byte) (Record, error) {
	parser := parserPool.Get()
	defer parserPool.Put(parser)

	value, err := parser.ParseBytes(line)
	if err != nil {
		return Record{}, &MalformedRecordError{Reason: "invalid JSON", Err: err}
	}
	if value.Type() != fastjson.TypeObject {
		return Record{}, malformed("expected a JSON object, got %s", value.Type())
	}

	var record Record
	if record.Version, err = stringField(value, "version"); err != nil {
		return Record{}, err
	}
	if record.Type, err = stringField(value, "type"); err != nil {
		return Record{}, err
	}

	payload := value.Get("data")
	if payload == nil || payload.Type() != fastjson.TypeObject {
		return Record{}, malformed("data must be an object")
	}
	data := &record.Data
	if data.Timestamp, err = stringField(payload, "timestamp"); err != nil {
		return Record{}, err
	}
	level, err := stringField(payload, "level")
	if err != nil {
		return Record{}, err
	}
	data.Level = Level(level)
	source, err := stringField(payload, "source")
	if err != nil {
		return Record{}, err
	}
	data.Source = Source(source)
	if data.Project, err = stringField(payload, "project"); err != nil {
		return Record{}, err
	}
	if data.Message, err = stringField(payload, "message"); err != nil {
		return Record{}, err
	}

	pid := payload.Get("pid")
	if pid == nil || pid.Type() != fastjson.TypeNumber {
		return Record{}, malformed("data.pid must be an integer")
	}
	if data.PID, err = pid.Int64(); err != nil {
		return Record{}, &MalformedRecordError{Reason: "data.pid must be an integer", Err: err}
	}

	if err := record.validate(); err != nil {
		return Record{}, err
	}
	return record, nil
}

// stringField extracts a required string member. fastjson's
// GetStringBytes returns nil for both missing and non-string members,
// so the type is checked explicitly to keep "" distinguishable.
func stringField(object *fastjson.Value, key string) (string, error) {
	member := object.Get(key)
	if member == nil {
		return "", malformed("missing %s", key)
	}
	if member.Type() != fastjson.TypeString {
		return "", malformed("%s must be a string, got %s", key, member.Type())
	}
	return string(member.GetStringBytes()), nil
}
