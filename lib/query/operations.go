// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Operation describes one query operation. The same table drives the
// MCP tool list, the CBOR query socket, and the CLI.
type Operation struct {
	// Name is the wire name, for example "get_recent_logs".
	Name string

	// Title is a short human-readable label.
	Title string

	// Description tells a caller what the operation returns and when
	// to use it.
	Description string

	// ReadOnly is true for operations that never modify the buffer.
	ReadOnly bool

	// Destructive is true for operations that discard logs.
	Destructive bool

	newRequest func() any
	newResult  func() any
	call       func(engine *Engine, request any) (any, error)
}

// Request returns a pointer to a zero request value, suitable for
// decoding arguments into or for schema generation.
func (o Operation) Request() any { return o.newRequest() }

// InputSchema describes the operation's arguments.
func (o Operation) InputSchema() (*Schema, error) { return SchemaOf(o.newRequest()) }

// OutputSchema describes the operation's result.
func (o Operation) OutputSchema() (*Schema, error) { return SchemaOf(o.newResult()) }

func define[Request, Result any](operation Operation, method func(*Engine, Request) (Result, error)) Operation {
	operation.newRequest = func() any { return new(Request) }
	operation.newResult = func() any { return new(Result) }
	operation.call = func(engine *Engine, request any) (any, error) {
		return method(engine, *request.(*Request))
	}
	return operation
}

var operations = []Operation{
	define(Operation{
		Name:        "get_recent_logs",
		Title:       "Recent logs",
		Description: "Get the most recent log entries from all connected projects, oldest first.",
		ReadOnly:    true,
	}, (*Engine).RecentLogs),
	define(Operation{
		Name:  "get_logs",
		Title: "Filtered logs",
		Description: "Get log entries filtered by project, level, output stream, message text, and time window. " +
			"Times accept ISO 8601, epoch milliseconds, or relative expressions such as 'last 1h'. " +
			"When more entries match than the limit, the most recent are returned.",
		ReadOnly: true,
	}, (*Engine).Logs),
	define(Operation{
		Name:        "get_stats",
		Title:       "Log statistics",
		Description: "Get the number of buffered log entries, the projects they came from, and a count per level.",
		ReadOnly:    true,
	}, (*Engine).Stats),
	define(Operation{
		Name:  "get_analytics",
		Title: "Log analytics",
		Description: "Analyze buffered logs over an optional project and time window: totals per level and project, " +
			"the most frequent messages, the error rate, and with groupBy minute or hour a timeline of counts.",
		ReadOnly: true,
	}, (*Engine).Analytics),
	define(Operation{
		Name:  "search_logs",
		Title: "Search logs",
		Description: "Search log messages. Substring mode matches case-insensitively, regex mode takes a " +
			"case-insensitive regular expression, and fuzzy mode ranks characters in order like a fuzzy finder.",
		ReadOnly: true,
	}, (*Engine).Search),
	define(Operation{
		Name:        "get_errors",
		Title:       "Error logs",
		Description: "Get error-level log entries, optionally for one project.",
		ReadOnly:    true,
	}, (*Engine).Errors),
	define(Operation{
		Name:        "clear_logs",
		Title:       "Clear logs",
		Description: "Discard every buffered log entry and report how many were removed.",
		Destructive: true,
	}, (*Engine).Clear),
	define(Operation{
		Name:        "list_projects",
		Title:       "Connected projects",
		Description: "List every project that has connected to the collector since it started.",
		ReadOnly:    true,
	}, (*Engine).Projects),
}

// Operations returns every operation in presentation order.
func Operations() []Operation {
	return append([]Operation(nil), operations...)
}

// Lookup finds an operation by wire name.
func Lookup(name string) (Operation, bool) {
	for _, operation := range operations {
		if operation.Name == name {
			return operation, true
		}
	}
	return Operation{}, false
}

// Invoke runs the named operation. decode fills the request value
// (a pointer) from the caller's arguments; it may be nil when there
// are none. Decode failures are reported as validation errors.
func (e *Engine) Invoke(name string, decode func(request any) error) (any, error) {
	operation, ok := Lookup(name)
	if !ok {
		return nil, &UnknownOperationError{Name: name}
	}
	request := operation.newRequest()
	if decode != nil {
		if err := decode(request); err != nil {
			if errors.Is(err, ErrValidation) {
				return nil, err
			}
			return nil, &ValidationError{Field: "arguments", Err: err}
		}
	}
	return operation.call(e, request)
}

// DecodeJSON returns a decode function for Invoke that reads a JSON
// object strictly: unknown fields and trailing data are errors. Empty
// input and null leave the request at its zero value.
func DecodeJSON(arguments json.RawMessage) func(request any) error {
	return func(request any) error {
		trimmed := bytes.TrimSpace(arguments)
		if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
			return nil
		}
		decoder := json.NewDecoder(bytes.NewReader(trimmed))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(request); err != nil {
			return err
		}
		if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
			return fmt.Errorf("unexpected data after arguments")
		}
		return nil
	}
}
