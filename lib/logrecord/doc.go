// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logrecord defines the log record exchanged between agents and
// the collector, and its newline-delimited JSON wire form:
//
//	{"version":"1.0","type":"log_entry","data":{"timestamp":"2026-01-18T10:00:00Z",
//	 "level":"info","source":"stdout","project":"api","message":"listening","pid":4242}}
//
// Parse validates a wire line into a Record. A Record is immutable once
// constructed; its timestamp is resolved to an instant exactly once, at
// parse time, so range filters never re-parse strings.
//
// Parsing uses valyala/fastjson with a pooled parser because the
// ingestion path handles every line every agent writes.
package logrecord
