// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent runs a command on behalf of logrelay-agent, turning
// each line it writes to stdout or stderr into a log record.
//
// [Run] spawns the command with both output streams piped, splits them
// into lines, infers a level per line, echoes the line through a
// [logview.Renderer], and hands the record to a [Sender]. When the
// command exits, Run returns its exit code so the agent can exit with
// the same status.
//
// [Shipper] is the production Sender. It keeps one connection to the
// collector's ingestion socket and writes each record as a JSON line.
// A failed write closes the connection and drops the record; the next
// record dials again. Records produced while the collector is down are
// dropped, never queued: the terminal echo is the durable copy.
package agent
