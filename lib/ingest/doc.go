// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ingest accepts log records from agents over a Unix stream
// socket.
//
// Agents write newline-delimited JSON records (see lib/logrecord). The
// Listener reads each connection through a buffered reader, so a record
// split across several socket reads is reassembled before parsing.
// Blank lines are ignored. A line that fails to parse is logged and
// counted as dropped; the connection stays open and later lines are
// still processed.
//
// The Listener moves through Stopped, Starting, Listening, and
// Stopping. Start removes a stale socket file left by a previous run
// and binds; a bind failure is returned as *BindError and the listener
// stays Stopped. Stop closes the listening socket, then every open
// connection, then removes the socket file. Bytes of an unterminated
// line still buffered when Stop closes a connection are discarded.
//
// Each project name seen for the first time during the listener's
// lifetime is recorded in a first-seen-ordered registry and announced
// in the log. The registry survives buffer clears.
package ingest
