// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logbuffer holds the collector's bounded in-memory history of
// log records.
//
// A Buffer is a fixed-capacity ring in arrival order. Appending to a
// full buffer evicts exactly the oldest record, so the buffer always
// holds the most recent min(appended, capacity) records. Arrival order
// is the order Append was called, not the order of the records'
// embedded timestamps: an agent whose clock is behind still lands at
// the tail.
//
// Reads (Recent, All, Stats) copy out of the ring under a read lock and
// then filter the copy, so a query never observes a half-applied
// Append or Clear and never blocks ingestion for longer than the copy.
//
// Filters are conjunctions of equality predicates on project, level,
// and source, an inclusive time range on the resolved record time, and
// a message Matcher. The result limit is applied last and keeps the
// most recent matches.
package logbuffer
