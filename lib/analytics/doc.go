// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package analytics computes aggregate views over the log buffer:
// per-level and per-project counts, an error rate, an optional
// time-bucketed timeline, the most frequent messages, and the time
// span actually covered by the matching records.
//
// Snapshots are derived on demand from the live buffer and never
// stored. There is no incremental index: each call is one filtered
// copy of the buffer plus a linear pass.
package analytics
