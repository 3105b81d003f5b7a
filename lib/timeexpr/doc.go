// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package timeexpr resolves the time expressions accepted by log
// queries into instants.
//
// An expression is either a number (milliseconds since the Unix epoch)
// or a string. Strings are tried in a fixed order:
//
//  1. Strings containing "T" or "-" are parsed as ISO-8601 calendar
//     timestamps ("2026-01-18T10:00:00Z", "2026-01-18").
//  2. Relative expressions of the form "last <N><unit>" with unit one
//     of s, m, h, d, w (case-insensitive) resolve to now minus N units.
//  3. Anything else goes through a generic calendar parse covering the
//     common RFC 1123, RFC 822, ANSI C and "Jan 2, 2006" forms.
//
// A string that matches step 1's trigger but fails the ISO parse falls
// through to steps 2 and 3, so "LAST 1H" resolves like "last 1h".
// Calendar timestamps without a zone are interpreted as UTC.
//
// Resolution takes "now" as a parameter. Callers pass clock.Clock.Now()
// so relative windows are deterministic under a fake clock.
package timeexpr
