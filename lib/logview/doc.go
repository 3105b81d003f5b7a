// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package logview renders log records for terminals: the agent's echo
// of captured output and the logrelay CLI's listings.
//
// Colors come from a [Theme] of lipgloss ANSI 256 colors keyed by
// level. The color profile is detected from the destination writer by
// termenv, so output piped to a file or run with NO_COLOR set is plain
// text. [FormatJSON] writes one record payload per line for scripts.
package logview
