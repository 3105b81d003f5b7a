// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides the command-line framework shared by logrelay
// and logrelay-agent.
//
// [Command] is a named node in a command tree with an optional
// [pflag.FlagSet] factory, nested subcommands, and a Run function.
// [Command.Execute] parses flags, dispatches to subcommands, and
// prints structured help. Unknown subcommands and flags get a
// Levenshtein "did you mean" suggestion (distance <= 3).
//
// Flag sets are usually built from tagged parameter structs with
// [FlagsFromParams]. Errors that reach a caller are [ToolError]s
// carrying a category, which the MCP server reports as errorInfo and
// which [Categorize] derives for errors from the query engine and the
// query socket.
package cli
