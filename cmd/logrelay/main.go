// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// logrelay is the log collector and its query CLI.
//
// "logrelay serve" runs the collector: it accepts records from
// logrelay-agent processes on the ingestion socket, keeps the most
// recent ones in memory, and answers queries on the query socket and,
// with --mcp, as an MCP server on stdin/stdout. The remaining commands
// query a running collector through the query socket or manage the
// configuration files.
package main

import (
	"os"

	"github.com/bureau-foundation/logrelay/lib/process"
)

func main() {
	process.Exit(run(os.Args[1:]))
}

func run(args []string) error {
	return rootCommand(defaultEnvironment()).Execute(args)
}
