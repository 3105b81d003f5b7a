// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
)

func rootCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "logrelay",
		Summary: "Collect and query logs from local processes",
		Description: `logrelay collects log lines from processes wrapped by logrelay-agent
and keeps the most recent ones in memory for querying.

Start the collector with "logrelay serve" (add --mcp to expose the
queries to an MCP client on stdin/stdout), wrap a process with
"logrelay-agent run --project NAME -- COMMAND", then query with the
commands below.`,
		Subcommands: []*cli.Command{
			serveCommand(env),
			logsCommand(env),
			statsCommand(env),
			analyticsCommand(env),
			projectsCommand(env),
			clearCommand(env),
			statusCommand(env),
			configCommand(env),
			versionCommand(env),
		},
		Examples: []cli.Example{
			{
				Description: "Run the collector as an MCP server",
				Command:     "logrelay serve --mcp",
			},
			{
				Description: "Show errors from one project",
				Command:     "logrelay logs errors --project api",
			},
		},
	}
}
