// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/query"
)

func logsCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "logs",
		Summary: "Read collected logs",
		Description: `Read logs from a running collector.

Time flags accept ISO 8601 ("2026-01-18T10:00:00Z"), epoch
milliseconds ("1737201600000"), or a relative window ("last 1h",
"last 30m", "last 2d").`,
		Subcommands: []*cli.Command{
			logsRecentCommand(env),
			logsGetCommand(env),
			logsSearchCommand(env),
			logsErrorsCommand(env),
		},
	}
}

type logsRecentParams struct {
	connectionParams
	displayParams
	cli.JSONOutput
	Count int `flag:"count,n" desc:"number of records (max 500)" default:"50"`
}

func logsRecentCommand(env *environment) *cli.Command {
	var params logsRecentParams
	return &cli.Command{
		Name:    "recent",
		Summary: "Show the most recent records",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("recent", &params)
		},
		Examples: []cli.Example{
			{Command: "logrelay logs recent -n 20"},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			var result query.RecentLogsResult
			count := params.Count
			if err := env.call(params.connectionParams, "get_recent_logs", query.RecentLogsRequest{Count: &count}, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}
			return env.printRecords(params.displayParams, result.Logs)
		},
	}
}

type logsGetParams struct {
	connectionParams
	displayParams
	cli.JSONOutput
	Project string `flag:"project,p" desc:"only this project"`
	Level   string `flag:"level,l" desc:"only this level: debug, info, warn, or error"`
	Source  string `flag:"source" desc:"only this stream: stdout or stderr"`
	Search  string `flag:"search,s" desc:"case-insensitive text the message must contain"`
	Since   string `flag:"since" desc:"start of the time window"`
	Until   string `flag:"until" desc:"end of the time window"`
	Limit   int    `flag:"limit" desc:"maximum records, most recent kept (max 1000)" default:"100"`
}

func logsGetCommand(env *environment) *cli.Command {
	var params logsGetParams
	return &cli.Command{
		Name:    "get",
		Summary: "Filter records by project, level, stream, text, and time",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Warnings from the api project in the last half hour",
				Command:     `logrelay logs get --project api --level warn --since "last 30m"`,
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			limit := params.Limit
			request := query.LogsRequest{
				Project:   params.Project,
				Level:     params.Level,
				Source:    params.Source,
				Search:    params.Search,
				StartTime: timeFlag(params.Since),
				EndTime:   timeFlag(params.Until),
				Limit:     &limit,
			}
			var result query.LogsResult
			if err := env.call(params.connectionParams, "get_logs", request, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}
			return env.printRecords(params.displayParams, result.Logs)
		},
	}
}

type logsSearchParams struct {
	connectionParams
	displayParams
	cli.JSONOutput
	Mode    string `flag:"mode,m" desc:"matching mode: substring, regex, or fuzzy" default:"substring"`
	Regex   bool   `flag:"regex,r" desc:"shorthand for --mode regex"`
	Project string `flag:"project,p" desc:"only this project"`
	Limit   int    `flag:"limit" desc:"maximum results (max 500)" default:"50"`
}

func logsSearchCommand(env *environment) *cli.Command {
	var params logsSearchParams
	return &cli.Command{
		Name:    "search",
		Summary: "Search message text",
		Usage:   "logrelay logs search QUERY [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("search", &params)
		},
		Examples: []cli.Example{
			{Command: `logrelay logs search timeout`},
			{
				Description: "HTTP 4xx and 5xx status lines",
				Command:     `logrelay logs search --regex 'status [45]\d\d'`,
			},
			{Command: `logrelay logs search --mode fuzzy cnxrfsd`},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one search query, got %d arguments", len(args))
			}
			text := args[0]
			limit := params.Limit
			mode := params.Mode
			if params.Regex && mode == query.SearchSubstring {
				// --regex replaces only the default mode.
				mode = ""
			}
			request := query.SearchRequest{
				Query:   &text,
				Mode:    mode,
				Regex:   params.Regex,
				Project: params.Project,
				Limit:   &limit,
			}
			var result query.SearchResult
			if err := env.call(params.connectionParams, "search_logs", request, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}
			return env.printRecords(params.displayParams, result.Logs)
		},
	}
}

type logsErrorsParams struct {
	connectionParams
	displayParams
	cli.JSONOutput
	Project string `flag:"project,p" desc:"only this project"`
	Limit   int    `flag:"limit" desc:"maximum records (max 500)" default:"50"`
}

func logsErrorsCommand(env *environment) *cli.Command {
	var params logsErrorsParams
	return &cli.Command{
		Name:    "errors",
		Summary: "Show the most recent error-level records",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("errors", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			limit := params.Limit
			var result query.ErrorsResult
			request := query.ErrorsRequest{Project: params.Project, Limit: &limit}
			if err := env.call(params.connectionParams, "get_errors", request, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}
			return env.printRecords(params.displayParams, result.Errors)
		},
	}
}
