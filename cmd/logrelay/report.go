// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/analytics"
	"github.com/bureau-foundation/logrelay/lib/logbuffer"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/logview"
	"github.com/bureau-foundation/logrelay/lib/query"
	"github.com/bureau-foundation/logrelay/lib/service"
)

type reportParams struct {
	connectionParams
	cli.JSONOutput
}

func statsCommand(env *environment) *cli.Command {
	var params reportParams
	return &cli.Command{
		Name:    "stats",
		Summary: "Count buffered records by level and project",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("stats", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			var stats logbuffer.Stats
			if err := env.call(params.connectionParams, "get_stats", query.NoArguments{}, &stats); err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, stats); done {
				return err
			}
			writeStats(env.stdout, stats)
			return nil
		},
	}
}

func writeStats(w io.Writer, stats logbuffer.Stats) {
	table := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(table, "Total logs:\t%d\n", stats.TotalLogs)
	fmt.Fprintf(table, "Projects:\t%d\t%s\n", stats.ProjectCount, strings.Join(stats.Projects, ", "))
	for _, level := range logrecord.Levels {
		fmt.Fprintf(table, "  %s\t%d\n", level, stats.Levels[level])
	}
	table.Flush()
}

type analyticsParams struct {
	connectionParams
	cli.JSONOutput
	Project string `flag:"project,p" desc:"only this project"`
	Range   string `flag:"range" desc:"window ending now: 1h, 6h, 24h, or 7d (default: all logs)"`
	GroupBy string `flag:"group-by" desc:"breakdown: minute or hour add a timeline; project or level"`
	Since   string `flag:"since" desc:"custom window start, overrides the start of --range"`
	Until   string `flag:"until" desc:"custom window end, overrides the end of --range"`
}

func analyticsCommand(env *environment) *cli.Command {
	var params analyticsParams
	return &cli.Command{
		Name:    "analytics",
		Summary: "Summarize levels, projects, top messages, and error rate",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("analytics", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Per-minute volume over the last hour",
				Command:     "logrelay analytics --range 1h --group-by minute",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			request := query.AnalyticsRequest{
				Project:   params.Project,
				TimeRange: params.Range,
				GroupBy:   params.GroupBy,
				StartTime: timeFlag(params.Since),
				EndTime:   timeFlag(params.Until),
			}
			var snapshot analytics.Snapshot
			if err := env.call(params.connectionParams, "get_analytics", request, &snapshot); err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, snapshot); done {
				return err
			}
			renderer := env.renderer(logview.Options{})
			writeAnalytics(env.stdout, renderer, snapshot)
			return nil
		},
	}
}

func writeAnalytics(w io.Writer, renderer *logview.Renderer, snapshot analytics.Snapshot) {
	summary := snapshot.Summary
	fmt.Fprintf(w, "%s %d logs", renderer.Notice("Total:"), summary.TotalLogs)
	if summary.TimeRange.Start != "" {
		fmt.Fprintf(w, " from %s to %s (%s)", summary.TimeRange.Start, summary.TimeRange.End, summary.TimeRange.Duration)
	}
	fmt.Fprintln(w)
	rate := snapshot.ErrorRate
	fmt.Fprintf(w, "%s %d of %d (%.2f%%)\n", renderer.Notice("Error rate:"), rate.Errors, rate.Total, rate.Percentage)

	table := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(table, "\n%s\n", renderer.Notice("By level:"))
	for _, level := range logrecord.Levels {
		if count, ok := snapshot.ByLevel[level]; ok {
			fmt.Fprintf(table, "  %s\t%d\n", level, count)
		}
	}

	fmt.Fprintf(table, "\n%s\n", renderer.Notice("By project:"))
	projects := make([]string, 0, len(snapshot.ByProject))
	for project := range snapshot.ByProject {
		projects = append(projects, project)
	}
	sort.Slice(projects, func(i, j int) bool {
		left, right := snapshot.ByProject[projects[i]], snapshot.ByProject[projects[j]]
		if left != right {
			return left > right
		}
		return projects[i] < projects[j]
	})
	for _, project := range projects {
		fmt.Fprintf(table, "  %s\t%d\n", project, snapshot.ByProject[project])
	}

	if len(snapshot.Timeline) > 0 {
		fmt.Fprintf(table, "\n%s\n", renderer.Notice("Timeline:"))
		for _, bucket := range snapshot.Timeline {
			fmt.Fprintf(table, "  %s\t%d\n", bucket.Timestamp, bucket.Count)
		}
	}

	if len(snapshot.TopMessages) > 0 {
		fmt.Fprintf(table, "\n%s\n", renderer.Notice("Top messages:"))
		for _, message := range snapshot.TopMessages {
			fmt.Fprintf(table, "  %d\t%s\t%s\t%s\n", message.Count, message.Level,
				renderer.Faint(message.Fingerprint), message.Message)
		}
	}
	table.Flush()
}

func projectsCommand(env *environment) *cli.Command {
	var params reportParams
	return &cli.Command{
		Name:    "projects",
		Summary: "List projects whose agents have connected",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("projects", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			var projects []string
			if err := env.call(params.connectionParams, "list_projects", query.NoArguments{}, &projects); err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, projects); done {
				return err
			}
			if len(projects) == 0 {
				renderer := env.renderer(logview.Options{})
				fmt.Fprintln(env.stdout, renderer.Faint("no agents have connected"))
				return nil
			}
			for _, project := range projects {
				fmt.Fprintln(env.stdout, project)
			}
			return nil
		},
	}
}

func clearCommand(env *environment) *cli.Command {
	var params reportParams
	return &cli.Command{
		Name:    "clear",
		Summary: "Discard every buffered record",
		Description: `Discard every record held by the collector. Agents stay connected
and new records are collected as before.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("clear", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			var result query.ClearResult
			if err := env.call(params.connectionParams, "clear_logs", query.NoArguments{}, &result); err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, result); done {
				return err
			}
			renderer := env.renderer(logview.Options{})
			fmt.Fprintf(env.stdout, "%s (%d records)\n", renderer.Success(result.Message), result.ClearedCount)
			return nil
		},
	}
}

func statusCommand(env *environment) *cli.Command {
	var params reportParams
	return &cli.Command{
		Name:    "status",
		Summary: "Check that a collector is running and show its counters",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("status", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			var status service.Status
			if err := env.call(params.connectionParams, service.StatusAction, nil, &status); err != nil {
				return err
			}
			if done, err := params.EmitJSON(env.stdout, status); done {
				return err
			}
			writeStatus(env.stdout, status)
			return nil
		},
	}
}

func writeStatus(w io.Writer, status service.Status) {
	table := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintf(table, "Version:\t%s\n", status.Version)
	fmt.Fprintf(table, "Uptime:\t%s\n", time.Duration(status.UptimeSeconds)*time.Second)
	fmt.Fprintf(table, "Ingestion socket:\t%s (%s)\n", status.IngestSocket, status.IngestState)
	fmt.Fprintf(table, "Buffered logs:\t%d of %d\n", status.BufferedLogs, status.BufferCapacity)
	fmt.Fprintf(table, "Records:\t%d accepted, %d dropped\n", status.RecordsAccepted, status.RecordsDropped)
	fmt.Fprintf(table, "Connections:\t%d active, %d total, %d refused\n",
		status.ConnectionsActive, status.ConnectionsTotal, status.ConnectionsRefused)
	fmt.Fprintf(table, "Queries:\t%d served, %d failed\n", status.QueriesServed, status.QueriesFailed)
	fmt.Fprintf(table, "Projects:\t%s\n", strings.Join(status.Projects, ", "))
	table.Flush()
}
