// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/config"
	"github.com/bureau-foundation/logrelay/lib/logbuffer"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/query"
	"github.com/bureau-foundation/logrelay/lib/service"
	"github.com/bureau-foundation/logrelay/lib/testutil"
)

// waitForBuffered polls the collector until it holds count records.
func waitForBuffered(t *testing.T, collector runningCollector, count int) {
	t.Helper()
	client := service.NewServiceClient(collector.querySocket)
	testutil.RequireEventually(t, 5*time.Second, func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		var status service.Status
		if err := client.Call(ctx, service.StatusAction, nil, &status); err != nil {
			return false
		}
		return status.BufferedLogs == count
	}, "collector buffering %d records", count)
}

func TestServeAnswersQueries(t *testing.T) {
	t.Parallel()

	collector := startCollector(t)
	collector.send(t,
		logData("api", logrecord.LevelInfo, "listening on :8080"),
		logData("api", logrecord.LevelError, "connection refused by upstream"),
		logData("web", logrecord.LevelWarn, "slow render: 900ms"),
	)
	waitForBuffered(t, collector, 3)

	env, _ := testEnvironment(t)
	socket := []string{"--socket", collector.querySocket}
	run := func(t *testing.T, args ...string) string {
		t.Helper()
		output, err := execute(t, env, append(args, socket...)...)
		if err != nil {
			t.Fatalf("logrelay %s: %v", strings.Join(args, " "), err)
		}
		return output
	}

	t.Run("recent", func(t *testing.T) {
		output := run(t, "logs", "recent", "--format", "plain")
		for _, message := range []string{"listening on :8080", "connection refused by upstream", "slow render: 900ms"} {
			if !strings.Contains(output, message) {
				t.Errorf("output missing %q:\n%s", message, output)
			}
		}
	})

	t.Run("get filters by project", func(t *testing.T) {
		var result query.LogsResult
		if err := json.Unmarshal([]byte(run(t, "logs", "get", "--project", "web", "--json")), &result); err != nil {
			t.Fatal(err)
		}
		if result.Count != 1 || result.Logs[0].Message != "slow render: 900ms" || result.Filter.Project != "web" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("search regex", func(t *testing.T) {
		var result query.SearchResult
		if err := json.Unmarshal([]byte(run(t, "logs", "search", "--regex", `\d+ms`, "--json")), &result); err != nil {
			t.Fatal(err)
		}
		if result.Mode != query.SearchRegex || result.Count != 1 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("errors", func(t *testing.T) {
		output := run(t, "logs", "errors", "--format", "json")
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 1 {
			t.Fatalf("want one record line, got %q", output)
		}
		var data logrecord.Data
		if err := json.Unmarshal([]byte(lines[0]), &data); err != nil {
			t.Fatal(err)
		}
		if data.Level != logrecord.LevelError || data.Project != "api" {
			t.Errorf("record = %+v", data)
		}
	})

	t.Run("stats", func(t *testing.T) {
		var stats logbuffer.Stats
		if err := json.Unmarshal([]byte(run(t, "stats", "--json")), &stats); err != nil {
			t.Fatal(err)
		}
		if stats.TotalLogs != 3 || stats.ProjectCount != 2 || stats.Levels[logrecord.LevelError] != 1 {
			t.Errorf("stats = %+v", stats)
		}
		text := run(t, "stats")
		if !strings.Contains(text, "Total logs:") || !strings.Contains(text, "api, web") {
			t.Errorf("stats text = %q", text)
		}
	})

	t.Run("analytics", func(t *testing.T) {
		output := run(t, "analytics", "--range", "1h")
		if !strings.Contains(output, "3 logs") || !strings.Contains(output, "1 of 3 (33.33%)") {
			t.Errorf("analytics output = %q", output)
		}
	})

	t.Run("projects", func(t *testing.T) {
		output := run(t, "projects")
		if output != "api\nweb\n" {
			t.Errorf("projects = %q", output)
		}
	})

	t.Run("status", func(t *testing.T) {
		var status service.Status
		if err := json.Unmarshal([]byte(run(t, "status", "--json")), &status); err != nil {
			t.Fatal(err)
		}
		if status.IngestSocket != collector.ingestSocket || status.IngestState != "listening" ||
			status.BufferedLogs != 3 || status.RecordsAccepted != 3 {
			t.Errorf("status = %+v", status)
		}
		// waitForBuffered and every subtest above issued queries.
		if status.QueriesServed < 8 {
			t.Errorf("queriesServed = %d, want at least 8", status.QueriesServed)
		}
	})
}

func TestServeClear(t *testing.T) {
	t.Parallel()

	collector := startCollector(t)
	collector.send(t,
		logData("api", logrecord.LevelInfo, "one"),
		logData("api", logrecord.LevelInfo, "two"),
	)
	waitForBuffered(t, collector, 2)

	env, _ := testEnvironment(t)
	output, err := execute(t, env, "clear", "--socket", collector.querySocket)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output, "Logs cleared") || !strings.Contains(output, "(2 records)") {
		t.Errorf("output = %q", output)
	}
	output, err = execute(t, env, "logs", "recent", "--format", "plain", "--socket", collector.querySocket)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output, "no matching logs") {
		t.Errorf("recent after clear = %q", output)
	}
}

func TestServeRejectsInvalidQueries(t *testing.T) {
	t.Parallel()

	collector := startCollector(t)
	env, _ := testEnvironment(t)

	tests := []struct {
		name string
		args []string
	}{
		{"bad level", []string{"logs", "get", "--level", "fatal"}},
		{"bad time", []string{"logs", "get", "--since", "yesterday-ish"}},
		{"bad regex", []string{"logs", "search", "--regex", "("}},
		{"bad range", []string{"analytics", "--range", "2h"}},
		{"bad format", []string{"logs", "recent", "--format", "xml"}},
	}
	for _, test := range tests {
		_, err := execute(t, env, append(test.args, "--socket", collector.querySocket)...)
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
			continue
		}
		if category := cli.Categorize(err); category != cli.CategoryValidation {
			t.Errorf("%s: category = %s (%v), want validation", test.name, category, err)
		}
	}
}

func TestServeAppliesConfiguration(t *testing.T) {
	t.Parallel()

	directory := testutil.SocketDir(t)
	cfg := config.Default()
	cfg.Server.SocketPath = filepath.Join(directory, "ingest.sock")
	cfg.Server.QuerySocketPath = filepath.Join(directory, "query.sock")
	cfg.Storage.MaxLogs = 2

	env, _ := testEnvironment(t)
	configPath := filepath.Join(env.workDir, config.LocalFileName)
	for key, value := range map[string]string{
		"server.socket_path":       cfg.Server.SocketPath,
		"server.query_socket_path": cfg.Server.QuerySocketPath,
		"storage.max_logs":         "2",
	} {
		if err := config.SetValue(configPath, key, value); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	env.ctx = ctx
	done := make(chan error, 1)
	go func() {
		done <- rootCommand(env).Execute([]string{"serve"})
	}()
	defer func() {
		cancel()
		if err := testutil.RequireReceive(t, (<-chan error)(done), 5*time.Second); err != nil {
			t.Errorf("serve: %v", err)
		}
	}()

	testutil.WaitForSocket(t, cfg.Server.SocketPath, 5*time.Second)
	testutil.WaitForSocket(t, cfg.Server.QuerySocketPath, 5*time.Second)
	collector := runningCollector{ingestSocket: cfg.Server.SocketPath, querySocket: cfg.Server.QuerySocketPath}
	collector.send(t,
		logData("api", logrecord.LevelInfo, "first"),
		logData("api", logrecord.LevelInfo, "second"),
		logData("api", logrecord.LevelInfo, "third"),
	)
	waitForBuffered(t, collector, 2)

	client := service.NewServiceClient(cfg.Server.QuerySocketPath)
	var status service.Status
	if err := client.Call(context.Background(), service.StatusAction, nil, &status); err != nil {
		t.Fatal(err)
	}
	if status.BufferCapacity != 2 {
		t.Errorf("capacity = %d, want 2", status.BufferCapacity)
	}
}

func TestServeMCPStopsAtEndOfInput(t *testing.T) {
	t.Parallel()

	directory := testutil.SocketDir(t)
	env, stdout := testEnvironment(t)
	input, inputWriter := io.Pipe()
	env.stdin = input

	done := make(chan error, 1)
	go func() {
		done <- rootCommand(env).Execute([]string{
			"serve", "--mcp", "--no-query-socket",
			"--socket", filepath.Join(directory, "ingest.sock"),
		})
	}()

	messages := []string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-11-25","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"get_stats","arguments":{}}}`,
	}
	for _, message := range messages {
		if _, err := io.WriteString(inputWriter, message+"\n"); err != nil {
			t.Fatal(err)
		}
	}
	inputWriter.Close()

	if err := testutil.RequireReceive(t, (<-chan error)(done), 5*time.Second, "serve did not exit at end of input"); err != nil {
		t.Fatalf("serve: %v", err)
	}
	if _, err := os.Stat(filepath.Join(directory, "ingest.sock")); !os.IsNotExist(err) {
		t.Errorf("ingestion socket not removed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 responses, got %d:\n%s", len(lines), stdout.String())
	}
	if !strings.Contains(lines[1], `\"totalLogs\": 0`) {
		t.Errorf("tools/call response = %s", lines[1])
	}
}

func TestServeFailsWhenSocketCannotBind(t *testing.T) {
	t.Parallel()

	env, _ := testEnvironment(t)
	err := rootCommand(env).Execute([]string{
		"serve", "--no-query-socket",
		"--socket", filepath.Join(t.TempDir(), "missing", "dir", "ingest.sock"),
	})
	if err == nil {
		t.Fatal("expected a bind error")
	}
	if !strings.Contains(err.Error(), "starting collector") {
		t.Errorf("error = %v", err)
	}
}
