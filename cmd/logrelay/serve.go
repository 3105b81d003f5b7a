// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/cmd/logrelay/mcp"
	"github.com/bureau-foundation/logrelay/lib/clock"
	"github.com/bureau-foundation/logrelay/lib/config"
	"github.com/bureau-foundation/logrelay/lib/service"
	"github.com/bureau-foundation/logrelay/lib/version"
)

type serveParams struct {
	Config        string `flag:"config,c" desc:"extra config file, applied after the global and local files"`
	Socket        string `flag:"socket" desc:"ingestion socket path (overrides server.socket_path)"`
	QuerySocket   string `flag:"query-socket" desc:"query socket path (overrides server.query_socket_path)"`
	MaxLogs       int    `flag:"max-logs" desc:"records kept in memory (overrides storage.max_logs)"`
	NoQuerySocket bool   `flag:"no-query-socket" desc:"do not listen on the query socket"`
	MCP           bool   `flag:"mcp" desc:"serve the query tools over MCP on stdin/stdout; exit when stdin closes"`
	Verbose       bool   `flag:"verbose,v" desc:"log every ingested record"`
}

// apply overlays the flags that were given onto cfg.
func (params serveParams) apply(cfg *config.Config) {
	if params.Socket != "" {
		cfg.Server.SocketPath = params.Socket
	}
	if params.QuerySocket != "" {
		cfg.Server.QuerySocketPath = params.QuerySocket
	}
	if params.MaxLogs != 0 {
		cfg.Storage.MaxLogs = params.MaxLogs
	}
	if params.Verbose {
		cfg.Server.Verbose = true
	}
	if cfg.Server.Verbose {
		cfg.Logging.LogLevel = "debug"
	}
}

func serveCommand(env *environment) *cli.Command {
	var params serveParams
	return &cli.Command{
		Name:    "serve",
		Summary: "Run the log collector",
		Description: `Run the log collector until interrupted.

The collector accepts records from logrelay-agent on the ingestion
socket and keeps the most recent storage.max_logs of them in memory.
Queries are answered on the query socket, used by the other logrelay
commands, and with --mcp as MCP tools on stdin/stdout. Diagnostics go
to stderr or logging.log_file; stdout carries only MCP traffic.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("serve", &params)
		},
		Examples: []cli.Example{
			{
				Description: "Collect with the configured sockets",
				Command:     "logrelay serve",
			},
			{
				Description: "Run as an MCP server for an assistant",
				Command:     "logrelay serve --mcp",
			},
			{
				Description: "Use a private socket and a small buffer",
				Command:     "logrelay serve --socket /tmp/dev.sock --max-logs 1000",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			return runServe(env, params)
		},
	}
}

func runServe(env *environment, params serveParams) error {
	cfg, sources, err := env.loadConfig(params.Config)
	if err != nil {
		return err
	}
	params.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return cli.Validation("invalid configuration: %w", err)
	}

	logger, closer, err := cli.NewServiceLogger(cfg.Logging, env.stderr)
	if err != nil {
		return cli.Validation("configuring logging: %w", err)
	}
	defer closer.Close()

	for _, source := range sources {
		if source.Found {
			logger.Debug("configuration loaded", "layer", source.Name, "path", source.Path)
		}
	}

	ctx, stop := signal.NotifyContext(env.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := newCollector(cfg, clock.Real(), logger)
	if err := collector.listener.Start(); err != nil {
		return fmt.Errorf("starting collector: %w", err)
	}
	defer func() {
		if err := collector.listener.Stop(); err != nil {
			logger.Error("stopping ingestion listener failed", "error", err)
		}
	}()

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var queryDone chan error
	if !params.NoQuerySocket {
		server := service.NewServer(service.ServerConfig{
			SocketPath: cfg.Server.QuerySocketPath,
			Queries:    collector.engine,
			Status:     collector.status,
			Logger:     logger,
			Clock:      collector.clock,
		})
		queryDone = make(chan error, 1)
		go func() {
			queryDone <- server.Serve(serveCtx)
		}()
	}

	var mcpDone chan error
	if params.MCP {
		server, err := mcp.NewServer(collector.engine, mcp.ServerInfo{
			Name:    cfg.Server.Name,
			Version: version.Short(),
		}, logger)
		if err != nil {
			return fmt.Errorf("creating MCP server: %w", err)
		}
		mcpDone = make(chan error, 1)
		go func() {
			mcpDone <- server.Run(env.stdin, env.stdout)
		}()
	}

	logger.Info("collector started",
		"version", version.Info(),
		"socket", cfg.Server.SocketPath,
		"query_socket", querySocketLabel(cfg, params),
		"max_logs", cfg.Storage.MaxLogs,
		"mcp", params.MCP,
	)

	var runError error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-queryDone:
		queryDone = nil
		if err != nil {
			runError = fmt.Errorf("query socket: %w", err)
		}
	case err := <-mcpDone:
		if err != nil {
			runError = fmt.Errorf("MCP server: %w", err)
		} else {
			logger.Info("MCP client disconnected")
		}
	}

	cancel()
	if queryDone != nil {
		if err := <-queryDone; err != nil && runError == nil {
			runError = fmt.Errorf("query socket: %w", err)
		}
	}
	logger.Info("collector stopped",
		"buffered_logs", collector.buffer.Count(),
		"records_accepted", collector.listener.Stats().RecordsAccepted,
	)
	return runError
}

func querySocketLabel(cfg *config.Config, params serveParams) string {
	if params.NoQuerySocket {
		return "disabled"
	}
	return cfg.Server.QuerySocketPath
}
