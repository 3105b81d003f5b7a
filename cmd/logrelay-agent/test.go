// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/agent"
	"github.com/bureau-foundation/logrelay/lib/logview"
)

type testParams struct {
	Config string `flag:"config,c" desc:"extra config file, applied after the global and local files"`
	Socket string `flag:"socket,s" desc:"collector ingestion socket (default: server.socket_path)"`
}

func testCommand(env *environment) *cli.Command {
	var params testParams
	return &cli.Command{
		Name:    "test",
		Summary: "Send one test record to the collector",
		Description: `Send one info-level record from project "test" to check that the
collector is reachable. The message defaults to "` + agent.DefaultTestMessage + `".`,
		Usage: "logrelay-agent test [MESSAGE...] [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("test", &params)
		},
		Run: func(args []string) error {
			cfg, err := env.loadConfig(params.Config)
			if err != nil {
				return err
			}
			socketPath := firstNonEmpty(params.Socket, cfg.Server.SocketPath)
			timeout := time.Duration(cfg.Agent.ConnectTimeout) * time.Second

			record, err := agent.TestRecord(strings.Join(args, " "), os.Getpid(), time.Now())
			if err != nil {
				return cli.Validation("%w", err)
			}

			shipper := agent.NewShipper(socketPath, timeout, cli.NewCommandLogger(env.stderr))
			defer shipper.Close()
			ctx, cancel := context.WithTimeout(env.ctx, timeout)
			defer cancel()
			if err := shipper.Send(ctx, record); err != nil {
				return cli.Transient("sending test record: %w", err)
			}

			status := env.renderer(env.stdout, logview.Options{})
			fmt.Fprintf(env.stdout, "%s to %s: %s\n", status.Success("Sent test record"), socketPath, record.Data.Message)
			return nil
		},
	}
}
