// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/logview"
	"github.com/bureau-foundation/logrelay/lib/service"
	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

// connectionParams locate the query socket of a running collector.
type connectionParams struct {
	Config  string        `flag:"config,c" desc:"extra config file, applied after the global and local files"`
	Socket  string        `flag:"socket" desc:"query socket path (overrides server.query_socket_path)"`
	Timeout time.Duration `flag:"timeout" desc:"how long to wait for the collector" default:"10s"`
}

// displayParams control how records are printed.
type displayParams struct {
	Format string `flag:"format" desc:"record output: colored, plain, or json (one record per line)" default:"colored"`
	PID    bool   `flag:"pid" desc:"show the pid of the process that wrote each record"`
}

// call sends one action to the collector and decodes its result.
func (env *environment) call(params connectionParams, action string, args any, result any) error {
	socketPath := params.Socket
	if socketPath == "" {
		cfg, _, err := env.loadConfig(params.Config)
		if err != nil {
			return err
		}
		socketPath = cfg.Server.QuerySocketPath
	}

	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(env.ctx, timeout)
	defer cancel()

	err := service.NewServiceClient(socketPath).Call(ctx, action, args, result)
	if err == nil {
		return nil
	}
	var serviceError *service.ServiceError
	if errors.As(err, &serviceError) {
		return err
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, os.ErrNotExist) {
		return cli.Transient("no collector is listening on %s (start one with \"logrelay serve\"): %w", socketPath, err)
	}
	return err
}

// printRecords writes records in the requested display format. An
// empty result prints a short notice instead, except in json format.
func (env *environment) printRecords(display displayParams, records []logrecord.Data) error {
	format, err := logview.ParseFormat(display.Format)
	if err != nil {
		return cli.Validation("--format: %w", err)
	}
	renderer := env.renderer(logview.Options{
		Format:         format,
		ShowTimestamps: true,
		ShowPID:        display.PID,
		ShowLevel:      true,
		ShowProject:    true,
	})
	if len(records) == 0 {
		if format == logview.FormatColored || format == logview.FormatPlain {
			fmt.Fprintln(env.stdout, renderer.Faint("no matching logs"))
		}
		return nil
	}
	for _, record := range records {
		if err := renderer.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// timeFlag converts an optional time flag into a request expression.
func timeFlag(value string) *timeexpr.Expr {
	if value == "" {
		return nil
	}
	expr := timeexpr.FromFlag(value)
	return &expr
}
