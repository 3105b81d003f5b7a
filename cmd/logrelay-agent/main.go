// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// logrelay-agent runs a command and ships each line it writes to the
// logrelay collector.
//
// Every non-blank line of the command's stdout and stderr becomes one
// record tagged with the project name, the stream, the command's pid,
// and a level inferred from the text. Lines are echoed to the terminal
// as they are captured. Records written while the collector is
// unreachable are dropped; the agent reconnects on the next line and
// never blocks the command.
//
// The agent exits with the command's exit code.
package main

import (
	"context"
	"io"
	"os"

	"github.com/muesli/termenv"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/config"
	"github.com/bureau-foundation/logrelay/lib/process"
)

func main() {
	process.Exit(run(os.Args[1:]))
}

func run(args []string) error {
	return rootCommand(defaultEnvironment()).Execute(args)
}

type environment struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	homeDir string
	workDir string

	// forwardSignals relays SIGINT and SIGTERM to the command. Tests
	// leave it off so signals reach the test binary.
	forwardSignals bool

	// profile forces a color profile. Nil detects it per writer.
	profile *termenv.Profile
}

func defaultEnvironment() *environment {
	homeDir, _ := os.UserHomeDir()
	workDir, _ := os.Getwd()
	return &environment{
		ctx:            context.Background(),
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		getenv:         os.Getenv,
		homeDir:        homeDir,
		workDir:        workDir,
		forwardSignals: true,
	}
}

func (env *environment) loadConfig(explicitPath string) (*config.Config, error) {
	cfg, _, err := config.Load(config.Options{
		ExplicitPath: explicitPath,
		HomeDir:      env.homeDir,
		WorkDir:      env.workDir,
		Getenv:       env.getenv,
	})
	if err != nil {
		return nil, cli.Validation("loading configuration: %w", err)
	}
	return cfg, nil
}

func rootCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "logrelay-agent",
		Summary: "Capture a command's output and ship it to logrelay",
		Description: `logrelay-agent runs a command and sends each line of its output to
a running "logrelay serve" collector, echoing the lines as it goes.`,
		Subcommands: []*cli.Command{
			runCommand(env),
			testCommand(env),
			colorsCommand(env),
		},
		Examples: []cli.Example{
			{
				Description: "Capture a development server",
				Command:     "logrelay-agent run --project web -- npm run dev",
			},
			{
				Description: "Check that the collector is reachable",
				Command:     "logrelay-agent test",
			},
		},
	}
}
