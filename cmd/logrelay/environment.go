// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"io"
	"os"

	"github.com/muesli/termenv"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/config"
	"github.com/bureau-foundation/logrelay/lib/logview"
)

// environment is everything a command reads from or writes to the
// process. Tests substitute buffers, a scratch home directory, and a
// cancellable context.
type environment struct {
	ctx    context.Context
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	getenv func(string) string

	homeDir string
	workDir string

	// profile forces a color profile for rendered output. Nil detects
	// it from stdout.
	profile *termenv.Profile
}

func defaultEnvironment() *environment {
	homeDir, _ := os.UserHomeDir()
	workDir, _ := os.Getwd()
	return &environment{
		ctx:     context.Background(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		getenv:  os.Getenv,
		homeDir: homeDir,
		workDir: workDir,
	}
}

func (env *environment) configOptions(explicitPath string) config.Options {
	return config.Options{
		ExplicitPath: explicitPath,
		HomeDir:      env.homeDir,
		WorkDir:      env.workDir,
		Getenv:       env.getenv,
	}
}

// loadConfig merges every configuration layer. A file that fails to
// parse or validate is a validation error.
func (env *environment) loadConfig(explicitPath string) (*config.Config, []config.Source, error) {
	cfg, sources, err := config.Load(env.configOptions(explicitPath))
	if err != nil {
		return nil, nil, cli.Validation("loading configuration: %w", err)
	}
	return cfg, sources, nil
}

// renderer creates a log renderer on stdout.
func (env *environment) renderer(options logview.Options) *logview.Renderer {
	if env.profile != nil {
		return logview.NewRendererWithProfile(env.stdout, options, *env.profile)
	}
	return logview.NewRenderer(env.stdout, options)
}
