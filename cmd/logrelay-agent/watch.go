// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/agent"
	"github.com/bureau-foundation/logrelay/lib/config"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/logview"
	"github.com/bureau-foundation/logrelay/lib/watchui"
)

// runWatch runs the command under a supervisor and shows its output in
// the interactive view until the user quits.
func runWatch(env *environment, cfg *config.Config, project, socketPath string, command []string, theme logview.Theme) error {
	// The view owns the terminal: diagnostics go to logging.log_file or
	// nowhere.
	logger, closer, err := cli.NewServiceLogger(cfg.Logging, io.Discard)
	if err != nil {
		return cli.Validation("logging: %w", err)
	}
	defer closer.Close()

	shipper := agent.NewShipper(socketPath, time.Duration(cfg.Agent.ConnectTimeout)*time.Second, logger)
	defer shipper.Close()

	// Callbacks can fire before the program exists; they wait for it.
	var program *tea.Program
	attached := make(chan struct{})
	send := func(message tea.Msg) {
		<-attached
		program.Send(message)
	}

	supervisor := agent.NewSupervisor(agent.Options{
		Project: project,
		Command: command,
		Dir:     env.workDir,
		Sender:  shipper,
		Logger:  logger,
		OnRecord: func(record logrecord.Record) {
			send(watchui.RecordMsg{Record: record})
		},
	}, func(exit agent.Exit) {
		send(watchui.ExitMsg{Exit: exit})
	})
	defer supervisor.Stop()

	launch, startErr := supervisor.Start(env.ctx)
	if startErr != nil {
		logger.Error("starting command failed", "command", command, "error", startErr)
	}

	model := watchui.NewModel(watchui.Config{
		Project:  project,
		Command:  command,
		Process:  supervisor,
		Stats:    shipper.Stats,
		Theme:    theme,
		MaxLines: cfg.Agent.WatchMaxLines,
		AutoQuit: cfg.Agent.AutoQuit,
		Dir:      env.workDir,
	}, launch, startErr)

	program = tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
		tea.WithContext(env.ctx),
	)
	close(attached)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) && !errors.Is(err, tea.ErrInterrupted) {
		return fmt.Errorf("running watch view: %w", err)
	}
	return nil
}
