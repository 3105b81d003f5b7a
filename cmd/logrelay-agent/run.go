// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/agent"
	"github.com/bureau-foundation/logrelay/lib/config"
	"github.com/bureau-foundation/logrelay/lib/logview"
)

type runParams struct {
	Config     string `flag:"config,c" desc:"extra config file, applied after the global and local files"`
	Project    string `flag:"project,p" desc:"project name tagging every record (default: agent.project)"`
	Cmd        string `flag:"cmd" desc:"run the named command from agent.commands"`
	Socket     string `flag:"socket,s" desc:"collector ingestion socket (default: server.socket_path)"`
	Format     string `flag:"format,f" desc:"echo format: colored, plain, json, or none (default: agent.format)"`
	Timestamps bool   `flag:"timestamps,t" desc:"prefix echoed lines with the capture time"`
	PID        bool   `flag:"pid" desc:"prefix echoed lines with the command's pid"`
	Watch      bool   `flag:"watch,w" desc:"show output in an interactive view instead of echoing it"`
}

func runCommand(env *environment) *cli.Command {
	var params runParams
	return &cli.Command{
		Name:    "run",
		Summary: "Run a command and ship its output",
		Description: `Run a command, capturing stdout and stderr line by line.

The command is, in order of preference: the arguments after --, the
entry of agent.commands named by --cmd, or agent.default_command.
SIGINT and SIGTERM are passed to the command; a second one kills it.
The agent exits with the command's exit code.

With --watch, or when agent.watch or the named command's watch setting
is true, output is shown in a full-screen view instead: scroll, search,
filter by level, pause, save, and restart the command from the
keyboard. The view quits a few seconds after the command exits unless
it is restarted.`,
		Usage: "logrelay-agent run [flags] [-- COMMAND [ARGS...]]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("run", &params)
		},
		Examples: []cli.Example{
			{Command: "logrelay-agent run --project api -- go run ./cmd/api"},
			{
				Description: "Run the \"dev\" entry of agent.commands without echo",
				Command:     "logrelay-agent run --cmd dev --format none",
			},
			{
				Description: "Watch a development server interactively",
				Command:     "logrelay-agent run --watch --project web -- npm run dev",
			},
		},
		Run: func(args []string) error {
			return runAgent(env, params, args)
		},
	}
}

// resolveCommand picks the command to run: explicit arguments, then
// the named entry of agent.commands, then agent.default_command. The
// returned watch setting is non-nil only for a named command that sets
// one.
func resolveCommand(args []string, name string, settings config.AgentConfig) ([]string, *bool, error) {
	switch {
	case len(args) > 0:
		return args, nil, nil
	case name != "":
		named, ok := settings.Commands[name]
		if !ok {
			names := make([]string, 0, len(settings.Commands))
			for defined := range settings.Commands {
				names = append(names, defined)
			}
			sort.Strings(names)
			if len(names) == 0 {
				return nil, nil, cli.NotFound("no command named %q: agent.commands is empty", name)
			}
			return nil, nil, cli.NotFound("no command named %q in agent.commands (defined: %s)", name, strings.Join(names, ", "))
		}
		if len(named.Command) == 0 {
			return nil, nil, cli.Validation("agent.commands.%s is empty", name)
		}
		return named.Command, named.Watch, nil
	case len(settings.DefaultCommand) > 0:
		return settings.DefaultCommand, nil, nil
	default:
		return nil, nil, cli.Validation("no command given: pass one after --, use --cmd NAME, or set agent.default_command")
	}
}

// useWatch decides between the interactive view and plain echo. The
// flag forces the view; otherwise a named command's setting overrides
// agent.watch.
func useWatch(flag bool, named *bool, settings config.AgentConfig) bool {
	if flag {
		return true
	}
	if named != nil {
		return *named
	}
	return settings.Watch
}

// resolveTheme applies agent.colors on top of agent.color_scheme.
func resolveTheme(settings config.AgentConfig) (logview.Theme, error) {
	scheme, ok := logview.LookupScheme(settings.ColorScheme)
	if !ok {
		return logview.Theme{}, cli.Validation("unknown color scheme %q (valid: %s)",
			settings.ColorScheme, strings.Join(logview.SchemeNames(), ", "))
	}
	return scheme.Theme.WithLevelColors(settings.Colors), nil
}

func runAgent(env *environment, params runParams, args []string) error {
	cfg, err := env.loadConfig(params.Config)
	if err != nil {
		return err
	}
	command, namedWatch, err := resolveCommand(args, params.Cmd, cfg.Agent)
	if err != nil {
		return err
	}
	theme, err := resolveTheme(cfg.Agent)
	if err != nil {
		return err
	}

	project := firstNonEmpty(params.Project, cfg.Agent.Project)
	socketPath := firstNonEmpty(params.Socket, cfg.Server.SocketPath)
	if useWatch(params.Watch, namedWatch, cfg.Agent) {
		return runWatch(env, cfg, project, socketPath, command, theme)
	}

	format, err := logview.ParseFormat(firstNonEmpty(params.Format, cfg.Agent.Format))
	if err != nil {
		return cli.Validation("--format: %w", err)
	}

	echo := env.renderer(env.stdout, logview.Options{
		Format:         format,
		Theme:          &theme,
		ShowTimestamps: params.Timestamps || cfg.Agent.ShowTimestamps,
		ShowPID:        params.PID || cfg.Agent.ShowPID,
	})
	statusFormat := logview.FormatPlain
	if format == logview.FormatColored {
		statusFormat = logview.FormatColored
	}
	status := env.renderer(env.stderr, logview.Options{Format: statusFormat, Theme: &theme})

	logger := cli.NewCommandLogger(env.stderr)
	shipper := agent.NewShipper(socketPath, time.Duration(cfg.Agent.ConnectTimeout)*time.Second, logger)
	defer shipper.Close()

	fmt.Fprintln(env.stderr, status.Notice(fmt.Sprintf("Starting %s (project %s)", strings.Join(command, " "), project)))
	result, err := agent.Run(env.ctx, agent.Options{
		Project:        project,
		Command:        command,
		Dir:            env.workDir,
		Stdin:          env.stdin,
		Sender:         shipper,
		Renderer:       echo,
		ForwardSignals: env.forwardSignals,
		Logger:         logger,
		OnStart: func(pid int) {
			fmt.Fprintln(env.stderr, status.Faint(fmt.Sprintf("Process started (PID %d)", pid)))
		},
	})
	if err != nil {
		return err
	}

	reportExit(env.stderr, status, result, shipper.Stats())
	if result.ExitCode != 0 {
		return &cli.ExitError{Code: result.ExitCode}
	}
	return nil
}

func reportExit(w io.Writer, status *logview.Renderer, result agent.Result, stats agent.ShipperStats) {
	summary := fmt.Sprintf("Process exited with code %d (%d lines", result.ExitCode, result.Lines)
	if stats.Dropped > 0 {
		summary += fmt.Sprintf(", %d not delivered", stats.Dropped)
	}
	summary += ")"
	if result.ExitCode == 0 {
		fmt.Fprintln(w, status.Success(summary))
	} else {
		fmt.Fprintln(w, status.Failure(summary))
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

// renderer creates a renderer on w, honoring a forced profile.
func (env *environment) renderer(w io.Writer, options logview.Options) *logview.Renderer {
	if env.profile != nil {
		return logview.NewRendererWithProfile(w, options, *env.profile)
	}
	return logview.NewRenderer(w, options)
}
