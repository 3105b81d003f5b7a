// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func TestCommandDispatchesToSubcommand(t *testing.T) {
	var called string
	var receivedArgs []string

	root := &Command{
		Name: "logrelay",
		Subcommands: []*Command{
			{
				Name: "logs",
				Subcommands: []*Command{
					{
						Name: "search",
						Run: func(args []string) error {
							called = "logs search"
							receivedArgs = args
							return nil
						},
					},
				},
			},
			{
				Name: "stats",
				Run: func(args []string) error {
					called = "stats"
					return nil
				},
			},
		},
	}

	if err := root.Execute([]string{"logs", "search", "timeout"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "logs search" {
		t.Errorf("dispatched to %q, want %q", called, "logs search")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "timeout" {
		t.Errorf("args = %v, want [timeout]", receivedArgs)
	}
}

func TestCommandParsesFlags(t *testing.T) {
	var socketPath string
	var positional []string

	command := &Command{
		Name: "status",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flagSet.StringVar(&socketPath, "socket", "/tmp/default.sock", "socket path")
			return flagSet
		},
		Run: func(args []string) error {
			positional = args
			return nil
		},
	}

	if err := command.Execute([]string{"--socket", "/tmp/custom.sock", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if socketPath != "/tmp/custom.sock" {
		t.Errorf("socketPath = %q", socketPath)
	}
	if len(positional) != 1 || positional[0] != "extra" {
		t.Errorf("args = %v, want [extra]", positional)
	}
}

func TestCommandUnknownSubcommandSuggests(t *testing.T) {
	root := &Command{
		Name: "logrelay",
		Subcommands: []*Command{
			{Name: "analytics", Run: func([]string) error { return nil }},
			{Name: "projects", Run: func([]string) error { return nil }},
		},
	}

	err := root.Execute([]string{"analytcs"})
	if err == nil {
		t.Fatal("expected error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), `did you mean "analytics"`) {
		t.Errorf("error = %q, want suggestion", err.Error())
	}
	if Categorize(err) != CategoryValidation {
		t.Errorf("category = %q, want validation", Categorize(err))
	}

	err = root.Execute([]string{"zzzzzzzz"})
	if err == nil || strings.Contains(err.Error(), "did you mean") {
		t.Errorf("distant name should have no suggestion, got %v", err)
	}
}

func TestCommandUnknownFlagSuggests(t *testing.T) {
	command := &Command{
		Name: "search",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("search", pflag.ContinueOnError)
			flagSet.String("project", "", "project")
			flagSet.Int("limit", 50, "limit")
			return flagSet
		},
		Run: func([]string) error { return nil },
	}

	err := command.Execute([]string{"--projcet", "api"})
	if err == nil {
		t.Fatal("expected error for unknown flag")
	}
	if !strings.Contains(err.Error(), "did you mean --project?") {
		t.Errorf("error = %q, want --project suggestion", err.Error())
	}
}

func TestCommandRequiresSubcommand(t *testing.T) {
	root := &Command{
		Name:        "logrelay",
		Subcommands: []*Command{{Name: "stats", Run: func([]string) error { return nil }}},
	}
	err := root.Execute(nil)
	var toolError *ToolError
	if !errors.As(err, &toolError) || !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("Execute(nil) error = %v, want subcommand required", err)
	}
}

func TestCommandHelpFlagRunsNothing(t *testing.T) {
	called := false
	command := &Command{
		Name: "clear",
		Run: func([]string) error {
			called = true
			return nil
		},
	}
	if err := command.Execute([]string{"--help"}); err != nil {
		t.Fatalf("Execute(--help) error: %v", err)
	}
	if called {
		t.Error("--help should not run the command")
	}
}

func TestPrintHelp(t *testing.T) {
	root := &Command{Name: "logrelay"}
	command := &Command{
		Name:        "logs",
		Description: "Query buffered logs.",
		Subcommands: []*Command{
			{Name: "recent", Summary: "Show the most recent logs"},
		},
		Examples: []Example{
			{Description: "Last hour of errors", Command: "logrelay logs get --level error --since 'last 1h'"},
		},
		parent: root,
	}

	var output bytes.Buffer
	command.PrintHelp(&output)
	help := output.String()

	for _, want := range []string{
		"Query buffered logs.",
		"logrelay logs <command> [flags]",
		"recent",
		"Show the most recent logs",
		"# Last hour of errors",
		"Run 'logrelay logs <command> --help'",
	} {
		if !strings.Contains(help, want) {
			t.Errorf("help missing %q:\n%s", want, help)
		}
	}
}
