// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/config"
	"github.com/bureau-foundation/logrelay/lib/logview"
)

func configCommand(env *environment) *cli.Command {
	return &cli.Command{
		Name:    "config",
		Summary: "Create, inspect, and edit configuration files",
		Description: `Manage logrelay configuration.

Settings are layered, later layers winning: built-in defaults, the
global file (~/.config/logrelay/config.yaml), the local file
(.logrelay.yaml in the working directory), a file named by --config or
LOGRELAY_CONFIG, and LOGRELAY_* environment variables. Files may be
YAML or JSON with comments (.json, .jsonc).`,
		Subcommands: []*cli.Command{
			configInitCommand(env),
			configShowCommand(env),
			configGetCommand(env),
			configSetCommand(env),
		},
	}
}

// targetPath is the file "config init" and "config set" write.
func (env *environment) targetPath(global bool) string {
	if global {
		return config.GlobalPath(env.homeDir)
	}
	return config.LocalPath(env.workDir)
}

type configInitParams struct {
	Global      bool `flag:"global,g" desc:"write ~/.config/logrelay/config.yaml instead of ./.logrelay.yaml"`
	Minimal     bool `flag:"minimal" desc:"write values only, without the option documentation"`
	Force       bool `flag:"force,f" desc:"overwrite an existing file"`
	NoGitignore bool `flag:"no-gitignore" desc:"do not add the local file to .gitignore"`
}

func configInitCommand(env *environment) *cli.Command {
	var params configInitParams
	return &cli.Command{
		Name:    "init",
		Summary: "Write a configuration file with the default settings",
		Description: `Write a configuration file holding every default, documented.

The local file is added to .gitignore when the working directory is
inside a git work tree.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("init", &params)
		},
		Examples: []cli.Example{
			{Command: "logrelay config init"},
			{
				Description: "Shared settings for every project",
				Command:     "logrelay config init --global --minimal",
			},
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			path := env.targetPath(params.Global)
			if err := config.WriteTemplate(path, params.Minimal, params.Force); err != nil {
				return cli.Validation("%w (use --force to overwrite)", err)
			}
			renderer := env.renderer(logview.Options{})
			fmt.Fprintf(env.stdout, "%s %s\n", renderer.Success("Created"), path)

			if !params.Global && !params.NoGitignore {
				changed, err := config.EnsureGitignored(filepath.Dir(path), config.LocalFileName)
				if err != nil {
					return fmt.Errorf("updating .gitignore: %w", err)
				}
				if changed {
					fmt.Fprintf(env.stdout, "%s %s to .gitignore\n", renderer.Success("Added"), config.LocalFileName)
				}
			}
			return nil
		},
	}
}

type configShowParams struct {
	cli.JSONOutput
	Config string `flag:"config,c" desc:"extra config file, applied after the global and local files"`
}

// configView is the --json form of "config show".
type configView struct {
	Sources []sourceView   `json:"sources"`
	Config  *config.Config `json:"config"`
}

type sourceView struct {
	Name  string `json:"name"`
	Path  string `json:"path"`
	Found bool   `json:"found"`
}

func configShowCommand(env *environment) *cli.Command {
	var params configShowParams
	return &cli.Command{
		Name:    "show",
		Summary: "Print the merged configuration and the files consulted",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument: %s", args[0])
			}
			cfg, sources, err := env.loadConfig(params.Config)
			if err != nil {
				return err
			}

			view := configView{Config: cfg}
			for _, source := range sources {
				view.Sources = append(view.Sources, sourceView{Name: source.Name, Path: source.Path, Found: source.Found})
			}
			if done, err := params.EmitJSON(env.stdout, view); done {
				return err
			}

			renderer := env.renderer(logview.Options{})
			fmt.Fprintln(env.stdout, renderer.Notice("# Sources, lowest precedence first:"))
			for _, source := range view.Sources {
				state := renderer.Faint("not found")
				if source.Found {
					state = renderer.Success("loaded")
				}
				fmt.Fprintf(env.stdout, "#   %-11s %s (%s)\n", source.Name, source.Path, state)
			}
			fmt.Fprintln(env.stdout)

			encoder := yaml.NewEncoder(env.stdout)
			encoder.SetIndent(2)
			if err := encoder.Encode(cfg); err != nil {
				return fmt.Errorf("encoding configuration: %w", err)
			}
			return encoder.Close()
		},
	}
}

type configGetParams struct {
	Config string `flag:"config,c" desc:"extra config file, applied after the global and local files"`
}

func configGetCommand(env *environment) *cli.Command {
	var params configGetParams
	return &cli.Command{
		Name:    "get",
		Summary: "Print one effective setting",
		Usage:   "logrelay config get SECTION.FIELD [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get", &params)
		},
		Examples: []cli.Example{
			{Command: "logrelay config get storage.max_logs"},
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return cli.Validation("expected one key such as storage.max_logs")
			}
			cfg, _, err := env.loadConfig(params.Config)
			if err != nil {
				return err
			}
			value, err := cfg.Lookup(args[0])
			if err != nil {
				return cli.NotFound("%w", err)
			}
			switch value.(type) {
			case nil:
				return nil
			case map[string]any, []any:
				encoder := yaml.NewEncoder(env.stdout)
				encoder.SetIndent(2)
				if err := encoder.Encode(value); err != nil {
					return err
				}
				return encoder.Close()
			default:
				_, err := fmt.Fprintln(env.stdout, value)
				return err
			}
		},
	}
}

type configSetParams struct {
	Global bool `flag:"global,g" desc:"edit ~/.config/logrelay/config.yaml instead of ./.logrelay.yaml"`
}

func configSetCommand(env *environment) *cli.Command {
	var params configSetParams
	return &cli.Command{
		Name:    "set",
		Summary: "Change one setting in a configuration file",
		Description: `Set SECTION.FIELD to VALUE in the local (or, with --global, the
global) YAML file, creating it when missing. Comments and the order of
existing keys are kept. The edited file must still be valid.`,
		Usage: "logrelay config set SECTION.FIELD VALUE [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("set", &params)
		},
		Examples: []cli.Example{
			{Command: "logrelay config set storage.max_logs 50000"},
			{Command: "logrelay config set agent.project api --global"},
		},
		Run: func(args []string) error {
			if len(args) != 2 {
				return cli.Validation("expected a key and a value, such as: storage.max_logs 50000")
			}
			path := env.targetPath(params.Global)
			if err := config.SetValue(path, args[0], args[1]); err != nil {
				return cli.Validation("%w", err)
			}
			renderer := env.renderer(logview.Options{})
			fmt.Fprintf(env.stdout, "%s %s = %s in %s\n", renderer.Success("Set"), args[0], args[1], path)
			return nil
		},
	}
}
