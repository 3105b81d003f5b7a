// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/logview"
)

type colorsParams struct {
	Config string `flag:"config,c" desc:"extra config file, applied after the global and local files"`
}

func colorsCommand(env *environment) *cli.Command {
	var params colorsParams
	return &cli.Command{
		Name:    "colors",
		Summary: "List the color schemes",
		Description: `List the color schemes accepted by agent.color_scheme, with a sample
of each level. The configured scheme is marked with *.`,
		Usage: "logrelay-agent colors [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("colors", &params)
		},
		Run: func(args []string) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			cfg, err := env.loadConfig(params.Config)
			if err != nil {
				return err
			}
			current, _ := logview.LookupScheme(cfg.Agent.ColorScheme)
			for _, scheme := range logview.Schemes() {
				marker := " "
				if scheme.Name == current.Name {
					marker = "*"
				}
				theme := scheme.Theme
				sample := env.renderer(env.stdout, logview.Options{Format: logview.FormatColored, Theme: &theme})
				levels := make([]string, 0, len(logrecord.Levels))
				for _, level := range logrecord.Levels {
					levels = append(levels, sample.Level(level, string(level)))
				}
				fmt.Fprintf(env.stdout, "%s %-15s %s\n  %s\n", marker, scheme.Name, scheme.Description, strings.Join(levels, " "))
			}
			return nil
		},
	}
}
