// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bureau-foundation/logrelay/cmd/logrelay/cli"
	"github.com/bureau-foundation/logrelay/lib/config"
)

func TestConfigInitWritesLocalFile(t *testing.T) {
	t.Parallel()

	env, _ := testEnvironment(t)
	output, err := execute(t, env, "config", "init", "--no-gitignore")
	if err != nil {
		t.Fatal(err)
	}
	path := config.LocalPath(env.workDir)
	if !strings.Contains(output, path) {
		t.Errorf("output = %q, want the created path", output)
	}
	if _, err := config.LoadFile(path); err != nil {
		t.Errorf("written file does not load: %v", err)
	}

	_, err = execute(t, env, "config", "init", "--no-gitignore")
	if err == nil || cli.Categorize(err) != cli.CategoryValidation {
		t.Fatalf("second init: err = %v, want a validation error", err)
	}
	if _, err := execute(t, env, "config", "init", "--no-gitignore", "--force", "--minimal"); err != nil {
		t.Fatalf("init --force: %v", err)
	}
}

func TestConfigInitGlobal(t *testing.T) {
	t.Parallel()

	env, _ := testEnvironment(t)
	if _, err := execute(t, env, "config", "init", "--global", "--minimal"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(config.GlobalPath(env.homeDir)); err != nil {
		t.Errorf("global file: %v", err)
	}
	if _, err := os.Stat(config.LocalPath(env.workDir)); !os.IsNotExist(err) {
		t.Errorf("local file should not exist: %v", err)
	}
}

func TestConfigSetGetShow(t *testing.T) {
	t.Parallel()

	env, _ := testEnvironment(t)
	if _, err := execute(t, env, "config", "set", "storage.max_logs", "250", "--global"); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, env, "config", "set", "agent.project", "api"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"storage.max_logs", "250\n"},
		{"agent.project", "api\n"},
		{"server.name", "logrelay\n"},
		{"agent.default_command", ""},
	}
	for _, test := range tests {
		output, err := execute(t, env, "config", "get", test.key)
		if err != nil {
			t.Errorf("get %s: %v", test.key, err)
			continue
		}
		if output != test.want {
			t.Errorf("get %s = %q, want %q", test.key, output, test.want)
		}
	}

	_, err := execute(t, env, "config", "get", "storage.nope")
	if cli.Categorize(err) != cli.CategoryNotFound {
		t.Errorf("get unknown key: err = %v, want not found", err)
	}

	output, err := execute(t, env, "config", "show", "--json")
	if err != nil {
		t.Fatal(err)
	}
	var view configView
	if err := json.Unmarshal([]byte(output), &view); err != nil {
		t.Fatal(err)
	}
	if view.Config.Storage.MaxLogs != 250 || view.Config.Agent.Project != "api" {
		t.Errorf("merged config = %+v", view.Config)
	}
	found := map[string]bool{}
	for _, source := range view.Sources {
		found[source.Name] = source.Found
	}
	if !found["global"] || !found["local"] || found["environment"] {
		t.Errorf("sources = %+v", view.Sources)
	}

	output, err = execute(t, env, "config", "show")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(output, "max_logs: 250") || !strings.Contains(output, filepath.Join(env.workDir, config.LocalFileName)) {
		t.Errorf("show output = %q", output)
	}
}

func TestConfigSetRejectsInvalidValue(t *testing.T) {
	t.Parallel()

	env, _ := testEnvironment(t)
	_, err := execute(t, env, "config", "set", "storage.max_logs", "0")
	if cli.Categorize(err) != cli.CategoryValidation {
		t.Errorf("err = %v, want a validation error", err)
	}
	if _, statErr := os.Stat(config.LocalPath(env.workDir)); !os.IsNotExist(statErr) {
		t.Errorf("invalid edit should not create the file: %v", statErr)
	}
}

func TestConfigEnvironmentOverrides(t *testing.T) {
	t.Parallel()

	env, _ := testEnvironment(t)
	env.getenv = func(name string) string {
		if name == config.EnvPrefix+"MAX_LOGS" {
			return "77"
		}
		return ""
	}
	output, err := execute(t, env, "config", "get", "storage.max_logs")
	if err != nil {
		t.Fatal(err)
	}
	if output != "77\n" {
		t.Errorf("max_logs = %q, want 77", output)
	}

	env.getenv = func(name string) string {
		if name == config.EnvPrefix+"MAX_LOGS" {
			return "many"
		}
		return ""
	}
	if _, err := execute(t, env, "config", "show"); cli.Categorize(err) != cli.CategoryValidation {
		t.Errorf("unparseable env value: err = %v, want a validation error", err)
	}
}
