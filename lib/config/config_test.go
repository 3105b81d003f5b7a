// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/bureau-foundation/logrelay/lib/logview"
)

// layout creates isolated home and work directories.
func layout(t *testing.T) (home, work string) {
	t.Helper()
	root := t.TempDir()
	home = filepath.Join(root, "home")
	work = filepath.Join(root, "work")
	for _, dir := range []string{filepath.Join(home, ".config", "logrelay"), work} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return home, work
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func environment(values map[string]string) func(string) string {
	return func(name string) string { return values[name] }
}

func TestDefault(t *testing.T) {
	t.Parallel()

	cfg := Default()
	if cfg.Server.SocketPath != "/tmp/log-agent.sock" {
		t.Errorf("socket_path = %s", cfg.Server.SocketPath)
	}
	if cfg.Storage.MaxLogs != 10000 {
		t.Errorf("max_logs = %d", cfg.Storage.MaxLogs)
	}
	if cfg.Performance.BufferSize != 65536 || cfg.Performance.ConnectionTimeout != 300 || cfg.Performance.MaxConnections != 100 {
		t.Errorf("performance = %+v", cfg.Performance)
	}
	if cfg.Logging.LogLevel != "info" || cfg.Logging.LogFormat != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoadWithoutFiles(t *testing.T) {
	t.Parallel()

	home, work := layout(t)
	cfg, sources, err := Load(Options{HomeDir: home, WorkDir: work, Getenv: environment(nil)})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("config = %+v, want defaults", cfg)
	}
	if len(sources) != 3 {
		t.Fatalf("sources = %+v, want global, local, environment", sources)
	}
	for _, source := range sources {
		if source.Found {
			t.Errorf("source %s reported found", source.Name)
		}
	}
}

func TestLoadLayering(t *testing.T) {
	t.Parallel()

	home, work := layout(t)
	writeFile(t, GlobalPath(home), `
server:
  name: global-name
  socket_path: /global.sock
storage:
  max_logs: 500
`)
	writeFile(t, filepath.Join(work, ".logrelay.json"), `{
  // comments and trailing commas are accepted
  "_comment": "annotation keys are ignored",
  "server": {"socket_path": "/local.sock", "_socket_path_comment": "x"},
  "logging": {"log_file": null, "log_level": "debug",},
}`)
	explicit := filepath.Join(work, "explicit.yaml")
	writeFile(t, explicit, "storage:\n  max_logs: 42\n")

	cfg, sources, err := Load(Options{
		ExplicitPath: explicit,
		HomeDir:      home,
		WorkDir:      work,
		Getenv:       environment(map[string]string{"LOGRELAY_LOG_FORMAT": "json"}),
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Name != "global-name" {
		t.Errorf("name = %q, want the global value", cfg.Server.Name)
	}
	if cfg.Server.SocketPath != "/local.sock" {
		t.Errorf("socket_path = %q, want the local value", cfg.Server.SocketPath)
	}
	if cfg.Storage.MaxLogs != 42 {
		t.Errorf("max_logs = %d, want the explicit value", cfg.Storage.MaxLogs)
	}
	if cfg.Logging.LogLevel != "debug" || cfg.Logging.LogFormat != "json" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Server.QuerySocketPath != "/tmp/logrelay-query.sock" {
		t.Errorf("query_socket_path = %q, want the default", cfg.Server.QuerySocketPath)
	}

	names := make([]string, len(sources))
	for i, source := range sources {
		names[i] = source.Name
		if !source.Found {
			t.Errorf("source %s not found", source.Name)
		}
	}
	if strings.Join(names, ",") != "global,local,explicit,environment" {
		t.Errorf("sources = %v", names)
	}
}

func TestLoadEnvironmentOverridesFiles(t *testing.T) {
	t.Parallel()

	home, work := layout(t)
	writeFile(t, LocalPath(work), "server:\n  verbose: false\nstorage:\n  max_logs: 10\n")

	cfg, _, err := Load(Options{HomeDir: home, WorkDir: work, Getenv: environment(map[string]string{
		"LOGRELAY_VERBOSE":            "true",
		"LOGRELAY_MAX_LOGS":           "25",
		"LOGRELAY_SOCKET_PATH":        "/env.sock",
		"LOGRELAY_CONNECTION_TIMEOUT": "0",
		"LOGRELAY_PROJECT":            "web",
	})})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Server.Verbose || cfg.Storage.MaxLogs != 25 || cfg.Server.SocketPath != "/env.sock" {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Performance.ConnectionTimeout != 0 || cfg.Performance.IdleTimeout() != 0 {
		t.Errorf("connection_timeout = %d", cfg.Performance.ConnectionTimeout)
	}
	if cfg.Agent.Project != "web" {
		t.Errorf("agent.project = %q", cfg.Agent.Project)
	}
}

func TestLoadExplicitFromEnvironment(t *testing.T) {
	t.Parallel()

	home, work := layout(t)
	explicit := filepath.Join(work, "custom.yml")
	writeFile(t, explicit, "server:\n  name: custom\n")

	cfg, sources, err := Load(Options{HomeDir: home, WorkDir: work, Getenv: environment(map[string]string{
		"LOGRELAY_CONFIG": explicit,
	})})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Name != "custom" {
		t.Errorf("name = %q", cfg.Server.Name)
	}
	if sources[2].Name != "explicit" || sources[2].Path != explicit {
		t.Errorf("sources = %+v", sources)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		file  string
		body  string
		env   map[string]string
		error string
	}{
		{"unknown yaml key", ".logrelay.yaml", "server:\n  sockt_path: /x\n", nil, "sockt_path"},
		{"unknown json key", ".logrelay.json", `{"storage": {"maxlogs": 3}}`, nil, "maxlogs"},
		{"malformed yaml", ".logrelay.yaml", "server: [unclosed\n", nil, "parsing config"},
		{"invalid value", ".logrelay.yaml", "storage:\n  max_logs: 0\n", nil, "storage.max_logs"},
		{"bad env integer", "", "", map[string]string{"LOGRELAY_MAX_LOGS": "lots"}, "LOGRELAY_MAX_LOGS"},
		{"bad env boolean", "", "", map[string]string{"LOGRELAY_VERBOSE": "sometimes"}, "LOGRELAY_VERBOSE"},
		{"same sockets", "", "", map[string]string{"LOGRELAY_QUERY_SOCKET_PATH": "/tmp/log-agent.sock"}, "must differ"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			home, work := layout(t)
			if test.file != "" {
				writeFile(t, filepath.Join(work, test.file), test.body)
			}
			_, _, err := Load(Options{HomeDir: home, WorkDir: work, Getenv: environment(test.env)})
			if err == nil || !strings.Contains(err.Error(), test.error) {
				t.Errorf("error = %v, want one mentioning %q", err, test.error)
			}
		})
	}
}

func TestLoadExplicitMissing(t *testing.T) {
	t.Parallel()

	home, work := layout(t)
	_, _, err := Load(Options{ExplicitPath: filepath.Join(work, "absent.yaml"), HomeDir: home, WorkDir: work, Getenv: environment(nil)})
	if err == nil {
		t.Fatal("expected an error for a missing explicit config file")
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Logging.LogLevel = "loud"
	cfg.Logging.LogFormat = "xml"
	cfg.Performance.MaxConnections = -1
	cfg.Agent.Format = "rainbow"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"log_level", "log_format", "max_connections", "agent.format"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestExpandVariables(t *testing.T) {
	t.Parallel()

	home, work := layout(t)
	writeFile(t, LocalPath(work), "server:\n  socket_path: ${HOME}/agent.sock\nlogging:\n  log_file: ${LOGRELAY_TEST_UNSET_VAR:-/var/log/logrelay.log}\n")

	cfg, _, err := Load(Options{HomeDir: home, WorkDir: work, Getenv: environment(nil)})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.SocketPath != filepath.Join(home, "agent.sock") {
		t.Errorf("socket_path = %q", cfg.Server.SocketPath)
	}
	if cfg.Logging.LogFile != "/var/log/logrelay.log" {
		t.Errorf("log_file = %q", cfg.Logging.LogFile)
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	cfg := Default()
	value, err := cfg.Lookup("storage.max_logs")
	if err != nil {
		t.Fatal(err)
	}
	if value != 10000 {
		t.Errorf("storage.max_logs = %v (%T)", value, value)
	}
	if value, _ := cfg.Lookup("server.socket_path"); value != "/tmp/log-agent.sock" {
		t.Errorf("server.socket_path = %v", value)
	}
	if value, err := cfg.Lookup("agent.commands"); err != nil || value != nil {
		t.Errorf("agent.commands = %v, %v; want nil, nil", value, err)
	}
	for _, key := range []string{"storage", "nosection.x", "storage.nofield", ".max_logs"} {
		if _, err := cfg.Lookup(key); err == nil {
			t.Errorf("Lookup(%q) succeeded", key)
		}
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.jsonc")
	writeFile(t, path, `{"storage": {"max_logs": 7}, /* block comment */ "agent": {"format": "plain"}}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.MaxLogs != 7 || cfg.Agent.Format != "plain" {
		t.Errorf("config = %+v", cfg)
	}
}

func TestAgentCommandsAndColors(t *testing.T) {
	t.Parallel()

	home, work := layout(t)
	writeFile(t, LocalPath(work), `
agent:
  default_command: [npm, start]
  commands:
    dev: [npm, run, dev]
    test: [go, test, ./...]
    web:
      command: [npm, run, web]
      watch: true
  colors:
    error: "196"
    info: "#aaaaaa"
`)
	cfg, _, err := Load(Options{HomeDir: home, WorkDir: work, Getenv: environment(nil)})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg.Agent.DefaultCommand, []string{"npm", "start"}) {
		t.Errorf("default_command = %v", cfg.Agent.DefaultCommand)
	}
	if test := cfg.Agent.Commands["test"]; !reflect.DeepEqual(test.Command, []string{"go", "test", "./..."}) || test.Watch != nil {
		t.Errorf("commands.test = %+v", test)
	}
	if web := cfg.Agent.Commands["web"]; !reflect.DeepEqual(web.Command, []string{"npm", "run", "web"}) || web.Watch == nil || !*web.Watch {
		t.Errorf("commands.web = %+v", web)
	}
	if cfg.Agent.Colors["error"] != "196" {
		t.Errorf("colors = %v", cfg.Agent.Colors)
	}

	cfg.Agent.Colors["fatal"] = "1"
	cfg.Agent.Commands["empty"] = NamedCommand{}
	err = cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "fatal") || !strings.Contains(err.Error(), "agent.commands.empty") {
		t.Errorf("Validate = %v", err)
	}
}

func TestNamedCommandJSONForms(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.jsonc")
	writeFile(t, path, `{
  "agent": {
    // Both spellings of a named command.
    "commands": {
      "dev": ["npm", "run", "dev"],
      "test": {"command": ["npm", "test"], "watch": false}
    },
    "watch": true
  }
}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Agent.Watch {
		t.Error("agent.watch not loaded")
	}
	if dev := cfg.Agent.Commands["dev"]; len(dev.Command) != 3 || dev.Watch != nil {
		t.Errorf("commands.dev = %+v", dev)
	}
	if test := cfg.Agent.Commands["test"]; len(test.Command) != 2 || test.Watch == nil || *test.Watch {
		t.Errorf("commands.test = %+v", test)
	}

	encoded, err := json.Marshal(cfg.Agent.Commands)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"dev":["npm","run","dev"],"test":{"command":["npm","test"],"watch":false}}`
	if string(encoded) != want {
		t.Errorf("encoded = %s, want %s", encoded, want)
	}

	badPath := filepath.Join(t.TempDir(), "bad.json")
	writeFile(t, badPath, `{"agent": {"commands": {"dev": {"cmd": ["make"]}}}}`)
	if _, err := LoadFile(badPath); err == nil || !strings.Contains(err.Error(), "cmd") {
		t.Errorf("unknown command field: err = %v", err)
	}
}

func TestColorSchemeSetting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		scheme string
		valid  bool
	}{
		{"default", true},
		{"solarized-dark", true},
		{"High_Contrast", true},
		{"monochrome", true},
		{"neon", false},
		{"", false},
	}
	for _, test := range tests {
		cfg := Default()
		cfg.Agent.ColorScheme = test.scheme
		err := cfg.Validate()
		if test.valid && err != nil {
			t.Errorf("color_scheme %q: %v", test.scheme, err)
		}
		if !test.valid && (err == nil || !strings.Contains(err.Error(), "agent.color_scheme")) {
			t.Errorf("color_scheme %q: err = %v, want a color_scheme error", test.scheme, err)
		}
	}

	if !reflect.DeepEqual(ColorSchemes, logview.SchemeNames()) {
		t.Errorf("ColorSchemes = %v, logview schemes = %v", ColorSchemes, logview.SchemeNames())
	}
}

func TestWatchSettings(t *testing.T) {
	t.Parallel()

	home, work := layout(t)
	writeFile(t, LocalPath(work), "agent:\n  auto_quit: true\n  watch_max_lines: 500\n")
	cfg, _, err := Load(Options{HomeDir: home, WorkDir: work, Getenv: environment(map[string]string{
		"LOGRELAY_WATCH":        "true",
		"LOGRELAY_COLOR_SCHEME": "minimal",
	})})
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Agent.Watch || !cfg.Agent.AutoQuit || cfg.Agent.WatchMaxLines != 500 || cfg.Agent.ColorScheme != "minimal" {
		t.Errorf("agent = %+v", cfg.Agent)
	}

	cfg.Agent.WatchMaxLines = 0
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "watch_max_lines") {
		t.Errorf("Validate = %v", err)
	}
}
