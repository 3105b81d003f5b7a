// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const fullTemplate = `# logrelay configuration.
#
# Precedence, highest first: LOGRELAY_* environment variables, the file
# named by --config or LOGRELAY_CONFIG, the local .logrelay.yaml, the
# global ~/.config/logrelay/config.yaml, built-in defaults. Each layer
# overrides only the keys it sets, so any line here may be deleted.

server:
  # Unix socket agents send records to. Env: LOGRELAY_SOCKET_PATH
  socket_path: /tmp/log-agent.sock

  # Unix socket the logrelay CLI queries. Env: LOGRELAY_QUERY_SOCKET_PATH
  query_socket_path: /tmp/logrelay-query.sock

  # Server name reported to MCP clients. Env: LOGRELAY_NAME
  name: logrelay

  # Log every ingested record (debug level). Env: LOGRELAY_VERBOSE
  verbose: false

storage:
  # Records kept in memory. The oldest is evicted when a new record
  # arrives at capacity. Env: LOGRELAY_MAX_LOGS
  max_logs: 10000

logging:
  # Collector diagnostics, not collected logs: debug, info, warn, error.
  # Env: LOGRELAY_LOG_LEVEL
  log_level: info

  # text or json. Env: LOGRELAY_LOG_FORMAT
  log_format: text

  # Write diagnostics to this file instead of stderr. Env: LOGRELAY_LOG_FILE
  log_file: ""

performance:
  # Read buffer per agent connection, in bytes. Env: LOGRELAY_BUFFER_SIZE
  buffer_size: 65536

  # Close agent connections idle for this many seconds; 0 disables.
  # Env: LOGRELAY_CONNECTION_TIMEOUT
  connection_timeout: 300

  # Refuse agents beyond this many concurrent connections; 0 is
  # unlimited. Env: LOGRELAY_MAX_CONNECTIONS
  max_connections: 100

agent:
  # Project name when logrelay-agent runs without --project.
  # Env: LOGRELAY_PROJECT
  project: default

  # Terminal echo of captured lines: colored, plain, json, none.
  # Env: LOGRELAY_AGENT_FORMAT
  format: colored

  # Prefix echoed lines with the capture time and the child's pid.
  show_timestamps: false
  show_pid: false

  # Seconds to wait for each connection to the collector.
  connect_timeout: 5

  # Command run when "logrelay-agent run" is given none, and named
  # commands for "logrelay-agent run --cmd NAME". A named command may
  # be a mapping whose watch key overrides agent.watch.
  # default_command: [npm, start]
  # commands:
  #   dev: [npm, run, dev]
  #   test: {command: [go, test, ./...], watch: true}

  # Run commands in the interactive watch view (as with --watch).
  # Env: LOGRELAY_WATCH
  watch: false

  # Leave the watch view as soon as the command exits.
  auto_quit: false

  # Lines the watch view keeps before discarding the oldest.
  watch_max_lines: 10000

  # Palette: default, solarized_dark, high_contrast, minimal,
  # monochrome. Env: LOGRELAY_COLOR_SCHEME
  color_scheme: default

  # Echo color per level, over the scheme: an ANSI 256 index or a hex
  # value.
  # colors:
  #   error: "196"
  #   warn: "214"
`

// Template returns the YAML written by "config init". The full
// template documents every option; the minimal one lists only values.
func Template(minimal bool) string {
	if !minimal {
		return fullTemplate
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		// Default() is a plain struct of scalars.
		panic("config: marshaling defaults: " + err.Error())
	}
	return string(data)
}

// WriteTemplate creates path with the template, creating parent
// directories. An existing file is only replaced when overwrite is
// true.
func WriteTemplate(path string, minimal, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists", path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(Template(minimal)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// SetValue sets one "section.field" key in the YAML file at path,
// creating the file and the section when missing. Comments and the
// order of existing keys are preserved. value is parsed as a YAML
// scalar, and the edited file must still load and validate.
func SetValue(path, key, value string) error {
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".json" || ext == ".jsonc" {
		return fmt.Errorf("%s: config set only edits YAML files", path)
	}
	section, field, ok := strings.Cut(key, ".")
	if !ok || section == "" || field == "" {
		return fmt.Errorf("key %q must have the form section.field", key)
	}

	var document yaml.Node
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &document); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if document.Kind == 0 {
		document = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode}}}
	}
	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: top level is not a mapping", path)
	}

	var scalar yaml.Node
	if err := yaml.Unmarshal([]byte(value), &scalar); err != nil || len(scalar.Content) != 1 || scalar.Content[0].Kind != yaml.ScalarNode {
		return fmt.Errorf("value %q is not a scalar", value)
	}

	sectionNode := mappingValue(root, section)
	if sectionNode == nil {
		sectionNode = &yaml.Node{Kind: yaml.MappingNode}
		root.Content = append(root.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: section}, sectionNode)
	}
	if sectionNode.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: %s is not a mapping", path, section)
	}
	if fieldNode := mappingValue(sectionNode, field); fieldNode != nil {
		*fieldNode = *scalar.Content[0]
	} else {
		sectionNode.Content = append(sectionNode.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: field}, scalar.Content[0])
	}

	var encoded bytes.Buffer
	encoder := yaml.NewEncoder(&encoded)
	encoder.SetIndent(2)
	if err := encoder.Encode(&document); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	encoder.Close()

	check := Default()
	if err := check.mergeYAML(encoded.Bytes()); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	if err := check.Validate(); err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	return os.WriteFile(path, encoded.Bytes(), 0o644)
}

// mappingValue returns the value node for key in a mapping node.
func mappingValue(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// EnsureGitignored appends name to the .gitignore in dir when dir is
// inside a git work tree and the entry is not already present. It
// reports whether the file was changed.
func EnsureGitignored(dir, name string) (bool, error) {
	if !insideGitWorkTree(dir) {
		return false, nil
	}
	path := filepath.Join(dir, ".gitignore")
	existing, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, err
	}
	for _, line := range strings.Split(string(existing), "\n") {
		entry := strings.TrimSpace(line)
		if entry == name || entry == "/"+name {
			return false, nil
		}
	}

	var addition strings.Builder
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		addition.WriteString("\n")
	}
	addition.WriteString(name + "\n")

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, err
	}
	if _, err := file.WriteString(addition.String()); err != nil {
		file.Close()
		return false, err
	}
	return true, file.Close()
}

func insideGitWorkTree(dir string) bool {
	for current := dir; ; {
		if _, err := os.Stat(filepath.Join(current, ".git")); err == nil {
			return true
		}
		parent := filepath.Dir(current)
		if parent == current {
			return false
		}
		current = parent
	}
}
