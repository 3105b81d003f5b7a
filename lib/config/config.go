// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "LOGRELAY_"

// Config is the master configuration shared by the collector and the
// agent.
type Config struct {
	// Server configures the collector's sockets and MCP identity.
	Server ServerConfig `yaml:"server" json:"server"`

	// Storage configures the in-memory log buffer.
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Logging configures the collector's own diagnostics, not the
	// logs it collects.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Performance configures per-connection limits.
	Performance PerformanceConfig `yaml:"performance" json:"performance"`

	// Agent configures logrelay-agent.
	Agent AgentConfig `yaml:"agent" json:"agent"`
}

// ServerConfig configures the collector's sockets and MCP identity.
type ServerConfig struct {
	// SocketPath is the Unix socket agents send records to. The agent
	// reads the same value.
	// Default: /tmp/log-agent.sock
	SocketPath string `yaml:"socket_path" json:"socket_path"`

	// QuerySocketPath is the Unix socket the logrelay CLI queries.
	// Default: /tmp/logrelay-query.sock
	QuerySocketPath string `yaml:"query_socket_path" json:"query_socket_path"`

	// Name is the server name reported in the MCP handshake.
	// Default: logrelay
	Name string `yaml:"name" json:"name"`

	// Verbose logs every ingested record by lowering the log level to
	// debug.
	Verbose bool `yaml:"verbose" json:"verbose"`
}

// StorageConfig configures the in-memory log buffer.
type StorageConfig struct {
	// MaxLogs is the buffer capacity. The oldest record is evicted
	// when a new one arrives at capacity.
	// Default: 10000
	MaxLogs int `yaml:"max_logs" json:"max_logs"`
}

// LoggingConfig configures the collector's own diagnostics.
type LoggingConfig struct {
	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogFormat is text or json.
	// Default: text
	LogFormat string `yaml:"log_format" json:"log_format"`

	// LogFile, when set, receives diagnostics instead of stderr.
	LogFile string `yaml:"log_file" json:"log_file"`
}

// PerformanceConfig configures per-connection limits on the ingestion
// socket.
type PerformanceConfig struct {
	// BufferSize is the read buffer per agent connection, in bytes.
	// Default: 65536
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`

	// ConnectionTimeout closes an agent connection idle for this many
	// seconds. Zero disables it.
	// Default: 300
	ConnectionTimeout int `yaml:"connection_timeout" json:"connection_timeout"`

	// MaxConnections refuses agents beyond this many concurrent
	// connections. Zero means unlimited.
	// Default: 100
	MaxConnections int `yaml:"max_connections" json:"max_connections"`
}

// AgentConfig configures logrelay-agent.
type AgentConfig struct {
	// Project is the project name used when --project is not given.
	// Default: default
	Project string `yaml:"project" json:"project"`

	// Format is how captured lines are echoed: colored, plain, json,
	// or none.
	// Default: colored
	Format string `yaml:"format" json:"format"`

	// ShowTimestamps prefixes echoed lines with the capture time.
	ShowTimestamps bool `yaml:"show_timestamps" json:"show_timestamps"`

	// ShowPID prefixes echoed lines with the child's pid.
	ShowPID bool `yaml:"show_pid" json:"show_pid"`

	// ConnectTimeout bounds each connection attempt to the collector,
	// in seconds.
	// Default: 5
	ConnectTimeout int `yaml:"connect_timeout" json:"connect_timeout"`

	// DefaultCommand runs when logrelay-agent run is given no command.
	DefaultCommand []string `yaml:"default_command,omitempty" json:"default_command,omitempty"`

	// Commands names predefined commands for "run --cmd NAME".
	Commands map[string]NamedCommand `yaml:"commands,omitempty" json:"commands,omitempty"`

	// Watch runs commands under the interactive watch view unless a
	// named command or --watch says otherwise.
	Watch bool `yaml:"watch" json:"watch"`

	// AutoQuit leaves the watch view as soon as the command exits
	// instead of counting down.
	AutoQuit bool `yaml:"auto_quit" json:"auto_quit"`

	// WatchMaxLines bounds the lines the watch view keeps; the oldest
	// are discarded first.
	// Default: 10000
	WatchMaxLines int `yaml:"watch_max_lines" json:"watch_max_lines"`

	// ColorScheme names the palette: default, solarized_dark,
	// high_contrast, minimal, or monochrome.
	// Default: default
	ColorScheme string `yaml:"color_scheme" json:"color_scheme"`

	// Colors overrides the echo color per level (debug, info, warn,
	// error): an ANSI 256 index such as "196" or a hex value such as
	// "#ff5f5f". Applied over ColorScheme.
	Colors map[string]string `yaml:"colors,omitempty" json:"colors,omitempty"`
}

// NamedCommand is one entry of agent.commands. It is written either
// as a plain list, [npm, run, dev], or as a mapping that also
// overrides agent.watch: {command: [npm, test], watch: true}.
type NamedCommand struct {
	Command []string `yaml:"command" json:"command"`

	// Watch, when set, replaces agent.watch for this command.
	Watch *bool `yaml:"watch,omitempty" json:"watch,omitempty"`
}

// namedCommandFields is NamedCommand without its methods, for the
// mapping form.
type namedCommandFields NamedCommand

// UnmarshalYAML accepts both the list and the mapping form.
func (c *NamedCommand) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		*c = NamedCommand{}
		return node.Decode(&c.Command)
	}
	var fields namedCommandFields
	if err := node.Decode(&fields); err != nil {
		return err
	}
	*c = NamedCommand(fields)
	return nil
}

// MarshalYAML writes the list form unless Watch is set.
func (c NamedCommand) MarshalYAML() (any, error) {
	if c.Watch == nil {
		return c.Command, nil
	}
	return namedCommandFields(c), nil
}

// UnmarshalJSON accepts both the list and the mapping form.
func (c *NamedCommand) UnmarshalJSON(data []byte) error {
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		*c = NamedCommand{}
		return json.Unmarshal(trimmed, &c.Command)
	}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	var fields namedCommandFields
	if err := decoder.Decode(&fields); err != nil {
		return err
	}
	*c = NamedCommand(fields)
	return nil
}

// MarshalJSON writes the list form unless Watch is set.
func (c NamedCommand) MarshalJSON() ([]byte, error) {
	if c.Watch == nil {
		return json.Marshal(c.Command)
	}
	return json.Marshal(namedCommandFields(c))
}

// IdleTimeout returns ConnectionTimeout as a duration.
func (p PerformanceConfig) IdleTimeout() time.Duration {
	return time.Duration(p.ConnectionTimeout) * time.Second
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			SocketPath:      "/tmp/log-agent.sock",
			QuerySocketPath: "/tmp/logrelay-query.sock",
			Name:            "logrelay",
		},
		Storage: StorageConfig{
			MaxLogs: 10000,
		},
		Logging: LoggingConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		Performance: PerformanceConfig{
			BufferSize:        65536,
			ConnectionTimeout: 300,
			MaxConnections:    100,
		},
		Agent: AgentConfig{
			Project:        "default",
			Format:         "colored",
			ConnectTimeout: 5,
			WatchMaxLines:  10000,
			ColorScheme:    "default",
		},
	}
}

// Options locates the configuration layers. Zero fields fall back to
// the process environment: HomeDir to os.UserHomeDir, WorkDir to the
// current directory, and Getenv to os.Getenv.
type Options struct {
	// ExplicitPath is the --config flag value. When empty,
	// LOGRELAY_CONFIG is consulted.
	ExplicitPath string

	HomeDir string
	WorkDir string
	Getenv  func(string) string
}

// Source records one configuration layer that Load consulted.
type Source struct {
	// Name is "global", "local", "explicit", or "environment".
	Name string

	// Path is the file consulted, or the variable prefix for the
	// environment layer.
	Path string

	// Found reports whether the layer contributed to the result.
	Found bool
}

// GlobalPath returns the preferred global config file under homeDir.
func GlobalPath(homeDir string) string {
	return filepath.Join(homeDir, ".config", "logrelay", "config.yaml")
}

// LocalPath returns the preferred local config file under workDir.
func LocalPath(workDir string) string {
	return filepath.Join(workDir, ".logrelay.yaml")
}

// LocalFileName is the base name of LocalPath, as written to
// .gitignore.
const LocalFileName = ".logrelay.yaml"

// Load merges every configuration layer and validates the result. The
// returned sources list every layer consulted, in precedence order.
func Load(options Options) (*Config, []Source, error) {
	getenv := options.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	homeDir := options.HomeDir
	if homeDir == "" {
		homeDir, _ = os.UserHomeDir()
	}
	workDir := options.WorkDir
	if workDir == "" {
		workDir, _ = os.Getwd()
	}

	cfg := Default()
	var sources []Source

	if homeDir != "" {
		source, err := cfg.mergeFirst("global", []string{
			GlobalPath(homeDir),
			filepath.Join(homeDir, ".config", "logrelay", "config.yml"),
			filepath.Join(homeDir, ".config", "logrelay", "config.json"),
		})
		if err != nil {
			return nil, nil, err
		}
		sources = append(sources, source)
	}

	source, err := cfg.mergeFirst("local", []string{
		LocalPath(workDir),
		filepath.Join(workDir, ".logrelay.yml"),
		filepath.Join(workDir, ".logrelay.json"),
	})
	if err != nil {
		return nil, nil, err
	}
	sources = append(sources, source)

	explicit := options.ExplicitPath
	if explicit == "" {
		explicit = getenv(EnvPrefix + "CONFIG")
	}
	if explicit != "" {
		if err := cfg.mergeFile(explicit); err != nil {
			return nil, nil, err
		}
		sources = append(sources, Source{Name: "explicit", Path: explicit, Found: true})
	}

	applied, err := cfg.applyEnvironment(getenv)
	if err != nil {
		return nil, nil, err
	}
	sources = append(sources, Source{Name: "environment", Path: EnvPrefix + "*", Found: applied})

	cfg.expandVariables(homeDir)
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	return cfg, sources, nil
}

// LoadFile loads defaults overlaid with one file, without consulting
// any other layer.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	home, _ := os.UserHomeDir()
	cfg.expandVariables(home)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFirst merges the first existing file among candidates.
func (c *Config) mergeFirst(name string, candidates []string) (Source, error) {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return Source{}, fmt.Errorf("checking %s config %s: %w", name, path, err)
		}
		if err := c.mergeFile(path); err != nil {
			return Source{}, err
		}
		return Source{Name: name, Path: path, Found: true}, nil
	}
	return Source{Name: name, Path: candidates[0]}, nil
}

// mergeFile overlays the keys set in path onto c.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		err = c.mergeJSON(data)
	default:
		err = c.mergeYAML(data)
	}
	if err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeYAML(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) mergeJSON(data []byte) error {
	var document any
	if err := json.Unmarshal(jsonc.ToJSON(data), &document); err != nil {
		return err
	}
	cleaned, err := json.Marshal(stripAnnotations(document))
	if err != nil {
		return err
	}
	decoder := json.NewDecoder(bytes.NewReader(cleaned))
	decoder.DisallowUnknownFields()
	return decoder.Decode(c)
}

// stripAnnotations removes object keys beginning with "_" at every
// depth, and null values so that they keep the current setting.
func stripAnnotations(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		for key, child := range typed {
			if strings.HasPrefix(key, "_") || child == nil {
				delete(typed, key)
				continue
			}
			typed[key] = stripAnnotations(child)
		}
		return typed
	case []any:
		for i, child := range typed {
			typed[i] = stripAnnotations(child)
		}
		return typed
	default:
		return value
	}
}

// applyEnvironment applies LOGRELAY_* overrides and reports whether
// any was set.
func (c *Config) applyEnvironment(getenv func(string) string) (bool, error) {
	applied := false
	var errs []error

	setString := func(name string, target *string) {
		if value := getenv(EnvPrefix + name); value != "" {
			*target = value
			applied = true
		}
	}
	setInt := func(name string, target *int) {
		value := getenv(EnvPrefix + name)
		if value == "" {
			return
		}
		parsed, err := strconv.Atoi(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %q is not an integer", EnvPrefix, name, value))
			return
		}
		*target = parsed
		applied = true
	}
	setBool := func(name string, target *bool) {
		value := getenv(EnvPrefix + name)
		if value == "" {
			return
		}
		parsed, err := strconv.ParseBool(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %q is not a boolean", EnvPrefix, name, value))
			return
		}
		*target = parsed
		applied = true
	}

	setString("SOCKET_PATH", &c.Server.SocketPath)
	setString("QUERY_SOCKET_PATH", &c.Server.QuerySocketPath)
	setString("NAME", &c.Server.Name)
	setBool("VERBOSE", &c.Server.Verbose)
	setInt("MAX_LOGS", &c.Storage.MaxLogs)
	setString("LOG_LEVEL", &c.Logging.LogLevel)
	setString("LOG_FORMAT", &c.Logging.LogFormat)
	setString("LOG_FILE", &c.Logging.LogFile)
	setInt("BUFFER_SIZE", &c.Performance.BufferSize)
	setInt("CONNECTION_TIMEOUT", &c.Performance.ConnectionTimeout)
	setInt("MAX_CONNECTIONS", &c.Performance.MaxConnections)
	setString("PROJECT", &c.Agent.Project)
	setString("AGENT_FORMAT", &c.Agent.Format)
	setBool("WATCH", &c.Agent.Watch)
	setString("COLOR_SCHEME", &c.Agent.ColorScheme)

	return applied, errors.Join(errs...)
}

func (c *Config) expandVariables(homeDir string) {
	vars := map[string]string{"HOME": homeDir}
	c.Server.SocketPath = expandVars(c.Server.SocketPath, vars)
	c.Server.QuerySocketPath = expandVars(c.Server.QuerySocketPath, vars)
	c.Logging.LogFile = expandVars(c.Logging.LogFile, vars)
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. All problems are
// reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.SocketPath == "" {
		errs = append(errs, errors.New("server.socket_path is required"))
	}
	if c.Server.QuerySocketPath == "" {
		errs = append(errs, errors.New("server.query_socket_path is required"))
	}
	if c.Server.SocketPath != "" && c.Server.SocketPath == c.Server.QuerySocketPath {
		errs = append(errs, fmt.Errorf("server.socket_path and server.query_socket_path must differ (both %s)", c.Server.SocketPath))
	}
	if c.Server.Name == "" {
		errs = append(errs, errors.New("server.name is required"))
	}

	if c.Storage.MaxLogs < 1 {
		errs = append(errs, fmt.Errorf("storage.max_logs must be at least 1, got %d", c.Storage.MaxLogs))
	}

	switch c.Logging.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.log_level %q is invalid (valid: debug, info, warn, error)", c.Logging.LogLevel))
	}
	switch c.Logging.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.log_format %q is invalid (valid: text, json)", c.Logging.LogFormat))
	}

	if c.Performance.BufferSize < 512 {
		errs = append(errs, fmt.Errorf("performance.buffer_size must be at least 512, got %d", c.Performance.BufferSize))
	}
	if c.Performance.ConnectionTimeout < 0 {
		errs = append(errs, fmt.Errorf("performance.connection_timeout must not be negative, got %d", c.Performance.ConnectionTimeout))
	}
	if c.Performance.MaxConnections < 0 {
		errs = append(errs, fmt.Errorf("performance.max_connections must not be negative, got %d", c.Performance.MaxConnections))
	}

	if c.Agent.Project == "" {
		errs = append(errs, errors.New("agent.project is required"))
	}
	switch c.Agent.Format {
	case "colored", "plain", "json", "none":
	default:
		errs = append(errs, fmt.Errorf("agent.format %q is invalid (valid: colored, plain, json, none)", c.Agent.Format))
	}
	if c.Agent.ConnectTimeout < 1 {
		errs = append(errs, fmt.Errorf("agent.connect_timeout must be at least 1, got %d", c.Agent.ConnectTimeout))
	}
	for name, command := range c.Agent.Commands {
		if len(command.Command) == 0 {
			errs = append(errs, fmt.Errorf("agent.commands.%s is empty", name))
		}
	}
	if c.Agent.WatchMaxLines < 1 {
		errs = append(errs, fmt.Errorf("agent.watch_max_lines must be at least 1, got %d", c.Agent.WatchMaxLines))
	}
	if !validColorScheme(c.Agent.ColorScheme) {
		errs = append(errs, fmt.Errorf("agent.color_scheme %q is invalid (valid: %s)", c.Agent.ColorScheme, strings.Join(ColorSchemes, ", ")))
	}
	for level := range c.Agent.Colors {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			errs = append(errs, fmt.Errorf("agent.colors: unknown level %q (valid: debug, info, warn, error)", level))
		}
	}

	return errors.Join(errs...)
}

// ColorSchemes lists the values agent.color_scheme accepts, in the
// canonical spelling. "-" may stand for "_" and case is ignored.
var ColorSchemes = []string{"default", "high_contrast", "minimal", "monochrome", "solarized_dark"}

func validColorScheme(name string) bool {
	normalized := strings.ReplaceAll(strings.ToLower(name), "-", "_")
	for _, scheme := range ColorSchemes {
		if normalized == scheme {
			return true
		}
	}
	return false
}

// Lookup returns the value at a dotted "section.field" key, using the
// YAML field names.
func (c *Config) Lookup(key string) (any, error) {
	section, field, ok := strings.Cut(key, ".")
	if !ok || section == "" || field == "" {
		return nil, fmt.Errorf("key %q must have the form section.field", key)
	}
	var document map[string]map[string]any
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, err
	}
	values, ok := document[section]
	if !ok {
		return nil, fmt.Errorf("unknown config section %q", section)
	}
	value, ok := values[field]
	if !ok {
		// Empty omitempty fields are absent from the encoding but
		// still valid keys.
		if declaredField(section, field) {
			return nil, nil
		}
		return nil, fmt.Errorf("unknown field %q in section %q", field, section)
	}
	return value, nil
}

// declaredField reports whether the Config struct has a field with the
// given YAML names.
func declaredField(section, field string) bool {
	configType := reflect.TypeFor[Config]()
	for i := range configType.NumField() {
		sectionField := configType.Field(i)
		if yamlName(sectionField) != section {
			continue
		}
		for j := range sectionField.Type.NumField() {
			if yamlName(sectionField.Type.Field(j)) == field {
				return true
			}
		}
	}
	return false
}

func yamlName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
	return name
}
