// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides layered configuration loading for the
// collector and the agent.
//
// [Load] merges, lowest precedence first:
//
//  1. built-in defaults ([Default])
//  2. the global file, ~/.config/logrelay/config.yaml (or config.json)
//  3. the local file in the working directory, .logrelay.yaml (or
//     .logrelay.yml, .logrelay.json)
//  4. an explicit file from --config or LOGRELAY_CONFIG
//  5. LOGRELAY_* environment variables
//
// Each file overrides only the keys it sets. YAML files are decoded
// with gopkg.in/yaml.v3; .json and .jsonc files may contain comments
// and trailing commas and are normalized with github.com/tidwall/jsonc.
// In JSON files, keys beginning with "_" are annotations and ignored.
// Any other unknown key is an error, so a misspelled option fails
// loudly instead of silently keeping its default.
//
// Path fields have ${HOME} and ${VAR:-default} patterns expanded after
// merging.
//
// Key exports:
//
//   - [Config] -- master struct with Server, Storage, Logging,
//     Performance, and Agent sections
//   - [Default] -- returns a Config with every default filled in
//   - [Load] and [LoadFile] -- layered and single-file loading
//   - [Template] -- the commented file written by "config init"
package config
