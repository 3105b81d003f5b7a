// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of the logrelay binaries.
//
// Release builds inject the variables with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/logrelay/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/...
//
// Binaries built with "go install" or "go build" without those flags
// fall back to the VCS stamp the Go toolchain embeds, so a locally
// built collector still reports the commit it came from.
//
// [Info] is the one-line form reported by "logrelay status" and the
// MCP handshake; [Full] adds the Go version and platform.
package version
