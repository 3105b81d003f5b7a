// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process ends the logrelay binaries. main functions hand the
// error returned by their command tree to Exit, which is the one place
// that writes to stderr outside the structured logger and the CLI
// output.
package process
