// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"os"
)

// exitCoder is implemented by errors that carry the process exit code
// and have already reported themselves, such as the exit status of the
// command run by logrelay-agent.
type exitCoder interface {
	ExitCode() int
}

// Exit terminates the process for the error returned by a binary's
// command tree. An error carrying an exit code exits with it silently;
// any other error is reported by Fatal. A nil error returns.
func Exit(err error) {
	if err == nil {
		return
	}
	code, report := exitStatus(err)
	if report {
		Fatal(err)
	}
	os.Exit(code)
}

// Fatal writes "error: err" to stderr and exits with code 1.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

// exitStatus returns the exit code for err and whether err still needs
// to be printed.
func exitStatus(err error) (int, bool) {
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode(), false
	}
	return 1, true
}
