// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"net"
	"os"
	"testing"
	"time"
)

// SocketDir creates a short-named temporary directory directly in /tmp
// for Unix socket files.
func SocketDir(t *testing.T) string {
	t.Helper()
	directory, err := os.MkdirTemp("/tmp", "logrelay-test-*")
	if err != nil {
		t.Fatalf("creating socket directory: %v", err)
	}
	t.Cleanup(func() {
		_ = os.RemoveAll(directory)
	})
	return directory
}

// WaitForSocket blocks until a Unix socket at path accepts a
// connection, or fails the test after timeout.
func WaitForSocket(t TestingT, path string, timeout time.Duration) {
	t.Helper()
	RequireEventually(t, timeout, func() bool {
		conn, err := net.Dial("unix", path)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, "socket %s accepting connections", path)
}
