// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for the relay's
// packages.
//
// [SocketDir] creates a temporary directory in /tmp suitable for Unix
// domain sockets. Unix domain sockets have a 108-byte path limit
// (sun_path in sockaddr_un) and t.TempDir() paths can exceed it. The
// directory is removed when the test completes. [WaitForSocket] polls
// until a listener on such a path accepts connections.
//
// [RequireReceive], [RequireClosed], and [RequireEventually]
// encapsulate the timeout safety valve pattern so that individual
// tests do not need direct time.After calls or sleeps.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no internal dependencies.
package testutil
