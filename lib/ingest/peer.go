// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"net"

	"golang.org/x/sys/unix"
)

// peerPID returns the process id of the agent on the other end of a
// Unix socket connection, via SO_PEERCRED. The agent also reports a
// pid in every record; the socket-level pid is what the kernel saw at
// connect time and is logged for correlation.
func peerPID(conn net.Conn) (int32, bool) {
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		return 0, false
	}
	raw, err := unixConn.SyscallConn()
	if err != nil {
		return 0, false
	}
	var credentials *unix.Ucred
	var credentialsErr error
	if err := raw.Control(func(fd uintptr) {
		credentials, credentialsErr = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	}); err != nil || credentialsErr != nil {
		return 0, false
	}
	return credentials.Pid, true
}
