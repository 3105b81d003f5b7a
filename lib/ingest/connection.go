// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/netutil"
)

// linePreviewLength bounds how much of a rejected line is logged.
const linePreviewLength = 200

// serveConnection reads records until the peer disconnects, the idle
// timeout expires, or Stop closes the connection.
func (l *Listener) serveConnection(conn net.Conn) {
	defer l.group.Done()
	defer l.forget(conn)

	logger := l.logger.With("connection", uuid.NewString())
	if pid, ok := peerPID(conn); ok {
		logger = logger.With("peer_pid", pid)
	}
	logger.Debug("agent connection opened")

	reader := bufio.NewReaderSize(conn, l.config.ReadBufferSize)
	var pending []byte
	overlong := false

	for {
		if l.config.IdleTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(l.config.IdleTimeout))
		}

		chunk, err := reader.ReadSlice('\n')
		if !overlong {
			if len(pending)+len(chunk) > l.config.MaxLineSize {
				overlong = true
				pending = pending[:0]
			} else {
				pending = append(pending, chunk...)
			}
		}

		switch {
		case err == nil:
			if overlong {
				l.reject(logger, nil, "line exceeds maximum size")
				overlong = false
			} else {
				l.handleLine(logger, pending)
			}
			pending = pending[:0]

		case errors.Is(err, bufio.ErrBufferFull):
			// Line continues beyond the reader's buffer; keep reading.

		case errors.Is(err, io.EOF):
			// A final line without a newline is still a record when the
			// agent closed cleanly, but not when Stop cut the
			// connection.
			switch {
			case l.stopping():
			case overlong:
				l.reject(logger, nil, "line exceeds maximum size")
			case len(pending) > 0:
				l.handleLine(logger, pending)
			}
			logger.Debug("agent connection closed")
			return

		default:
			var netError net.Error
			switch {
			case errors.As(err, &netError) && netError.Timeout():
				logger.Info("closing idle agent connection", "idle_timeout", l.config.IdleTimeout)
			case netutil.IsExpectedCloseError(err), errors.Is(err, os.ErrDeadlineExceeded):
				logger.Debug("agent connection closed", "discarded_bytes", len(pending))
			default:
				logger.Warn("agent connection read failed", "error", err)
			}
			return
		}
	}
}

// handleLine parses one line (with or without its trailing newline)
// and appends the record.
func (l *Listener) handleLine(logger *slog.Logger, line []byte) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return
	}

	record, err := logrecord.Parse(line)
	if err != nil {
		l.reject(logger, line, err.Error())
		return
	}

	l.config.Buffer.Append(record)
	l.recordsAccepted.Add(1)

	logger.Debug("record received",
		"project", record.Data.Project,
		"level", record.Data.Level,
		"message", logrecord.Preview(record.Data.Message, 100),
	)

	if l.projects.Add(record.Data.Project) {
		logger.Info("agent connected", "project", record.Data.Project)
		if l.config.OnProjectConnected != nil {
			l.config.OnProjectConnected(record.Data.Project)
		}
	}
}

func (l *Listener) reject(logger *slog.Logger, line []byte, reason string) {
	l.recordsDropped.Add(1)
	preview := line
	if len(preview) > linePreviewLength {
		preview = preview[:linePreviewLength]
	}
	logger.Warn("dropping malformed record", "error", reason, "line", string(preview))
}
