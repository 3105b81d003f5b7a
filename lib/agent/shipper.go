// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/logrelay/lib/logrecord"
)

// DefaultConnectTimeout bounds dialing the collector and writing one
// record.
const DefaultConnectTimeout = 5 * time.Second

// Sender delivers records to a collector.
type Sender interface {
	Send(ctx context.Context, record logrecord.Record) error
}

// ShipperStats counts delivery outcomes.
type ShipperStats struct {
	Sent    uint64
	Dropped uint64
}

// Shipper sends records over a Unix socket to the collector's
// ingestion listener. It is safe for concurrent use; writes are
// serialized so that lines from different streams never interleave
// within one record.
type Shipper struct {
	socketPath string
	timeout    time.Duration
	logger     *slog.Logger

	mu   sync.Mutex
	conn net.Conn
	// connected tracks the last observed reachability so that
	// transitions are logged once rather than per record.
	connected bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

// NewShipper creates a shipper for the collector at socketPath. A
// zero timeout means DefaultConnectTimeout.
func NewShipper(socketPath string, timeout time.Duration, logger *slog.Logger) *Shipper {
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	return &Shipper{
		socketPath: socketPath,
		timeout:    timeout,
		logger:     logger,
	}
}

// SocketPath returns the collector socket this shipper writes to.
func (s *Shipper) SocketPath() string {
	return s.socketPath
}

// Send writes one record. On failure the record is dropped, the
// connection is closed, and the error is returned; the next Send
// reconnects.
func (s *Shipper) Send(ctx context.Context, record logrecord.Record) error {
	line, err := record.MarshalLine()
	if err != nil {
		s.dropped.Add(1)
		return fmt.Errorf("encoding record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		conn, err := s.dial(ctx)
		if err != nil {
			s.dropped.Add(1)
			s.markDisconnected(err)
			return err
		}
		s.conn = conn
	}

	deadline := time.Now().Add(s.timeout)
	if contextDeadline, ok := ctx.Deadline(); ok && contextDeadline.Before(deadline) {
		deadline = contextDeadline
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return s.fail(fmt.Errorf("setting write deadline: %w", err))
	}
	if _, err := s.conn.Write(line); err != nil {
		return s.fail(fmt.Errorf("writing record to %s: %w", s.socketPath, err))
	}

	s.sent.Add(1)
	if !s.connected {
		s.connected = true
		s.logger.Info("connected to collector", "socket", s.socketPath)
	}
	return nil
}

// Stats returns the delivery counters.
func (s *Shipper) Stats() ShipperStats {
	return ShipperStats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}
}

// Close closes the current connection, if any.
func (s *Shipper) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *Shipper) dial(ctx context.Context) (net.Conn, error) {
	dialer := net.Dialer{Timeout: s.timeout}
	conn, err := dialer.DialContext(ctx, "unix", s.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to collector at %s: %w", s.socketPath, err)
	}
	return conn, nil
}

// fail drops the record and tears down the connection. Caller holds mu.
func (s *Shipper) fail(err error) error {
	s.dropped.Add(1)
	s.conn.Close()
	s.conn = nil
	s.markDisconnected(err)
	return err
}

// markDisconnected logs the first failure after a period of
// reachability, or the first failure ever. Caller holds mu.
func (s *Shipper) markDisconnected(err error) {
	if s.connected {
		s.connected = false
		s.logger.Warn("lost connection to collector, dropping records until it returns",
			"socket", s.socketPath, "error", err)
		return
	}
	if s.dropped.Load() == 1 {
		s.logger.Warn("collector unreachable, dropping records until it starts",
			"socket", s.socketPath, "error", err)
	}
}

// TestProject and DefaultTestMessage describe the record sent by
// "logrelay-agent test".
const (
	TestProject        = "test"
	DefaultTestMessage = "Test message from logrelay-agent"
)

// TestRecord builds the connectivity-check record. Its level is
// always info regardless of the message text.
func TestRecord(message string, pid int, now time.Time) (logrecord.Record, error) {
	if message == "" {
		message = DefaultTestMessage
	}
	return logrecord.New(logrecord.Data{
		Timestamp: now.UTC().Format(time.RFC3339Nano),
		Level:     logrecord.LevelInfo,
		Source:    logrecord.SourceStdout,
		Project:   TestProject,
		Message:   message,
		PID:       int64(pid),
	})
}
