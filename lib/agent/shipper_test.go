// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"bufio"
	"context"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/testutil"
)

// collector is a minimal ingestion endpoint that parses every line it
// receives.
type collector struct {
	listener net.Listener
	records  chan logrecord.Record
	conns    chan net.Conn
}

func startCollector(t *testing.T, path string) *collector {
	t.Helper()
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	c := &collector{
		listener: listener,
		records:  make(chan logrecord.Record, 64),
		conns:    make(chan net.Conn, 8),
	}
	t.Cleanup(func() { listener.Close() })
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			c.conns <- conn
			go func() {
				scanner := bufio.NewScanner(conn)
				for scanner.Scan() {
					record, err := logrecord.Parse(scanner.Bytes())
					if err != nil {
						t.Errorf("collector received malformed line %q: %v", scanner.Text(), err)
						continue
					}
					c.records <- record
				}
			}()
		}
	}()
	return c
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testRecord(t *testing.T, message string) logrecord.Record {
	t.Helper()
	record, err := logrecord.Capture("api", message, logrecord.SourceStdout, 42, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	return record
}

func TestShipperDeliversOverOneConnection(t *testing.T) {
	t.Parallel()

	path := filepath.Join(testutil.SocketDir(t), "ingest.sock")
	collector := startCollector(t, path)
	shipper := NewShipper(path, time.Second, discardLogger())
	defer shipper.Close()

	for _, message := range []string{"first", "second", "third"} {
		if err := shipper.Send(context.Background(), testRecord(t, message)); err != nil {
			t.Fatalf("Send(%s): %v", message, err)
		}
	}
	for _, want := range []string{"first", "second", "third"} {
		record := testutil.RequireReceive(t, collector.records, 5*time.Second, "record %s", want)
		if record.Data.Message != want {
			t.Errorf("received %q, want %q", record.Data.Message, want)
		}
		if record.Data.Project != "api" || record.Data.PID != 42 {
			t.Errorf("received data %+v", record.Data)
		}
	}

	testutil.RequireReceive(t, collector.conns, 5*time.Second, "first connection")
	select {
	case <-collector.conns:
		t.Error("shipper opened a second connection")
	default:
	}

	if stats := shipper.Stats(); stats.Sent != 3 || stats.Dropped != 0 {
		t.Errorf("Stats() = %+v, want 3 sent", stats)
	}
}

func TestShipperDropsWhileUnreachable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(testutil.SocketDir(t), "missing.sock")
	shipper := NewShipper(path, time.Second, discardLogger())

	for range 3 {
		if err := shipper.Send(context.Background(), testRecord(t, "lost")); err == nil {
			t.Fatal("Send to missing socket should fail")
		}
	}
	if stats := shipper.Stats(); stats.Sent != 0 || stats.Dropped != 3 {
		t.Errorf("Stats() = %+v, want 3 dropped", stats)
	}
}

func TestShipperReconnectsAfterCollectorRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(testutil.SocketDir(t), "ingest.sock")
	first := startCollector(t, path)
	shipper := NewShipper(path, time.Second, discardLogger())
	defer shipper.Close()

	if err := shipper.Send(context.Background(), testRecord(t, "before")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	testutil.RequireReceive(t, first.records, 5*time.Second, "record before restart")

	conn := testutil.RequireReceive(t, first.conns, 5*time.Second, "connection")
	first.listener.Close()
	conn.Close()
	os.Remove(path)

	if err := shipper.Send(context.Background(), testRecord(t, "during")); err == nil {
		t.Fatal("Send over a closed connection should fail")
	}

	second := startCollector(t, path)
	if err := shipper.Send(context.Background(), testRecord(t, "after")); err != nil {
		t.Fatalf("Send after restart: %v", err)
	}
	record := testutil.RequireReceive(t, second.records, 5*time.Second, "record after restart")
	if record.Data.Message != "after" {
		t.Errorf("received %q after restart, want %q", record.Data.Message, "after")
	}

	if stats := shipper.Stats(); stats.Sent != 2 || stats.Dropped != 1 {
		t.Errorf("Stats() = %+v, want 2 sent and 1 dropped", stats)
	}
}

func TestTestRecord(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	record, err := TestRecord("", 7, now)
	if err != nil {
		t.Fatalf("TestRecord: %v", err)
	}
	want := logrecord.Data{
		Timestamp: "2026-03-01T12:00:00Z",
		Level:     logrecord.LevelInfo,
		Source:    logrecord.SourceStdout,
		Project:   TestProject,
		Message:   DefaultTestMessage,
		PID:       7,
	}
	if record.Data != want {
		t.Errorf("Data = %+v, want %+v", record.Data, want)
	}

	// Keyword inference does not apply to the test record.
	record, err = TestRecord("error handling works", 7, now)
	if err != nil {
		t.Fatalf("TestRecord: %v", err)
	}
	if record.Data.Level != logrecord.LevelInfo {
		t.Errorf("Level = %q, want info", record.Data.Level)
	}
}
