// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/logrelay/lib/codec"
	"github.com/bureau-foundation/logrelay/lib/query"
	"github.com/bureau-foundation/logrelay/lib/testutil"
)

// queryFunc adapts a function to Queryer.
type queryFunc func(name string, decode func(request any) error) (any, error)

func (f queryFunc) Invoke(name string, decode func(request any) error) (any, error) {
	return f(name, decode)
}

// echoQueries answers every operation with its name and the decoded
// "count" argument.
var echoQueries = queryFunc(func(name string, decode func(request any) error) (any, error) {
	var request struct {
		Count int `cbor:"count"`
	}
	if err := decode(&request); err != nil {
		return nil, &query.ValidationError{Field: "arguments", Err: err}
	}
	return map[string]any{"operation": name, "count": request.Count}, nil
})

// sendRequest connects to a Unix socket, sends a CBOR request, and
// returns the decoded response envelope.
func sendRequest(t *testing.T, socketPath string, request any) Response {
	t.Helper()

	encoded, err := codec.Marshal(request)
	if err != nil {
		t.Errorf("encoding request: %v", err)
		return Response{}
	}
	return sendRaw(t, socketPath, encoded)
}

func sendRaw(t *testing.T, socketPath string, payload []byte) Response {
	t.Helper()

	conn, err := net.DialTimeout("unix", socketPath, 5*time.Second)
	if err != nil {
		t.Errorf("connecting to socket: %v", err)
		return Response{}
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		t.Errorf("writing request: %v", err)
		return Response{}
	}
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	var response Response
	if err := codec.NewDecoder(conn).Decode(&response); err != nil {
		t.Errorf("decoding response: %v", err)
	}
	return response
}

// decodeData unmarshals the Data field of a response into target.
func decodeData(t *testing.T, response Response, target any) {
	t.Helper()
	if len(response.Data) == 0 {
		t.Fatal("response has no data to decode")
	}
	if err := codec.Unmarshal(response.Data, target); err != nil {
		t.Fatalf("decoding response data: %v", err)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// startServer runs server.Serve until the test ends and waits for the
// socket to accept connections. The returned channel delivers Serve's
// result.
func startServer(t *testing.T, server *Server) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		serveDone <- server.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Error("Serve did not return after cancellation")
		}
	})

	select {
	case <-server.Ready():
	case <-finished:
		t.Fatalf("Serve returned before listening: %v", <-serveDone)
	case <-time.After(5 * time.Second):
		t.Fatal("query socket did not start listening")
	}
	return cancel, serveDone
}

// newTestServer creates a server for queries on a fresh socket path.
// configure may adjust the config before the server is built.
func newTestServer(t *testing.T, queries Queryer, configure func(*ServerConfig)) *Server {
	t.Helper()
	config := ServerConfig{
		SocketPath: filepath.Join(testutil.SocketDir(t), "query.sock"),
		Queries:    queries,
		Logger:     testLogger(),
	}
	if configure != nil {
		configure(&config)
	}
	return NewServer(config)
}

func TestServerDispatchesOperations(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, echoQueries, nil)
	startServer(t, server)

	response := sendRequest(t, server.SocketPath(), map[string]any{
		"action": "get_recent_logs",
		"args":   map[string]any{"count": 7},
	})
	if !response.OK {
		t.Fatalf("expected ok=true, got error %q", response.Error)
	}
	var data struct {
		Operation string `cbor:"operation"`
		Count     int    `cbor:"count"`
	}
	decodeData(t, response, &data)
	if data.Operation != "get_recent_logs" || data.Count != 7 {
		t.Errorf("data = %+v", data)
	}
}

func TestServerRejectsBadRequests(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, echoQueries, nil)
	startServer(t, server)

	tests := []struct {
		name    string
		request any
		kind    string
		want    string
	}{
		{"unknown action", map[string]any{"action": "nonexistent"}, KindNotFound, `unknown action "nonexistent"`},
		{"missing action", map[string]any{"args": map[string]any{}}, KindInvalid, "missing required field: action"},
		{"unknown envelope key", map[string]any{"action": "get_stats", "count": 3}, KindInvalid, "invalid request"},
		{"unknown argument", map[string]any{"action": "get_recent_logs", "args": map[string]any{"cuont": 3}}, KindInvalid, "invalid arguments"},
		{"status without provider", map[string]any{"action": StatusAction}, KindNotFound, `unknown action "status"`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			response := sendRequest(t, server.SocketPath(), test.request)
			if response.OK {
				t.Fatal("expected ok=false, got true")
			}
			if response.Kind != test.kind {
				t.Errorf("kind = %q, want %q", response.Kind, test.kind)
			}
			if !bytes.Contains([]byte(response.Error), []byte(test.want)) {
				t.Errorf("error = %q, want it to contain %q", response.Error, test.want)
			}
		})
	}
}

func TestServerInvalidCBOR(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, echoQueries, nil)
	startServer(t, server)

	// Bytes that are not a well-formed CBOR value.
	response := sendRaw(t, server.SocketPath(), []byte{0xff, 0xfe, 0xfd, 0xfc, 0xfb})
	if response.OK || response.Kind != KindInvalid {
		t.Errorf("response = %+v, want an invalid-request failure", response)
	}
}

func TestServerRejectsOversizedRequest(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, echoQueries, func(config *ServerConfig) {
		config.MaxRequestSize = 64
	})
	startServer(t, server)

	response := sendRequest(t, server.SocketPath(), map[string]any{
		"action": "search_logs",
		"args":   map[string]any{"query": string(bytes.Repeat([]byte("x"), 200))},
	})
	if response.OK || response.Kind != KindInvalid {
		t.Fatalf("response = %+v, want an invalid-request failure", response)
	}
	if want := "larger than 64 bytes"; !bytes.Contains([]byte(response.Error), []byte(want)) {
		t.Errorf("error = %q, want it to contain %q", response.Error, want)
	}
}

func TestServerClassifiesQueryErrors(t *testing.T) {
	t.Parallel()

	failures := queryFunc(func(name string, decode func(request any) error) (any, error) {
		switch name {
		case "get_logs":
			return nil, &query.ValidationError{Field: "level", Err: errors.New(`unknown level "loud"`)}
		default:
			return nil, errors.New("buffer unavailable")
		}
	})
	server := newTestServer(t, failures, nil)
	startServer(t, server)

	tests := []struct {
		action string
		kind   string
		want   string
	}{
		{"get_logs", KindInvalid, `invalid level: unknown level "loud"`},
		{"get_stats", KindInternal, "buffer unavailable"},
	}
	for _, test := range tests {
		response := sendRequest(t, server.SocketPath(), map[string]any{"action": test.action})
		if response.OK || response.Kind != test.kind || response.Error != test.want {
			t.Errorf("%s: response = %+v, want kind %q error %q", test.action, response, test.kind, test.want)
		}
	}

	if stats := server.Stats(); stats.QueriesFailed != 2 || stats.QueriesServed != 0 {
		t.Errorf("stats = %+v, want 2 failed", stats)
	}
}

func TestServerStatusCarriesQueryCounters(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, echoQueries, func(config *ServerConfig) {
		config.Status = func() Status {
			return Status{Version: "test", BufferedLogs: 4}
		}
	})
	startServer(t, server)

	sendRequest(t, server.SocketPath(), map[string]any{"action": "get_stats"})
	sendRequest(t, server.SocketPath(), map[string]any{"action": "drop_everything"})

	response := sendRequest(t, server.SocketPath(), map[string]any{"action": StatusAction})
	if !response.OK {
		t.Fatalf("status failed: %q", response.Error)
	}
	var status Status
	decodeData(t, response, &status)
	if status.Version != "test" || status.BufferedLogs != 4 {
		t.Errorf("status = %+v", status)
	}
	if status.QueriesServed != 1 || status.QueriesFailed != 1 {
		t.Errorf("queries served %d failed %d, want 1 and 1", status.QueriesServed, status.QueriesFailed)
	}
}

func TestServerConcurrentRequests(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, echoQueries, nil)
	startServer(t, server)

	const concurrency = 20
	var clients sync.WaitGroup
	for i := range concurrency {
		clients.Add(1)
		go func() {
			defer clients.Done()
			response := sendRequest(t, server.SocketPath(), map[string]any{
				"action": "get_recent_logs",
				"args":   map[string]any{"count": i},
			})
			if !response.OK {
				t.Errorf("request %d: expected ok=true, got %q", i, response.Error)
				return
			}
			var data struct {
				Count int `cbor:"count"`
			}
			if err := codec.Unmarshal(response.Data, &data); err != nil {
				t.Errorf("request %d: decoding: %v", i, err)
				return
			}
			if data.Count != i {
				t.Errorf("request %d: count = %d", i, data.Count)
			}
		}()
	}
	clients.Wait()

	if served := server.Stats().QueriesServed; served != concurrency {
		t.Errorf("QueriesServed = %d, want %d", served, concurrency)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	t.Parallel()

	queryStarted := make(chan struct{})
	queryRelease := make(chan struct{})
	slow := queryFunc(func(name string, decode func(request any) error) (any, error) {
		close(queryStarted)
		<-queryRelease
		return map[string]any{"completed": true}, nil
	})
	server := newTestServer(t, slow, nil)
	cancel, serveDone := startServer(t, server)

	responses := make(chan Response, 1)
	go func() {
		responses <- sendRequest(t, server.SocketPath(), map[string]any{"action": "get_stats"})
	}()

	testutil.RequireClosed(t, queryStarted, 5*time.Second, "query did not start")
	cancel()
	close(queryRelease)

	response := testutil.RequireReceive(t, responses, 5*time.Second, "in-flight request did not complete")
	if !response.OK {
		t.Errorf("expected ok=true for in-flight request, got %q", response.Error)
	}

	if err := testutil.RequireReceive(t, serveDone, 5*time.Second, "Serve did not return after cancellation"); err != nil {
		t.Errorf("Serve returned error: %v", err)
	}
	if _, err := os.Stat(server.SocketPath()); !os.IsNotExist(err) {
		t.Error("socket file not cleaned up after Serve returned")
	}
}

func TestServerSocketPermissions(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, echoQueries, nil)
	startServer(t, server)

	info, err := os.Stat(server.SocketPath())
	if err != nil {
		t.Fatal(err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("socket mode = %o, want 600", mode)
	}
}

func TestServerReplacesStaleSocket(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, echoQueries, nil)
	if err := os.WriteFile(server.SocketPath(), []byte("stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	startServer(t, server)

	if response := sendRequest(t, server.SocketPath(), map[string]any{"action": "get_stats"}); !response.OK {
		t.Errorf("request after stale socket replacement failed: %q", response.Error)
	}
}
