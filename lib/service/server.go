// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/logrelay/lib/clock"
	"github.com/bureau-foundation/logrelay/lib/codec"
	"github.com/bureau-foundation/logrelay/lib/netutil"
)

const (
	// DefaultMaxRequestSize bounds one CBOR request. Query arguments
	// are a handful of short strings and integers; the bound exists so
	// a misbehaving client cannot make the collector buffer without
	// limit.
	DefaultMaxRequestSize = 128 * 1024

	// DefaultReadTimeout is how long the server waits for a client to
	// finish sending its request.
	DefaultReadTimeout = 30 * time.Second

	// writeTimeout bounds writing one response.
	writeTimeout = 10 * time.Second
)

// Response is the wire envelope of every query socket response.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Kind  string           `cbor:"kind,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// Failure kinds carried in Response.Kind so that clients can tell a
// bad request from a server fault without parsing the message.
const (
	KindInvalid  = "invalid"
	KindNotFound = "not_found"
	KindInternal = "internal"
)

// Queryer answers query operations by name. *query.Engine implements
// it; decode fills the operation's request struct from the request's
// arguments.
type Queryer interface {
	Invoke(name string, decode func(request any) error) (any, error)
}

// ServerConfig configures a Server. SocketPath, Queries, and Logger
// are required.
type ServerConfig struct {
	SocketPath string
	Queries    Queryer
	Logger     *slog.Logger

	// Status answers the "status" action. Nil leaves the action
	// unregistered.
	Status func() Status

	// Clock times requests and paces accept retries. Nil means
	// clock.Real().
	Clock clock.Clock

	// MaxRequestSize bounds one request. Zero means
	// DefaultMaxRequestSize.
	MaxRequestSize int

	// ReadTimeout bounds reading one request. Zero means
	// DefaultReadTimeout.
	ReadTimeout time.Duration
}

// ServerStats are the server's running counters.
type ServerStats struct {
	QueriesServed uint64
	QueriesFailed uint64
}

// Server answers query operations on a Unix socket. Each connection
// carries exactly one request and one response: the client writes a
// CBOR request, the server dispatches it and writes a Response, then
// the connection closes.
type Server struct {
	config ServerConfig
	logger *slog.Logger

	// ready is closed once the socket is listening.
	ready chan struct{}

	// connections tracks in-flight requests. Serve waits for them
	// before returning.
	connections sync.WaitGroup

	queriesServed atomic.Uint64
	queriesFailed atomic.Uint64
}

// NewServer creates a server that will listen on config.SocketPath.
func NewServer(config ServerConfig) *Server {
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.MaxRequestSize <= 0 {
		config.MaxRequestSize = DefaultMaxRequestSize
	}
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultReadTimeout
	}
	return &Server{
		config: config,
		logger: config.Logger.With("component", "query_socket"),
		ready:  make(chan struct{}),
	}
}

// Ready returns a channel that is closed once Serve is accepting
// connections.
func (s *Server) Ready() <-chan struct{} { return s.ready }

// SocketPath returns the path the server listens on.
func (s *Server) SocketPath() string { return s.config.SocketPath }

// Stats returns the number of requests answered so far.
func (s *Server) Stats() ServerStats {
	return ServerStats{
		QueriesServed: s.queriesServed.Load(),
		QueriesFailed: s.queriesFailed.Load(),
	}
}

// Serve listens on the socket and answers requests until ctx is
// cancelled, then stops accepting and waits for in-flight requests.
//
// A stale socket file is replaced. The socket is created mode 0600
// and removed on return.
func (s *Server) Serve(ctx context.Context) error {
	path := s.config.SocketPath
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", path, err)
	}
	defer func() {
		listener.Close()
		os.Remove(path)
	}()
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restricting %s: %w", path, err)
	}
	close(s.ready)

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("query socket listening", "path", path)

	var backoff netutil.AcceptBackoff
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			delay := backoff.Next()
			s.logger.Error("accept failed", "error", err, "retry_in", delay)
			s.config.Clock.Sleep(delay)
			continue
		}
		backoff.Reset()

		s.connections.Add(1)
		go func() {
			defer s.connections.Done()
			s.handleConnection(conn)
		}()
	}

	s.connections.Wait()
	s.logger.Info("query socket stopped",
		"queries_served", s.queriesServed.Load(),
		"queries_failed", s.queriesFailed.Load(),
	)
	return nil
}

// incomingRequest is the server-side view of Request: arguments stay
// encoded until the operation's request type is known.
type incomingRequest struct {
	Action string           `cbor:"action"`
	Args   codec.RawMessage `cbor:"args,omitempty"`
}

// handleConnection reads one request, answers it, and closes conn.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

	// CBOR is self-delimiting, so one Decode reads exactly one request.
	var raw codec.RawMessage
	limit := int64(s.config.MaxRequestSize)
	if err := codec.NewDecoder(io.LimitReader(conn, limit)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			// Connected and sent nothing.
			return
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			s.fail(conn, "", KindInvalid, fmt.Sprintf("invalid request: truncated or larger than %d bytes", limit))
			return
		}
		s.fail(conn, "", KindInvalid, fmt.Sprintf("invalid request: %v", err))
		return
	}

	var request incomingRequest
	if err := codec.UnmarshalStrict(raw, &request); err != nil {
		s.fail(conn, "", KindInvalid, fmt.Sprintf("invalid request: %v", err))
		return
	}
	if request.Action == "" {
		s.fail(conn, "", KindInvalid, "missing required field: action")
		return
	}

	started := s.config.Clock.Now()
	result, err := s.dispatch(request)
	if err != nil {
		s.fail(conn, request.Action, errorKind(err), err.Error())
		return
	}

	data, err := codec.Marshal(result)
	if err != nil {
		s.fail(conn, request.Action, KindInternal, fmt.Sprintf("encoding %s result: %v", request.Action, err))
		return
	}
	s.queriesServed.Add(1)
	s.logger.Debug("query answered",
		"action", request.Action,
		"duration", s.config.Clock.Now().Sub(started),
		"bytes", len(data),
	)
	s.write(conn, Response{OK: true, Data: data})
}

// dispatch answers the status action itself and routes everything
// else to the query engine.
func (s *Server) dispatch(request incomingRequest) (any, error) {
	if request.Action == StatusAction {
		if s.config.Status == nil {
			return nil, &UnknownActionError{Action: request.Action}
		}
		status := s.config.Status()
		status.QueriesServed = s.queriesServed.Load()
		status.QueriesFailed = s.queriesFailed.Load()
		return status, nil
	}
	if !knownAction(request.Action) {
		return nil, &UnknownActionError{Action: request.Action}
	}
	return s.config.Queries.Invoke(request.Action, decodeArgs(request.Args))
}

// fail records and writes a failure response.
func (s *Server) fail(conn net.Conn, action, kind, message string) {
	s.queriesFailed.Add(1)
	s.logger.Debug("query failed", "action", action, "kind", kind, "error", message)
	s.write(conn, Response{Error: message, Kind: kind})
}

// write sends one response. Write failures are logged at debug: the
// connection is closing either way.
func (s *Server) write(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("writing response failed", "error", err)
	}
}
