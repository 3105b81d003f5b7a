// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/logrelay/lib/clock"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/netutil"
)

// DefaultSocketPath is where agents connect when nothing else is
// configured.
const DefaultSocketPath = "/tmp/log-agent.sock"

const (
	// DefaultReadBufferSize is the per-connection read buffer.
	DefaultReadBufferSize = 64 * 1024

	// DefaultMaxLineSize bounds a single record line. Longer lines are
	// discarded as malformed without buffering their full contents.
	DefaultMaxLineSize = 1024 * 1024
)

// State is the lifecycle state of a Listener.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateListening
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateListening:
		return "listening"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ErrBind matches every BindError via errors.Is.
var ErrBind = errors.New("binding ingestion socket")

// BindError reports that the ingestion socket could not be bound.
type BindError struct {
	Path string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("binding ingestion socket %s: %v", e.Path, e.Err)
}

func (e *BindError) Unwrap() []error { return []error{ErrBind, e.Err} }

// Appender receives parsed records. *logbuffer.Buffer implements it.
type Appender interface {
	Append(record logrecord.Record)
}

// Config configures a Listener. SocketPath, Buffer, and Logger are
// required.
type Config struct {
	SocketPath string
	Buffer     Appender
	Logger     *slog.Logger

	// Clock paces accept retries. Nil means clock.Real().
	Clock clock.Clock

	// ReadBufferSize is the bufio reader size per connection. Zero
	// means DefaultReadBufferSize.
	ReadBufferSize int

	// MaxLineSize bounds one record line. Zero means
	// DefaultMaxLineSize.
	MaxLineSize int

	// IdleTimeout closes a connection that sends nothing for this
	// long. Zero disables the timeout.
	IdleTimeout time.Duration

	// MaxConnections refuses agents beyond this many concurrent
	// connections. Zero means no limit.
	MaxConnections int

	// OnProjectConnected, if set, is called (outside any lock) the
	// first time a project name is seen.
	OnProjectConnected func(project string)
}

// Stats are the listener's running counters.
type Stats struct {
	RecordsAccepted    uint64 `json:"records_accepted"`
	RecordsDropped     uint64 `json:"records_dropped"`
	ConnectionsActive  int64  `json:"connections_active"`
	ConnectionsTotal   uint64 `json:"connections_total"`
	ConnectionsRefused uint64 `json:"connections_refused"`
}

// Listener accepts agent connections and feeds parsed records to a
// buffer.
type Listener struct {
	config   Config
	logger   *slog.Logger
	projects *Registry

	mutex       sync.Mutex
	state       State
	listener    net.Listener
	connections map[net.Conn]struct{}
	// group tracks the accept loop and every connection goroutine.
	group sync.WaitGroup

	recordsAccepted    atomic.Uint64
	recordsDropped     atomic.Uint64
	connectionsActive  atomic.Int64
	connectionsTotal   atomic.Uint64
	connectionsRefused atomic.Uint64
}

// NewListener creates a stopped listener.
func NewListener(config Config) *Listener {
	if config.ReadBufferSize <= 0 {
		config.ReadBufferSize = DefaultReadBufferSize
	}
	if config.MaxLineSize <= 0 {
		config.MaxLineSize = DefaultMaxLineSize
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	return &Listener{
		config:      config,
		logger:      config.Logger.With("component", "ingest"),
		projects:    NewRegistry(),
		connections: make(map[net.Conn]struct{}),
	}
}

// Start removes any stale socket file, binds, and begins accepting
// connections in the background. Returns a *BindError if the socket
// cannot be bound.
func (l *Listener) Start() error {
	l.mutex.Lock()
	if l.state != StateStopped {
		state := l.state
		l.mutex.Unlock()
		return fmt.Errorf("ingestion listener is %s, not stopped", state)
	}
	l.state = StateStarting
	l.mutex.Unlock()

	listener, err := l.bind()
	if err != nil {
		l.setState(StateStopped)
		return err
	}

	l.mutex.Lock()
	l.listener = listener
	l.state = StateListening
	l.mutex.Unlock()

	l.group.Add(1)
	go l.acceptLoop(listener)

	l.logger.Info("ingestion socket listening", "path", l.config.SocketPath)
	return nil
}

func (l *Listener) bind() (net.Listener, error) {
	if err := os.Remove(l.config.SocketPath); err != nil && !os.IsNotExist(err) {
		return nil, &BindError{Path: l.config.SocketPath, Err: fmt.Errorf("removing stale socket: %w", err)}
	}
	listener, err := net.Listen("unix", l.config.SocketPath)
	if err != nil {
		return nil, &BindError{Path: l.config.SocketPath, Err: err}
	}
	return listener, nil
}

// Stop closes the listening socket, then every open connection, then
// removes the socket file. Calling Stop on a listener that is not
// listening is a no-op.
func (l *Listener) Stop() error {
	l.mutex.Lock()
	if l.state != StateListening {
		l.mutex.Unlock()
		return nil
	}
	l.state = StateStopping
	closeErr := l.listener.Close()
	for conn := range l.connections {
		conn.Close()
	}
	l.mutex.Unlock()

	l.group.Wait()

	var removeErr error
	if err := os.Remove(l.config.SocketPath); err != nil && !os.IsNotExist(err) {
		removeErr = fmt.Errorf("removing socket %s: %w", l.config.SocketPath, err)
	}

	l.mutex.Lock()
	l.listener = nil
	l.state = StateStopped
	l.mutex.Unlock()

	l.logger.Info("ingestion socket stopped",
		"records_accepted", l.recordsAccepted.Load(),
		"records_dropped", l.recordsDropped.Load(),
	)
	if closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		return errors.Join(fmt.Errorf("closing ingestion socket: %w", closeErr), removeErr)
	}
	return removeErr
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.state
}

// Projects returns every project seen since the listener was created,
// in first-seen order.
func (l *Listener) Projects() []string {
	return l.projects.List()
}

// Stats returns a snapshot of the running counters.
func (l *Listener) Stats() Stats {
	return Stats{
		RecordsAccepted:    l.recordsAccepted.Load(),
		RecordsDropped:     l.recordsDropped.Load(),
		ConnectionsActive:  l.connectionsActive.Load(),
		ConnectionsTotal:   l.connectionsTotal.Load(),
		ConnectionsRefused: l.connectionsRefused.Load(),
	}
}

func (l *Listener) setState(state State) {
	l.mutex.Lock()
	l.state = state
	l.mutex.Unlock()
}

func (l *Listener) acceptLoop(listener net.Listener) {
	defer l.group.Done()
	var backoff netutil.AcceptBackoff
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			delay := backoff.Next()
			l.logger.Error("accept failed", "error", err, "retry_in", delay)
			l.config.Clock.Sleep(delay)
			continue
		}
		backoff.Reset()

		l.mutex.Lock()
		if l.state != StateListening {
			l.mutex.Unlock()
			conn.Close()
			return
		}
		if l.config.MaxConnections > 0 && len(l.connections) >= l.config.MaxConnections {
			l.mutex.Unlock()
			l.connectionsRefused.Add(1)
			conn.Close()
			l.logger.Warn("connection limit reached, refusing agent", "limit", l.config.MaxConnections)
			continue
		}
		l.connections[conn] = struct{}{}
		l.group.Add(1)
		l.mutex.Unlock()

		l.connectionsActive.Add(1)
		l.connectionsTotal.Add(1)
		go l.serveConnection(conn)
	}
}

func (l *Listener) forget(conn net.Conn) {
	l.mutex.Lock()
	delete(l.connections, conn)
	l.mutex.Unlock()
	conn.Close()
	l.connectionsActive.Add(-1)
}

func (l *Listener) stopping() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	return l.state != StateListening
}
