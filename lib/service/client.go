// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/bureau-foundation/logrelay/lib/codec"
)

// dialTimeout is the maximum time to wait for a connection to the
// query socket. It covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the server to
// send a response after writing the request. Matched to the server's
// readTimeout + writeTimeout to account for handler execution time.
const responseReadTimeout = 45 * time.Second

// maxResponseSize bounds a single CBOR response. A full buffer of
// large records can exceed the request limit by orders of magnitude.
const maxResponseSize = 256 * 1024 * 1024

// Request is the wire form of a query socket request.
type Request struct {
	Action string `cbor:"action"`
	Args   any    `cbor:"args,omitempty"`
}

// ServiceError is returned by Call when the server responds with
// ok=false. It wraps the server's error message and the action that
// failed. Kind is one of KindInvalid, KindNotFound, KindInternal, or
// empty for servers that do not classify failures.
type ServiceError struct {
	Action  string
	Message string
	Kind    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

// ServiceClient sends CBOR requests to a query socket. Each Call opens
// a new connection (matching the server's one-request-per-connection
// model), sends the request, reads the response, and closes the
// connection.
type ServiceClient struct {
	socketPath string
}

// NewServiceClient creates a client for the socket at socketPath.
func NewServiceClient(socketPath string) *ServiceClient {
	return &ServiceClient{socketPath: socketPath}
}

// SocketPath returns the socket the client connects to.
func (c *ServiceClient) SocketPath() string { return c.socketPath }

// Call sends action with args and decodes the response data into
// result. args may be nil or any value that encodes to a CBOR map,
// typically one of the query request structs. result may be nil when
// the caller does not need the data.
//
// On failure (response ok=false), returns a *ServiceError containing
// the server's error message. Connection and encoding errors are
// returned as plain errors.
func (c *ServiceClient) Call(ctx context.Context, action string, args any, result any) error {
	response, err := c.send(ctx, Request{Action: action, Args: args})
	if err != nil {
		return fmt.Errorf("calling %q on %s: %w", action, c.socketPath, err)
	}

	if !response.OK {
		return &ServiceError{
			Action:  action,
			Message: response.Error,
			Kind:    response.Kind,
		}
	}

	if result != nil && len(response.Data) > 0 {
		if err := codec.Unmarshal(response.Data, result); err != nil {
			return fmt.Errorf("decoding response data for %q: %w", action, err)
		}
	}

	return nil
}

// send connects to the socket, writes the request, and reads the
// response. Each call creates a new connection.
func (c *ServiceClient) send(ctx context.Context, request Request) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting: %w", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing request: %w", err)
	}

	// Half-close the write side so the server's read side sees EOF
	// cleanly.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	if _, ok := ctx.Deadline(); !ok {
		conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	}
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return &response, nil
}
