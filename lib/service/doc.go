// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service serves the collector's query operations on a local
// Unix socket and provides the client the CLI uses to reach them.
//
// The protocol is one CBOR request and one CBOR response per
// connection. A request is a map with an "action" key naming the
// operation and an optional "args" map holding its arguments:
//
//	{"action": "get_logs", "args": {"project": "api", "limit": 20}}
//
// The response is an envelope {ok, error, kind, data}. On success
// data holds the operation's result encoded with the same field names
// the MCP tools use in JSON. On failure kind says whether the request
// was invalid, named something that does not exist, or hit a server
// fault. The envelope and the arguments are decoded strictly: unknown
// keys are errors.
//
// [Server] routes every query operation to a [Queryer] and answers the
// "status" action itself, adding its own query counters to the
// collector health reported by [ServerConfig].Status. The socket
// carries no authentication; access is controlled by the socket
// file's permissions.
package service
