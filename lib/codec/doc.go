// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec holds the shared CBOR configuration for the query
// socket.
//
// The relay speaks two formats with a clear boundary:
//
//   - JSON on the outside: agent records on the ingestion socket, MCP
//     messages on stdio, CLI --json output.
//   - CBOR on the query socket between the logrelay CLI and a running
//     collector.
//
// Request and response types carry `json` tags only. fxamacker/cbor
// reads `json` tags when `cbor` tags are absent, so one tag controls
// field naming for both the MCP and socket paths. Use `cbor` tags only
// for types that never leave the socket protocol.
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
package codec
