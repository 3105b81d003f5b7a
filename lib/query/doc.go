// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package query implements the read and clear operations that clients
// run against the collector's log buffer.
//
// Every operation has a typed request struct and a typed result. The
// request structs carry json tags (shared by the JSON and CBOR
// transports) plus desc, default, enum, and required tags from which
// [Operation.Schema] derives the JSON Schema advertised to MCP
// clients.
//
// Transports do not call the typed methods directly. They look up an
// operation by name with [Engine.Invoke], passing a decode function
// for their wire format:
//
//	result, err := engine.Invoke("get_logs", query.DecodeJSON(arguments))
//
// Requests are validated at this boundary. Out-of-range counts and
// limits above the per-operation maximum are clamped; unknown enum
// values, non-positive limits, unparseable time expressions, and
// unknown argument fields fail with a *ValidationError. Unknown
// operation names fail with *UnknownOperationError.
package query
