// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package mcp serves the query operations as Model Context Protocol
// tools over newline-delimited JSON-RPC 2.0 on stdio.
//
// Every [query.Operation] becomes one tool whose input and output
// schemas are generated from the operation's request and result
// types. Tool failures, including calls to unknown tools, are tool
// results with isError set and an errorInfo category, so a client can
// tell bad arguments from a collector fault. Protocol errors are
// reserved for malformed JSON-RPC.
package mcp
