// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"errors"
	"fmt"

	"github.com/bureau-foundation/logrelay/lib/codec"
	"github.com/bureau-foundation/logrelay/lib/query"
)

// StatusAction is the action name of the collector health check.
const StatusAction = "status"

// Status describes a running collector. The server fills the query
// counters; everything else comes from ServerConfig.Status.
type Status struct {
	Version            string   `json:"version"`
	IngestSocket       string   `json:"ingestSocket"`
	IngestState        string   `json:"ingestState"`
	UptimeSeconds      int64    `json:"uptimeSeconds"`
	BufferedLogs       int      `json:"bufferedLogs"`
	BufferCapacity     int      `json:"bufferCapacity"`
	RecordsAccepted    uint64   `json:"recordsAccepted"`
	RecordsDropped     uint64   `json:"recordsDropped"`
	ConnectionsActive  int      `json:"connectionsActive"`
	ConnectionsTotal   uint64   `json:"connectionsTotal"`
	ConnectionsRefused uint64   `json:"connectionsRefused"`
	QueriesServed      uint64   `json:"queriesServed"`
	QueriesFailed      uint64   `json:"queriesFailed"`
	Projects           []string `json:"projects"`
}

// UnknownActionError reports a request for an action the server does
// not answer. It matches query.ErrUnknownOperation.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Action)
}

func (e *UnknownActionError) Unwrap() error { return query.ErrUnknownOperation }

func knownAction(action string) bool {
	_, ok := query.Lookup(action)
	return ok
}

// decodeArgs returns a decoder for Queryer.Invoke that reads the
// request's "args" map strictly. Absent args leave every field at its
// default.
func decodeArgs(args codec.RawMessage) func(request any) error {
	return func(request any) error {
		if len(args) == 0 {
			return nil
		}
		return codec.UnmarshalStrict(args, request)
	}
}

// errorKind classifies a dispatch error for the response.
func errorKind(err error) string {
	switch {
	case errors.Is(err, query.ErrValidation):
		return KindInvalid
	case errors.Is(err, query.ErrUnknownOperation):
		return KindNotFound
	default:
		return KindInternal
	}
}
