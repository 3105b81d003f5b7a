// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"time"

	"github.com/bureau-foundation/logrelay/lib/clock"
	"github.com/bureau-foundation/logrelay/lib/config"
	"github.com/bureau-foundation/logrelay/lib/ingest"
	"github.com/bureau-foundation/logrelay/lib/logbuffer"
	"github.com/bureau-foundation/logrelay/lib/query"
	"github.com/bureau-foundation/logrelay/lib/service"
	"github.com/bureau-foundation/logrelay/lib/version"
)

// collector owns the one buffer shared by the ingestion listener and
// every query surface.
type collector struct {
	socket   string
	clock    clock.Clock
	started  time.Time
	buffer   *logbuffer.Buffer
	listener *ingest.Listener
	engine   *query.Engine
}

func newCollector(cfg *config.Config, clk clock.Clock, logger *slog.Logger) *collector {
	buffer := logbuffer.New(cfg.Storage.MaxLogs)
	listener := ingest.NewListener(ingest.Config{
		SocketPath:     cfg.Server.SocketPath,
		Buffer:         buffer,
		Logger:         logger,
		Clock:          clk,
		ReadBufferSize: cfg.Performance.BufferSize,
		IdleTimeout:    cfg.Performance.IdleTimeout(),
		MaxConnections: cfg.Performance.MaxConnections,
	})
	return &collector{
		socket:   cfg.Server.SocketPath,
		clock:    clk,
		started:  clk.Now(),
		buffer:   buffer,
		listener: listener,
		engine:   query.New(buffer, listener, clk),
	}
}

func (c *collector) status() service.Status {
	stats := c.listener.Stats()
	return service.Status{
		Version:            version.Info(),
		IngestSocket:       c.socket,
		IngestState:        c.listener.State().String(),
		UptimeSeconds:      int64(c.clock.Now().Sub(c.started) / time.Second),
		BufferedLogs:       c.buffer.Count(),
		BufferCapacity:     c.buffer.Capacity(),
		RecordsAccepted:    stats.RecordsAccepted,
		RecordsDropped:     stats.RecordsDropped,
		ConnectionsActive:  int(stats.ConnectionsActive),
		ConnectionsTotal:   stats.ConnectionsTotal,
		ConnectionsRefused: stats.ConnectionsRefused,
		Projects:           c.listener.Projects(),
	}
}
