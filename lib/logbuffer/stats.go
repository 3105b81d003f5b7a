// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logbuffer

import "github.com/bureau-foundation/logrelay/lib/logrecord"

// Stats summarizes the buffer contents.
type Stats struct {
	TotalLogs    int                     `json:"totalLogs"`
	Projects     []string                `json:"projects"`
	ProjectCount int                     `json:"projectCount"`
	Levels       map[logrecord.Level]int `json:"levels"`
}

// Stats counts records per level and lists distinct projects in the
// order they first appear. Levels with no records are absent from the
// map.
func (buffer *Buffer) Stats() Stats {
	records := buffer.All(Filter{})

	stats := Stats{
		TotalLogs: len(records),
		Projects:  []string{},
		Levels:    make(map[logrecord.Level]int),
	}
	seen := make(map[string]struct{})
	for _, record := range records {
		if _, ok := seen[record.Data.Project]; !ok {
			seen[record.Data.Project] = struct{}{}
			stats.Projects = append(stats.Projects, record.Data.Project)
		}
		stats.Levels[record.Data.Level]++
	}
	stats.ProjectCount = len(stats.Projects)
	return stats
}
