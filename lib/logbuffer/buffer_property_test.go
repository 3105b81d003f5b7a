// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logbuffer

import (
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/bureau-foundation/logrelay/lib/logrecord"
)

var (
	propertyProjects = []string{"alpha", "beta", "gamma"}
	propertyWords    = []string{"timeout", "ready", "Timeout exceeded", "disk full"}
)

// seededRecord derives a deterministic record from an integer seed so
// gopter can shrink failing inputs.
func seededRecord(t *testing.T, index, seed int) logrecord.Record {
	return makeRecord(t,
		propertyProjects[seed%len(propertyProjects)],
		logrecord.Levels[seed%len(logrecord.Levels)],
		[]logrecord.Source{logrecord.SourceStdout, logrecord.SourceStderr}[seed%2],
		fmt.Sprintf("%s #%d", propertyWords[seed%len(propertyWords)], index),
		index,
	)
}

func TestBufferCapacityProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("buffer retains exactly the last min(n, capacity) appends in order", prop.ForAll(
		func(capacity, appends int) bool {
			buffer := New(capacity)
			for i := range appends {
				buffer.Append(seededRecord(t, i, i))
			}
			retained := min(appends, capacity)
			if buffer.Count() != retained {
				return false
			}
			all := buffer.All(Filter{})
			for offset, record := range all {
				if record.Data.Message != seededRecord(t, appends-retained+offset, appends-retained+offset).Data.Message {
					return false
				}
			}
			return len(all) == retained
		},
		gen.IntRange(1, 20),
		gen.IntRange(0, 80),
	))

	properties.TestingRun(t)
}

func TestFilterConjunctionProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("All returns the newest limit records satisfying every predicate", prop.ForAll(
		func(seeds []int, projectChoice, levelChoice, sourceChoice, wordChoice, limit int) bool {
			buffer := New(64)
			var appended []logrecord.Record
			for index, seed := range seeds {
				record := seededRecord(t, index, seed)
				buffer.Append(record)
				appended = append(appended, record)
			}
			if len(appended) > 64 {
				appended = appended[len(appended)-64:]
			}

			filter := Filter{Limit: limit}
			if projectChoice < len(propertyProjects) {
				filter.Project = propertyProjects[projectChoice]
			}
			if levelChoice < len(logrecord.Levels) {
				filter.Level = logrecord.Levels[levelChoice]
			}
			if sourceChoice == 1 {
				filter.Source = logrecord.SourceStdout
			} else if sourceChoice == 2 {
				filter.Source = logrecord.SourceStderr
			}
			search := ""
			if wordChoice == 1 {
				search = "timeout"
				filter.Match = Substring(search)
			}

			var expected []string
			for _, record := range appended {
				if filter.Project != "" && record.Data.Project != filter.Project {
					continue
				}
				if filter.Level != "" && record.Data.Level != filter.Level {
					continue
				}
				if filter.Source != "" && record.Data.Source != filter.Source {
					continue
				}
				if search != "" && !containsFold(record.Data.Message, search) {
					continue
				}
				expected = append(expected, record.Data.Message)
			}
			if limit > 0 && len(expected) > limit {
				expected = expected[len(expected)-limit:]
			}

			got := messages(buffer.All(filter))
			if len(got) != len(expected) {
				return false
			}
			for i := range got {
				if got[i] != expected[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(0, 3),
		gen.IntRange(0, 4),
		gen.IntRange(0, 2),
		gen.IntRange(0, 1),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}

func containsFold(message, needle string) bool {
	for i := 0; i+len(needle) <= len(message); i++ {
		if equalFoldASCII(message[i:i+len(needle)], needle) {
			return true
		}
	}
	return false
}

func equalFoldASCII(a, b string) bool {
	for i := range len(a) {
		x, y := a[i], b[i]
		if 'A' <= x && x <= 'Z' {
			x += 'a' - 'A'
		}
		if 'A' <= y && y <= 'Z' {
			y += 'a' - 'A'
		}
		if x != y {
			return false
		}
	}
	return true
}
