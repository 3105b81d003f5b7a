// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package logbuffer

import (
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

// Filter selects records. Zero-valued fields impose no constraint.
type Filter struct {
	// Project, Level, and Source match by equality.
	Project string
	Level   logrecord.Level
	Source  logrecord.Source

	// Range bounds the record's resolved timestamp, inclusive.
	Range timeexpr.Range

	// Match, when set, must accept the record's message.
	Match Matcher

	// Limit keeps only the last Limit matches. Zero or negative means
	// no limit.
	Limit int
}

// Matches reports whether a single record satisfies every predicate.
// Limit does not apply.
func (filter Filter) Matches(record logrecord.Record) bool {
	if filter.Project != "" && record.Data.Project != filter.Project {
		return false
	}
	if filter.Level != "" && record.Data.Level != filter.Level {
		return false
	}
	if filter.Source != "" && record.Data.Source != filter.Source {
		return false
	}
	if !filter.Range.Contains(record.Time()) {
		return false
	}
	if filter.Match != nil && !filter.Match.Match(record.Data.Message) {
		return false
	}
	return true
}

// Apply filters records in place order and then applies the limit as a
// suffix slice. The input slice is reused.
func (filter Filter) Apply(records []logrecord.Record) []logrecord.Record {
	kept := records[:0]
	for _, record := range records {
		if filter.Matches(record) {
			kept = append(kept, record)
		}
	}
	if filter.Limit > 0 && len(kept) > filter.Limit {
		kept = kept[len(kept)-filter.Limit:]
	}
	return kept
}
