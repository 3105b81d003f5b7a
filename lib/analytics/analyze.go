// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analytics

import (
	"encoding/hex"
	"math"
	"sort"
	"time"

	"github.com/zeebo/blake3"

	"github.com/bureau-foundation/logrelay/lib/logbuffer"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

const (
	// messageKeyLength is the number of runes of a message used to
	// group near-duplicate messages.
	messageKeyLength = 100

	// topMessageCount is the number of message groups reported.
	topMessageCount = 10
)

// Source is the read side of the log buffer.
type Source interface {
	All(filter logbuffer.Filter) []logrecord.Record
}

// Snapshot is the result of one analysis.
type Snapshot struct {
	Summary     Summary                 `json:"summary"`
	ByLevel     map[logrecord.Level]int `json:"byLevel"`
	ByProject   map[string]int          `json:"byProject"`
	Timeline    []Bucket                `json:"timeline,omitempty"`
	TopMessages []TopMessage            `json:"topMessages"`
	ErrorRate   ErrorRate               `json:"errorRate"`
}

// Summary describes the analyzed set as a whole.
type Summary struct {
	TotalLogs int      `json:"totalLogs"`
	TimeRange Span     `json:"timeRange"`
	Projects  []string `json:"projects"`
}

// Span is the observed time span of the analyzed records.
type Span struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Duration string `json:"duration"`
}

// Bucket is one non-empty timeline interval keyed by its start.
type Bucket struct {
	Timestamp string `json:"timestamp"`
	Count     int    `json:"count"`
}

// TopMessage is a group of messages sharing their first 100 runes.
// Level is the level of the first record seen in the group.
// Fingerprint is a short BLAKE3 digest of the group key, stable across
// calls, for correlating groups between snapshots.
type TopMessage struct {
	Message     string          `json:"message"`
	Count       int             `json:"count"`
	Level       logrecord.Level `json:"level"`
	Fingerprint string          `json:"fingerprint"`
}

// ErrorRate is the share of error-level records. Percentage is in
// [0, 100], rounded to two decimals, and 0 for an empty set.
type ErrorRate struct {
	Total      int     `json:"total"`
	Errors     int     `json:"errors"`
	Percentage float64 `json:"percentage"`
}

// Analyze filters source by project and resolved window and aggregates
// the surviving records. Errors are option or time-expression
// validation failures; the buffer is never modified.
func Analyze(source Source, options Options, now time.Time) (Snapshot, error) {
	if err := options.Validate(); err != nil {
		return Snapshot{}, err
	}
	window, err := options.window(now)
	if err != nil {
		return Snapshot{}, err
	}

	records := source.All(logbuffer.Filter{Project: options.Project, Range: window})

	snapshot := Snapshot{
		Summary: Summary{
			TotalLogs: len(records),
			Projects:  []string{},
		},
		ByLevel:     make(map[logrecord.Level]int, len(logrecord.Levels)),
		ByProject:   make(map[string]int),
		TopMessages: []TopMessage{},
	}
	for _, level := range logrecord.Levels {
		snapshot.ByLevel[level] = 0
	}

	var (
		groups     []*TopMessage
		groupIndex = make(map[string]*TopMessage)
		buckets    = make(map[int64]int)
		width      = options.GroupBy.bucketWidth()
		earliest   time.Time
		latest     time.Time
	)

	for index, record := range records {
		data := record.Data
		snapshot.ByLevel[data.Level]++
		if _, seen := snapshot.ByProject[data.Project]; !seen {
			snapshot.Summary.Projects = append(snapshot.Summary.Projects, data.Project)
		}
		snapshot.ByProject[data.Project]++

		key := logrecord.Preview(data.Message, messageKeyLength)
		if group, ok := groupIndex[key]; ok {
			group.Count++
		} else {
			group = &TopMessage{Message: key, Count: 1, Level: data.Level}
			groupIndex[key] = group
			groups = append(groups, group)
		}

		instant := record.Time()
		if width > 0 {
			buckets[bucketStart(instant, width)]++
		}
		if index == 0 || instant.Before(earliest) {
			earliest = instant
		}
		if index == 0 || instant.After(latest) {
			latest = instant
		}
	}

	errorCount := snapshot.ByLevel[logrecord.LevelError]
	snapshot.ErrorRate = ErrorRate{
		Total:      len(records),
		Errors:     errorCount,
		Percentage: percentage(errorCount, len(records)),
	}

	if width > 0 {
		snapshot.Timeline = timeline(buckets)
	}
	snapshot.TopMessages = topMessages(groups)

	if len(records) == 0 {
		earliest, latest = now, now
		if !window.Start.IsZero() {
			earliest = window.Start
		}
		if !window.End.IsZero() {
			latest = window.End
		}
	}
	snapshot.Summary.TimeRange = Span{
		Start:    timeexpr.FormatInstant(earliest),
		End:      timeexpr.FormatInstant(latest),
		Duration: timeexpr.FormatDuration(latest.Sub(earliest)),
	}
	return snapshot, nil
}

// bucketStart floors an instant to a multiple of width since the Unix
// epoch, in milliseconds.
func bucketStart(instant time.Time, width time.Duration) int64 {
	milliseconds := instant.UnixMilli()
	widthMilliseconds := width.Milliseconds()
	bucket := milliseconds / widthMilliseconds
	if milliseconds%widthMilliseconds < 0 {
		bucket--
	}
	return bucket * widthMilliseconds
}

func timeline(buckets map[int64]int) []Bucket {
	starts := make([]int64, 0, len(buckets))
	for start := range buckets {
		starts = append(starts, start)
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i] < starts[j] })

	result := make([]Bucket, len(starts))
	for i, start := range starts {
		result[i] = Bucket{
			Timestamp: timeexpr.FormatInstant(time.UnixMilli(start)),
			Count:     buckets[start],
		}
	}
	return result
}

// topMessages ranks groups by count, keeping first-seen order among
// equal counts, and returns at most topMessageCount of them.
func topMessages(groups []*TopMessage) []TopMessage {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})
	if len(groups) > topMessageCount {
		groups = groups[:topMessageCount]
	}
	result := make([]TopMessage, len(groups))
	for i, group := range groups {
		result[i] = *group
		result[i].Fingerprint = fingerprint(group.Message)
	}
	return result
}

func fingerprint(key string) string {
	digest := blake3.Sum256([]byte(key))
	return hex.EncodeToString(digest[:8])
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}
