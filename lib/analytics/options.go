// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package analytics

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

// ErrInvalidOption matches an unknown time range or grouping.
var ErrInvalidOption = errors.New("invalid analytics option")

// TimeRange names a window ending now.
type TimeRange string

const (
	LastHour      TimeRange = "1h"
	LastSixHours  TimeRange = "6h"
	LastDay       TimeRange = "24h"
	LastSevenDays TimeRange = "7d"
)

// TimeRanges lists the accepted named windows.
var TimeRanges = []TimeRange{LastHour, LastSixHours, LastDay, LastSevenDays}

// GroupBy selects the breakdown dimension. Minute and Hour produce a
// timeline. Project and Level are already covered by the per-project
// and per-level counts and add nothing further.
type GroupBy string

const (
	GroupByMinute  GroupBy = "minute"
	GroupByHour    GroupBy = "hour"
	GroupByProject GroupBy = "project"
	GroupByLevel   GroupBy = "level"
)

// Groupings lists the accepted groupBy values.
var Groupings = []GroupBy{GroupByMinute, GroupByHour, GroupByProject, GroupByLevel}

// Options selects the records an analysis covers. Zero-valued fields
// impose no constraint.
type Options struct {
	Project   string
	TimeRange TimeRange
	GroupBy   GroupBy
	StartTime *timeexpr.Expr
	EndTime   *timeexpr.Expr
}

// Validate checks the enumerated fields.
func (options Options) Validate() error {
	switch options.TimeRange {
	case "", LastHour, LastSixHours, LastDay, LastSevenDays:
	default:
		return fmt.Errorf("%w: timeRange %q (valid: 1h, 6h, 24h, 7d)", ErrInvalidOption, options.TimeRange)
	}
	switch options.GroupBy {
	case "", GroupByMinute, GroupByHour, GroupByProject, GroupByLevel:
	default:
		return fmt.Errorf("%w: groupBy %q (valid: minute, hour, project, level)", ErrInvalidOption, options.GroupBy)
	}
	return nil
}

// window resolves the requested bounds. A named range supplies
// start = "last <range>" and end = now; explicit StartTime and EndTime
// each replace the corresponding range-derived bound.
func (options Options) window(now time.Time) (timeexpr.Range, error) {
	var result timeexpr.Range
	if options.TimeRange != "" {
		start, err := timeexpr.Resolve(timeexpr.String("last "+string(options.TimeRange)), now)
		if err != nil {
			return timeexpr.Range{}, fmt.Errorf("timeRange: %w", err)
		}
		result = timeexpr.Range{Start: start, End: now}
	}
	explicit, err := timeexpr.ResolveRange(options.StartTime, options.EndTime, now)
	if err != nil {
		return timeexpr.Range{}, err
	}
	if options.StartTime != nil {
		result.Start = explicit.Start
	}
	if options.EndTime != nil {
		result.End = explicit.End
	}
	return result, nil
}

func (g GroupBy) bucketWidth() time.Duration {
	switch g {
	case GroupByMinute:
		return time.Minute
	case GroupByHour:
		return time.Hour
	}
	return 0
}
