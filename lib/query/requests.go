// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

// Per-operation defaults and maximums for result sizes.
const (
	DefaultRecentCount = 50
	MaxRecentCount     = 500

	DefaultLogsLimit = 100
	MaxLogsLimit     = 1000

	DefaultSearchLimit = 50
	MaxSearchLimit     = 500

	DefaultErrorsLimit = 50
	MaxErrorsLimit     = 500
)

// NoArguments is the request of operations that take no arguments.
type NoArguments struct{}

// RecentLogsRequest is the request of get_recent_logs.
type RecentLogsRequest struct {
	Count *int `json:"count,omitempty" desc:"number of recent logs to retrieve (max 500)" default:"50"`
}

// RecentLogsResult is the result of get_recent_logs.
type RecentLogsResult struct {
	Count int              `json:"count"`
	Logs  []logrecord.Data `json:"logs"`
}

// LogsRequest is the request of get_logs.
type LogsRequest struct {
	Project   string         `json:"project,omitempty" desc:"filter by project name"`
	Level     string         `json:"level,omitempty" desc:"filter by log level" enum:"debug,info,warn,error"`
	Source    string         `json:"source,omitempty" desc:"filter by output stream" enum:"stdout,stderr"`
	Search    string         `json:"search,omitempty" desc:"case-insensitive text to find in log messages"`
	StartTime *timeexpr.Expr `json:"startTime,omitempty" desc:"start of the time window: ISO 8601 ('2026-01-18T10:00:00Z'), epoch milliseconds (1737201600000), or relative ('last 1h', 'last 30m', 'last 2d')"`
	EndTime   *timeexpr.Expr `json:"endTime,omitempty" desc:"end of the time window, same formats as startTime"`
	Limit     *int           `json:"limit,omitempty" desc:"maximum number of logs to return, most recent first kept (max 1000)" default:"100"`
}

// AppliedFilter echoes the effective filter of a get_logs call.
type AppliedFilter struct {
	Project   string           `json:"project,omitempty"`
	Level     logrecord.Level  `json:"level,omitempty"`
	Source    logrecord.Source `json:"source,omitempty"`
	Search    string           `json:"search,omitempty"`
	StartTime *timeexpr.Expr   `json:"startTime,omitempty"`
	EndTime   *timeexpr.Expr   `json:"endTime,omitempty"`
	Limit     int              `json:"limit"`
}

// LogsResult is the result of get_logs.
type LogsResult struct {
	Filter AppliedFilter    `json:"filter"`
	Count  int              `json:"count"`
	Logs   []logrecord.Data `json:"logs"`
}

// AnalyticsRequest is the request of get_analytics.
type AnalyticsRequest struct {
	Project   string         `json:"project,omitempty" desc:"restrict analytics to one project"`
	TimeRange string         `json:"timeRange,omitempty" desc:"named window ending now (default: all logs)" enum:"1h,6h,24h,7d"`
	GroupBy   string         `json:"groupBy,omitempty" desc:"breakdown; minute or hour adds a timeline" enum:"minute,hour,project,level"`
	StartTime *timeexpr.Expr `json:"startTime,omitempty" desc:"custom window start, overrides the start of timeRange: ISO 8601, epoch milliseconds, or relative ('last 2h')"`
	EndTime   *timeexpr.Expr `json:"endTime,omitempty" desc:"custom window end, overrides the end of timeRange, same formats as startTime"`
}

// Search modes.
const (
	SearchSubstring = "substring"
	SearchRegex     = "regex"
	SearchFuzzy     = "fuzzy"
)

// SearchRequest is the request of search_logs.
type SearchRequest struct {
	Query   *string `json:"query" desc:"text to search for (case-insensitive); a pattern in regex mode" required:"true"`
	Mode    string  `json:"mode,omitempty" desc:"matching mode" enum:"substring,regex,fuzzy" default:"substring"`
	Regex   bool    `json:"regex,omitempty" desc:"shorthand for mode=regex, e.g. 'error:\\s+\\d+' finds 'error: 404'"`
	Project string  `json:"project,omitempty" desc:"restrict the search to one project"`
	Limit   *int    `json:"limit,omitempty" desc:"maximum number of results (max 500)" default:"50"`
}

// SearchResult is the result of search_logs.
type SearchResult struct {
	Query   string           `json:"query"`
	Mode    string           `json:"mode"`
	Project string           `json:"project,omitempty"`
	Count   int              `json:"count"`
	Logs    []logrecord.Data `json:"logs"`
}

// ErrorsRequest is the request of get_errors.
type ErrorsRequest struct {
	Project string `json:"project,omitempty" desc:"restrict to one project"`
	Limit   *int   `json:"limit,omitempty" desc:"maximum number of errors to return (max 500)" default:"50"`
}

// ErrorsResult is the result of get_errors.
type ErrorsResult struct {
	Project string           `json:"project,omitempty"`
	Count   int              `json:"count"`
	Errors  []logrecord.Data `json:"errors"`
}

// ClearResult is the result of clear_logs.
type ClearResult struct {
	Message      string `json:"message"`
	ClearedCount int    `json:"clearedCount"`
}
