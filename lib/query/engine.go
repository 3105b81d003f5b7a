// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package query

import (
	"errors"

	"github.com/bureau-foundation/logrelay/lib/analytics"
	"github.com/bureau-foundation/logrelay/lib/clock"
	"github.com/bureau-foundation/logrelay/lib/logbuffer"
	"github.com/bureau-foundation/logrelay/lib/logrecord"
	"github.com/bureau-foundation/logrelay/lib/timeexpr"
)

// ProjectLister reports the projects that have connected since the
// collector started. *ingest.Listener implements it.
type ProjectLister interface {
	Projects() []string
}

// Engine answers queries against one log buffer.
type Engine struct {
	buffer   *logbuffer.Buffer
	projects ProjectLister
	clock    clock.Clock
}

// New creates an engine over buffer. Relative time expressions resolve
// against clock.
func New(buffer *logbuffer.Buffer, projects ProjectLister, clock clock.Clock) *Engine {
	return &Engine{buffer: buffer, projects: projects, clock: clock}
}

// RecentLogs returns the most recent records in arrival order. A
// non-positive count yields no records.
func (e *Engine) RecentLogs(request RecentLogsRequest) (RecentLogsResult, error) {
	count := DefaultRecentCount
	if request.Count != nil {
		count = min(*request.Count, MaxRecentCount)
	}
	logs := payloads(e.buffer.Recent(count))
	return RecentLogsResult{Count: len(logs), Logs: logs}, nil
}

// Logs returns records matching every supplied filter field.
func (e *Engine) Logs(request LogsRequest) (LogsResult, error) {
	limit, err := resolveLimit(request.Limit, DefaultLogsLimit, MaxLogsLimit)
	if err != nil {
		return LogsResult{}, err
	}
	filter := logbuffer.Filter{Project: request.Project, Limit: limit}
	if request.Level != "" {
		if filter.Level, err = logrecord.ParseLevel(request.Level); err != nil {
			return LogsResult{}, &ValidationError{Err: err}
		}
	}
	if request.Source != "" {
		if filter.Source, err = logrecord.ParseSource(request.Source); err != nil {
			return LogsResult{}, &ValidationError{Err: err}
		}
	}
	if request.Search != "" {
		filter.Match = logbuffer.Substring(request.Search)
	}
	if filter.Range, err = timeexpr.ResolveRange(request.StartTime, request.EndTime, e.clock.Now()); err != nil {
		return LogsResult{}, &ValidationError{Err: err}
	}

	logs := payloads(e.buffer.All(filter))
	return LogsResult{
		Filter: AppliedFilter{
			Project:   request.Project,
			Level:     filter.Level,
			Source:    filter.Source,
			Search:    request.Search,
			StartTime: request.StartTime,
			EndTime:   request.EndTime,
			Limit:     limit,
		},
		Count: len(logs),
		Logs:  logs,
	}, nil
}

// Stats summarizes the buffer.
func (e *Engine) Stats(NoArguments) (logbuffer.Stats, error) {
	return e.buffer.Stats(), nil
}

// Analytics aggregates the buffer over an optional project and window.
func (e *Engine) Analytics(request AnalyticsRequest) (analytics.Snapshot, error) {
	snapshot, err := analytics.Analyze(e.buffer, analytics.Options{
		Project:   request.Project,
		TimeRange: analytics.TimeRange(request.TimeRange),
		GroupBy:   analytics.GroupBy(request.GroupBy),
		StartTime: request.StartTime,
		EndTime:   request.EndTime,
	}, e.clock.Now())
	switch {
	case err == nil:
		return snapshot, nil
	case errors.Is(err, analytics.ErrInvalidOption), errors.Is(err, timeexpr.ErrInvalidTimeExpression):
		return analytics.Snapshot{}, &ValidationError{Err: err}
	default:
		return analytics.Snapshot{}, err
	}
}

// Search finds records whose message matches the query.
func (e *Engine) Search(request SearchRequest) (SearchResult, error) {
	if request.Query == nil {
		return SearchResult{}, &ValidationError{Err: errors.New("search query is required")}
	}
	limit, err := resolveLimit(request.Limit, DefaultSearchLimit, MaxSearchLimit)
	if err != nil {
		return SearchResult{}, err
	}

	mode := request.Mode
	if mode == "" {
		mode = SearchSubstring
		if request.Regex {
			mode = SearchRegex
		}
	} else if request.Regex && mode != SearchRegex {
		return SearchResult{}, invalid("mode", "regex=true conflicts with mode %q", mode)
	}

	query := *request.Query
	var matcher logbuffer.Matcher
	switch mode {
	case SearchSubstring:
		matcher = logbuffer.Substring(query)
	case SearchRegex:
		if matcher, err = logbuffer.Regexp(query); err != nil {
			return SearchResult{}, &ValidationError{Err: err}
		}
	case SearchFuzzy:
		matcher = logbuffer.Fuzzy(query)
	default:
		return SearchResult{}, invalid("mode", "%q (valid: substring, regex, fuzzy)", mode)
	}

	logs := payloads(e.buffer.All(logbuffer.Filter{
		Project: request.Project,
		Match:   matcher,
		Limit:   limit,
	}))
	return SearchResult{
		Query:   query,
		Mode:    mode,
		Project: request.Project,
		Count:   len(logs),
		Logs:    logs,
	}, nil
}

// Errors returns error-level records.
func (e *Engine) Errors(request ErrorsRequest) (ErrorsResult, error) {
	limit, err := resolveLimit(request.Limit, DefaultErrorsLimit, MaxErrorsLimit)
	if err != nil {
		return ErrorsResult{}, err
	}
	logs := payloads(e.buffer.All(logbuffer.Filter{
		Project: request.Project,
		Level:   logrecord.LevelError,
		Limit:   limit,
	}))
	return ErrorsResult{Project: request.Project, Count: len(logs), Errors: logs}, nil
}

// Clear empties the buffer.
func (e *Engine) Clear(NoArguments) (ClearResult, error) {
	return ClearResult{Message: "Logs cleared", ClearedCount: e.buffer.Clear()}, nil
}

// Projects lists every project that has connected, in first-seen
// order.
func (e *Engine) Projects(NoArguments) ([]string, error) {
	if e.projects == nil {
		return []string{}, nil
	}
	return e.projects.Projects(), nil
}

// resolveLimit applies the default when limit is absent and clamps it
// to maximum. A limit below one is rejected rather than read as
// "unlimited".
func resolveLimit(limit *int, fallback, maximum int) (int, error) {
	if limit == nil {
		return fallback, nil
	}
	if *limit < 1 {
		return 0, invalid("limit", "%d: must be at least 1", *limit)
	}
	return min(*limit, maximum), nil
}

func payloads(records []logrecord.Record) []logrecord.Data {
	result := make([]logrecord.Data, len(records))
	for i, record := range records {
		result[i] = record.Data
	}
	return result
}
