// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeexpr

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeExpression matches every resolution failure via
// errors.Is.
var ErrInvalidTimeExpression = errors.New("invalid time expression")

// Error reports a string that matches none of the accepted forms.
type Error struct {
	Input string
}

func (e *Error) Error() string {
	return fmt.Sprintf("invalid time format: %s. Use ISO 8601, timestamp, or \"last Xh/Xm/Xd\"", e.Input)
}

func (e *Error) Unwrap() error { return ErrInvalidTimeExpression }

var relativePattern = regexp.MustCompile(`(?i)^last\s+(\d+)\s*(s|m|h|d|w)$`)

var unitDurations = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
	"w": 7 * 24 * time.Hour,
}

// isoLayouts are tried in order for strings containing "T" or "-".
// Layouts without a zone parse as UTC.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// fallbackLayouts cover the generic calendar forms.
var fallbackLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.RFC822Z,
	time.RFC822,
	time.ANSIC,
	time.UnixDate,
	time.RubyDate,
	"Mon Jan 2 2006 15:04:05",
	"Jan 2, 2006 15:04:05",
	"January 2, 2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// Resolve converts an expression into an instant. Relative expressions
// are measured back from now.
func Resolve(expr Expr, now time.Time) (time.Time, error) {
	if expr.numeric {
		return time.UnixMilli(expr.millis).UTC(), nil
	}

	input := strings.TrimSpace(expr.text)

	if strings.ContainsAny(input, "T-") {
		if instant, ok := parseLayouts(input, isoLayouts); ok {
			return instant, nil
		}
	}

	if match := relativePattern.FindStringSubmatch(input); match != nil {
		amount, err := strconv.ParseInt(match[1], 10, 64)
		if err != nil {
			return time.Time{}, &Error{Input: expr.text}
		}
		unit := unitDurations[strings.ToLower(match[2])]
		if amount > math.MaxInt64/int64(unit) {
			return time.Time{}, &Error{Input: expr.text}
		}
		return now.Add(-time.Duration(amount) * unit), nil
	}

	if instant, ok := parseLayouts(input, fallbackLayouts); ok {
		return instant, nil
	}

	return time.Time{}, &Error{Input: expr.text}
}

// ParseTimestamp resolves a record timestamp string. Record timestamps
// never use the relative form, so "now" is irrelevant; the zero time is
// passed through to Resolve and any "last ..." string is rejected.
func ParseTimestamp(timestamp string) (time.Time, error) {
	if relativePattern.MatchString(strings.TrimSpace(timestamp)) {
		return time.Time{}, &Error{Input: timestamp}
	}
	return Resolve(String(timestamp), time.Time{})
}

func parseLayouts(input string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if instant, err := time.Parse(layout, input); err == nil {
			return instant, true
		}
	}
	return time.Time{}, false
}
