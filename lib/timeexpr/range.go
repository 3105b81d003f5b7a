// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeexpr

import (
	"fmt"
	"time"
)

// Range is an inclusive time window. A zero Start or End leaves that
// side unbounded.
type Range struct {
	Start time.Time
	End   time.Time
}

// ResolveRange resolves each bound independently. Nil bounds stay
// unbounded.
func ResolveRange(start, end *Expr, now time.Time) (Range, error) {
	var result Range
	if start != nil {
		instant, err := Resolve(*start, now)
		if err != nil {
			return Range{}, fmt.Errorf("startTime: %w", err)
		}
		result.Start = instant
	}
	if end != nil {
		instant, err := Resolve(*end, now)
		if err != nil {
			return Range{}, fmt.Errorf("endTime: %w", err)
		}
		result.End = instant
	}
	return result, nil
}

// IsUnbounded reports whether neither side is set.
func (r Range) IsUnbounded() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Contains reports whether instant lies within the range, inclusive on
// both ends.
func (r Range) Contains(instant time.Time) bool {
	if !r.Start.IsZero() && instant.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && instant.After(r.End) {
		return false
	}
	return true
}

// IsInRange resolves start and end against now and reports whether
// instant falls inside the resulting range.
func IsInRange(instant time.Time, start, end *Expr, now time.Time) (bool, error) {
	window, err := ResolveRange(start, end, now)
	if err != nil {
		return false, err
	}
	return window.Contains(instant), nil
}
