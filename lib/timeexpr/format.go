// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeexpr

import (
	"fmt"
	"time"
)

// InstantLayout is the ISO-8601 form used for every instant the relay
// emits: UTC with millisecond precision.
const InstantLayout = "2006-01-02T15:04:05.000Z"

// FormatInstant renders t in InstantLayout.
func FormatInstant(t time.Time) string {
	return t.UTC().Format(InstantLayout)
}

// FormatDuration renders d using its two largest units: "Xd Yh",
// "Xh Ym", "Xm Ys", or "Xs". Sub-second remainders are dropped and
// negative durations render as "0s".
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	seconds := int64(d / time.Second)
	minutes := seconds / 60
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
