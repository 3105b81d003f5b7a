// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import "time"

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// AcceptBackoff paces Accept retries after failures other than a
// closed listener, such as EMFILE when the process is out of file
// descriptors. The delay starts at 5ms and doubles per consecutive
// failure up to one second. The zero value is ready to use.
type AcceptBackoff struct {
	delay time.Duration
}

// Next returns the delay before the next Accept attempt.
func (b *AcceptBackoff) Next() time.Duration {
	if b.delay == 0 {
		b.delay = minAcceptBackoff
	} else {
		b.delay = min(2*b.delay, maxAcceptBackoff)
	}
	return b.delay
}

// Reset restarts the sequence after a successful Accept.
func (b *AcceptBackoff) Reset() {
	b.delay = 0
}
