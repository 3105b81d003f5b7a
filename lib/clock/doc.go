// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time abstraction for testability.
//
// Production code accepts a Clock instead of calling time.Now,
// time.After, or time.Sleep directly. In production, Real() provides
// the standard library behavior. In tests, Fake() provides a
// deterministic clock that moves only when Advance or Set is called.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	engine := query.New(buffer, registry, c)
//	c.Advance(90 * time.Minute)
//	// "last 1h" now resolves to 00:30 UTC.
//
// Goroutines that block on After or Sleep register a pending waiter.
// WaitForTimers blocks until a given number of waiters exist, which
// removes the race between a goroutine registering a timer and the
// test advancing the clock.
package clock
