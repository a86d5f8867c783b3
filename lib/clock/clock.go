// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source for code that waits. Production code uses
// Real; tests use Fake.
type Clock interface {
	Now() time.Time

	// After delivers the clock's time on the returned channel once d
	// has passed. A non-positive d delivers at once.
	After(d time.Duration) <-chan time.Time
}

// Since is time.Since measured on c.
func Since(c Clock, start time.Time) time.Duration {
	return c.Now().Sub(start)
}

// Real returns the wall clock.
func Real() Clock { return wallClock{} }

type wallClock struct{}

func (wallClock) Now() time.Time                         { return time.Now() }
func (wallClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
