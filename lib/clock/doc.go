// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used by the
// supervision and teardown paths.
//
// Only two places in jailkeeper wait on time: the invoker's bounded
// wait for the daemon's readiness record, and the teardown loop that
// retries a detach-unmount the kernel refused. Both accept a [Clock] so
// tests can drive them with [Fake] instead of sleeping.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go engine.Destroy(ctx, spec)
//	c.WaitForTimers(1)          // the retry loop is parked
//	c.Advance(5 * time.Second)  // fire it deterministically
package clock
