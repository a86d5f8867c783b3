// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for jailkeeper packages.
//
// [RequireReceive] bounds every wait on a goroutine's result. It is the
// one place tests use a wall-clock timeout; waits inside the code under
// test run on lib/clock's fake clock.
//
// [RequireRoot] gates the tests that make real mounts. [RequireBinary]
// skips tests that re-exec through a host shell when that shell is
// missing.
//
// [UniqueID] generates monotonically increasing identifiers, used for
// chroot names so parallel tests never contend for the same instance
// lock.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no jailkeeper-internal dependencies.
package testutil
