// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process holds the exit conventions shared by every role the
// jailkeeper binary plays (invoker, supervisor, keeper, launcher).
//
// Exit status 0 is a graceful shutdown and 1 is any fatal precondition
// or fatal step. A keeper additionally forwards its jailed target's
// status through [StatusCode] so the supervisor can log it.
//
// These are the only helpers allowed to write to stderr directly: they
// run before the structured logger exists or after it has been torn
// down by a failing step.
package process
