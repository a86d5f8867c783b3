// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package supervise runs the process tree around one jail.
//
// The jailkeeper binary plays four roles, selected by a hidden --role
// flag when it re-executes itself:
//
//   - invoker: validates the command line, checks the global lock, and
//     starts the supervisor in a new session. It exits once the
//     supervisor reports readiness over a one-shot pipe, or after the
//     readiness deadline.
//   - supervisor: the restart loop. Each iteration reloads the jail
//     document, takes the per-jail instance lock, starts a keeper, waits
//     for it, tears the jail down, and releases the lock.
//   - keeper: builds the jail (ending in chroot), starts the launcher,
//     reports the launch over the handshake pipe, and waits for the
//     target.
//   - launcher: drops privilege and execs the target (see package
//     privilege).
//
// Every cross-process channel is a pipe carrying one CBOR record (see
// package handshake) and is closed after that record. The instance lock
// file is created with O_EXCL and holds an [handshake.InstanceRecord]
// while the jail is live, which is how --inspect finds the target.
//
// SIGTERM to the supervisor only stops the restart loop: the current
// target keeps running and the iteration completes normally.
package supervise
