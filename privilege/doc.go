// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package privilege turns a chrooted, fully privileged launcher process
// into the sandboxed target.
//
// [NewPlan] is pure: it resolves the requested capability names against
// the kernel's closed capability enumeration, rejects unknown and
// forbidden names with typed errors ([UnknownCapabilityError],
// [ForbiddenCapabilityError]), and computes the limits, argument vector,
// and environment. [Launch] then applies a plan through a [System] in a
// fixed order: resource limits, capability sets, identity switch,
// capability re-drop, ambient raise, umask, nice, exec. Every step
// except file capabilities and nice is fatal on failure.
//
// CAP_SYS_ADMIN, CAP_SETPCAP, CAP_SETFCAP, and CAP_SYS_CHROOT can never
// reach the target: requesting them is logged and the name is skipped.
//
// [KernelSystem] is the production System. Linux capability state is
// per thread, so the launcher must call runtime.LockOSThread before
// Launch and exec from the same thread.
//
// [Inspect] reads a running process's capability sets from /proc and
// reports any forbidden capability it holds.
package privilege
