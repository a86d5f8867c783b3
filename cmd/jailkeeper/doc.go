// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// jailkeeper runs one executable inside a chroot jail under an
// unprivileged identity with a minimal capability set, and keeps it
// running.
//
// Usage:
//
//	jailkeeper [flags] CONFIG [first-run]
//	jailkeeper --check CONFIG
//	jailkeeper --inspect NAME
//
// CONFIG is a jail document (.xml, .yaml, .yml, .json, or .jsonc). The
// invoker validates it, checks the global lock, starts the supervisor
// in the background, and exits 0 once the supervisor reports ready. Any
// second positional argument creates the global lock, so no further
// jailkeeper starts until it is removed.
//
// The same binary plays every part of the process tree. A hidden --role
// flag selects the supervisor, keeper, or launcher when the binary
// re-executes itself; see package supervise.
//
// The launcher role runs after the chroot, so the binary must start
// without any host file the jail lacks. Build it statically:
//
//	CGO_ENABLED=0 go build ./cmd/jailkeeper
//
// A dynamically linked build works only when the jail binds or copies
// its ELF interpreter and libraries. The invoker and --check refuse a
// document whose jail does not provide the interpreter.
//
// Daemon paths and timings come from a YAML settings file (--settings
// or JAILKEEPER_SETTINGS) with flags taking precedence.
package main
