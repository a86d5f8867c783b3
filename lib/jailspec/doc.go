// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package jailspec defines [JailSpec], the immutable description of one
// sandboxed process, and the pure helpers every stage of the jail
// lifecycle shares: the bind/copy path derivation rule ([HostPath]),
// argument-line sanitization ([SanitizeArguments], [JailSpec.Argv]),
// and pre-flight validation ([Validator]).
//
// A JailSpec is produced once by lib/jailconfig and then only read. It
// crosses process boundaries (supervisor to keeper to launcher) as a
// CBOR record, which is why every field carries a cbor tag. Callers that
// need to modify a spec take a [JailSpec.Clone].
//
// Capability names are deliberately kept as plain strings here. They are
// resolved and checked against the forbidden set only when privileges
// are dropped (package privilege), so a misconfigured name fails at the
// same deterministic point every time rather than at load.
//
// This package has no dependencies on other jailkeeper packages.
package jailspec
