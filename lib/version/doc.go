// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build information for the jailkeeper
// binary.
//
// [Version], [GitCommit], [GitDirty] and [BuildTime] are stamped with
// -ldflags -X at release time. Development builds and test binaries keep
// the defaults.
//
// [Print] writes the --version output, which includes the BLAKE3
// digest of the running binary. The supervisor re-executes that same
// binary for every role, so the digest identifies exactly what is
// running in each part of the process tree.
package version
