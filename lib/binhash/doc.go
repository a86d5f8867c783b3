// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes BLAKE3 content digests of executables.
//
// The jail engine copies the target binary into the jail instead of
// bind-mounting it, so the host binary can be replaced while the jail
// keeps running the old copy. [SameContent] proves the copy is
// byte-identical to its source at construction time, and the digest
// travels to the supervisor in the launch handshake so operators can
// tell which build a running jail is executing.
package binhash
