// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package handshake defines the records exchanged between the processes
// of one jail's process tree and the CBOR encoding they travel in.
//
// Every channel is a one-shot pipe: the writer encodes exactly one
// record and closes its end, the reader decodes exactly one record.
// The records are:
//
//   - [Ready]: supervisor to invoker, after the supervisor has detached
//     and installed its signal dispositions.
//   - [jailspec.JailSpec]: supervisor to keeper and keeper to launcher.
//   - [LaunchRecord]: keeper to supervisor, once the target exists.
//   - [InstanceRecord]: supervisor to the instance lock file, read back
//     by inspection.
//
// Encoding is Core Deterministic CBOR (RFC 8949 §4.2) so the same record
// always produces the same bytes.
package handshake
