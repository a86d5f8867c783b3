// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package handshake

import (
	"time"

	"github.com/bureau-foundation/jailkeeper/lib/binhash"
)

// Ready is the supervisor's readiness signal to the invoker.
type Ready struct {
	PID int `cbor:"pid"`
}

// LaunchRecord is what the keeper reports once the target process has
// been started inside the jail.
type LaunchRecord struct {
	// TargetPID is the pid of the launcher, which becomes the target
	// after exec.
	TargetPID int `cbor:"target_pid"`

	// KeeperPID and KeeperPPID identify the keeper and its parent (the
	// supervisor) so the record can be cross-checked.
	KeeperPID  int `cbor:"keeper_pid"`
	KeeperPPID int `cbor:"keeper_ppid"`

	// Digest is the BLAKE3 digest of the executable copied into the
	// jail.
	Digest binhash.Digest `cbor:"digest"`
}

// InstanceRecord is persisted into the instance lock file while a jail
// is live.
type InstanceRecord struct {
	ChrootName    string         `cbor:"chroot_name"`
	JailRoot      string         `cbor:"jail_root"`
	Executable    string         `cbor:"executable"`
	SupervisorPID int            `cbor:"supervisor_pid"`
	KeeperPID     int            `cbor:"keeper_pid"`
	KeeperPPID    int            `cbor:"keeper_ppid"`
	TargetPID     int            `cbor:"target_pid"`
	Digest        binhash.Digest `cbor:"digest"`
	Started       time.Time      `cbor:"started"`
}
