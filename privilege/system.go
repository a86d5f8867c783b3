// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

import "github.com/syndtr/gocapability/capability"

// System is the set of process-state primitives Launch drives.
type System interface {
	// SetRlimit sets both the soft and hard limit of resource.
	SetRlimit(resource int, value uint64) error

	// SetCapabilities clears the effective, permitted, and inheritable
	// sets, then grants caps in all three and applies the result.
	SetCapabilities(caps []capability.Cap) error

	// SetFileCapabilities writes caps as the file capabilities (+epi)
	// of path.
	SetFileCapabilities(path string, caps []capability.Cap) error

	// ChangeIdentity switches to uid and gid with no supplementary
	// groups while keeping retain in the permitted set, then clears the
	// bounding set. retain must be a subset of the permitted set and
	// include SETUID, SETGID and SETPCAP.
	ChangeIdentity(uid, gid int, retain []capability.Cap) error

	// RaiseAmbient raises each of caps into the ambient set.
	RaiseAmbient(caps []capability.Cap) error

	// SetKeepCapabilities sets the keep-capabilities flag.
	SetKeepCapabilities(keep bool) error

	// Umask sets the file-creation mask.
	Umask(mask int)

	// Nice adjusts the scheduling priority by delta.
	Nice(delta int) error

	// Exec replaces the process image. It returns only on failure.
	Exec(path string, argv, env []string) error
}
