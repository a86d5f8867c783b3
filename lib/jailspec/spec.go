// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailspec

import "slices"

// JailSpec describes one sandboxed process. Treat it as immutable once
// produced.
type JailSpec struct {
	// Name is the absolute host path of the target executable. The
	// executable is copied to the same path inside the jail.
	Name string `cbor:"name"`

	// Identity is the unprivileged user and group the target runs as.
	Identity Identity `cbor:"identity"`

	// Capabilities lists the requested capability names in document
	// order, e.g. "net_bind_service" or "CAP_SYSLOG".
	Capabilities []string `cbor:"capabilities,omitempty"`

	// Arguments is the raw argument line. See Argv.
	Arguments string `cbor:"arguments,omitempty"`

	// Limits holds the resource ceilings applied before exec.
	Limits Limits `cbor:"limits"`

	// Umask is the file-creation mask applied before exec.
	Umask uint32 `cbor:"umask"`

	// ChrootName names the jail root under the jail-storage root and
	// keys the per-jail instance lock. Always a single path component.
	ChrootName string `cbor:"chroot_name"`

	// Home is materialized at home/<Home> inside the jail and owned by
	// Identity.
	Home string `cbor:"home"`

	// CopyFiles and CopyDirs are copied, not mounted, into the jail.
	CopyFiles []string `cbor:"copy_files,omitempty"`
	CopyDirs  []string `cbor:"copy_dirs,omitempty"`

	// BindReadOnly and BindReadWrite are host directories bind-mounted
	// at the identical absolute path inside the jail.
	BindReadOnly  []string `cbor:"bind_ro,omitempty"`
	BindReadWrite []string `cbor:"bind_rw,omitempty"`

	// Restart controls relaunch and reboot behavior.
	Restart RestartPolicy `cbor:"restart"`

	// FileCapabilities writes the accepted capabilities onto the in-jail
	// copy of the binary as file capabilities before exec.
	FileCapabilities bool `cbor:"file_capabilities,omitempty"`
}

// Identity is a resolved user and group. Supplementary groups are never
// carried: they are always dropped at the identity switch.
type Identity struct {
	User  string `cbor:"user"`
	UID   uint32 `cbor:"uid"`
	Group string `cbor:"group"`
	GID   uint32 `cbor:"gid"`
}

// Resolved reports whether the identity names both a user and a group.
func (i Identity) Resolved() bool {
	return i.User != "" && i.Group != ""
}

// Limit is a byte ceiling. Zero means unlimited.
type Limit uint64

// Unlimited is the Limit value that maps to RLIM_INFINITY.
const Unlimited Limit = 0

// IsUnlimited reports whether l imposes no ceiling.
func (l Limit) IsUnlimited() bool {
	return l == Unlimited
}

// MaxArena is the largest accepted malloc-arena hint.
const MaxArena = 8

// Limits are the per-process resource ceilings.
type Limits struct {
	AddressSpace Limit `cbor:"as"`
	FileSize     Limit `cbor:"fsize"`
	Stack        Limit `cbor:"stack"`
	MessageQueue Limit `cbor:"mq"`
	Data         Limit `cbor:"data"`

	// Nice is a niceness delta, applied only inside (-20, 19) and when
	// non-zero.
	Nice int `cbor:"nice"`

	// Arena is the malloc-arena hint, 0..MaxArena. Zero means unset.
	Arena int `cbor:"arena"`
}

// NiceApplicable reports whether the nice delta should be applied.
func (l Limits) NiceApplicable() bool {
	return l.Nice != 0 && l.Nice > -20 && l.Nice < 19
}

// RestartPolicy is the {neverDie, rebootOnDie} pair.
type RestartPolicy struct {
	// NeverDie relaunches the jail every time the target exits, until
	// the supervisor receives SIGTERM.
	NeverDie bool `cbor:"never_die"`

	// RebootOnDie requests a host reboot when supervision ends without
	// an explicit SIGTERM.
	RebootOnDie bool `cbor:"reboot_on_die"`
}

// Clone returns a deep copy.
func (s JailSpec) Clone() JailSpec {
	clone := s
	clone.Capabilities = slices.Clone(s.Capabilities)
	clone.CopyFiles = slices.Clone(s.CopyFiles)
	clone.CopyDirs = slices.Clone(s.CopyDirs)
	clone.BindReadOnly = slices.Clone(s.BindReadOnly)
	clone.BindReadWrite = slices.Clone(s.BindReadWrite)
	return clone
}
