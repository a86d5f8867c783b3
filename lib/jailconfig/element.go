// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jailconfig

import (
	"fmt"

	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// Element is one decoded unit of a jail document. The set of
// implementations is closed: every element kind the document formats
// can express has exactly one type here.
type Element interface {
	// Kind is the element's name in the XML format.
	Kind() string

	apply(b *builder) error
}

// JailElement names the target executable.
type JailElement struct {
	Executable string
}

// UserElement names the identity the target runs as.
type UserElement struct {
	User  string
	Group string
}

// LimitsElement sets resource ceilings. Nil fields leave the current
// value unchanged.
type LimitsElement struct {
	AddressSpace *uint64
	FileSize     *uint64
	Stack        *uint64
	MessageQueue *uint64
	Data         *uint64
	Nice         *int
	Arena        *int
}

// CapabilitiesElement appends requested capability names.
type CapabilitiesElement struct {
	Names []string
}

// ArgumentsElement sets the argument line.
type ArgumentsElement struct {
	Line string
}

// PathKind selects which path list a PathsElement extends.
type PathKind string

const (
	BindReadOnly  PathKind = "bind_ro"
	BindReadWrite PathKind = "bind_rw"
	CopyFile      PathKind = "copy_f"
	CopyDir       PathKind = "copy_d"
)

// PathsElement appends host paths to one of the bind or copy lists.
type PathsElement struct {
	List  PathKind
	Paths []string
}

// HomeElement names the home directory created inside the jail.
type HomeElement struct {
	Name string
}

// ChrootElement names the jail root under the jail-storage root.
type ChrootElement struct {
	Name string
}

// RestartElement sets the never-die policy.
type RestartElement struct {
	Enabled bool
}

// RebootElement sets the reboot-on-die policy.
type RebootElement struct {
	Enabled bool
}

// UmaskElement sets the file-creation mask applied before exec.
type UmaskElement struct {
	Mask uint32
}

// FileCapabilitiesElement enables writing file capabilities onto the
// in-jail binary.
type FileCapabilitiesElement struct {
	Enabled bool
}

func (JailElement) Kind() string             { return "jail" }
func (UserElement) Kind() string             { return "user" }
func (LimitsElement) Kind() string           { return "rlimit" }
func (CapabilitiesElement) Kind() string     { return "caps" }
func (ArgumentsElement) Kind() string        { return "args" }
func (e PathsElement) Kind() string          { return string(e.List) }
func (HomeElement) Kind() string             { return "home" }
func (ChrootElement) Kind() string           { return "chpath" }
func (RestartElement) Kind() string          { return "restart" }
func (RebootElement) Kind() string           { return "reboot" }
func (UmaskElement) Kind() string            { return "umask" }
func (FileCapabilitiesElement) Kind() string { return "file_caps" }

func (e JailElement) apply(b *builder) error {
	b.spec.Name = e.Executable
	return nil
}

func (e UserElement) apply(b *builder) error {
	if e.User != "" {
		uid, err := b.resolver.LookupUser(e.User)
		if err != nil {
			return fmt.Errorf("user %q unknown: %w", e.User, err)
		}
		b.spec.Identity.User = e.User
		b.spec.Identity.UID = uid
	}
	if e.Group != "" {
		gid, err := b.resolver.LookupGroup(e.Group)
		if err != nil {
			return fmt.Errorf("group %q unknown: %w", e.Group, err)
		}
		b.spec.Identity.Group = e.Group
		b.spec.Identity.GID = gid
	}
	return nil
}

func (e LimitsElement) apply(b *builder) error {
	limits := &b.spec.Limits
	set := func(target *jailspec.Limit, value *uint64) {
		if value != nil {
			*target = jailspec.Limit(*value)
		}
	}
	set(&limits.AddressSpace, e.AddressSpace)
	set(&limits.FileSize, e.FileSize)
	set(&limits.Stack, e.Stack)
	set(&limits.MessageQueue, e.MessageQueue)
	set(&limits.Data, e.Data)
	if e.Nice != nil {
		limits.Nice = *e.Nice
	}
	if e.Arena != nil {
		limits.Arena = *e.Arena
		if limits.Arena > jailspec.MaxArena {
			limits.Arena = 0
		}
	}
	return nil
}

func (e CapabilitiesElement) apply(b *builder) error {
	b.spec.Capabilities = append(b.spec.Capabilities, e.Names...)
	return nil
}

func (e ArgumentsElement) apply(b *builder) error {
	b.spec.Arguments = jailspec.SanitizeArguments(e.Line)
	return nil
}

func (e PathsElement) apply(b *builder) error {
	switch e.List {
	case BindReadOnly:
		b.spec.BindReadOnly = append(b.spec.BindReadOnly, e.Paths...)
	case BindReadWrite:
		b.spec.BindReadWrite = append(b.spec.BindReadWrite, e.Paths...)
	case CopyFile:
		b.spec.CopyFiles = append(b.spec.CopyFiles, e.Paths...)
	case CopyDir:
		b.spec.CopyDirs = append(b.spec.CopyDirs, e.Paths...)
	default:
		return fmt.Errorf("unknown path list %q", e.List)
	}
	return nil
}

func (e HomeElement) apply(b *builder) error {
	b.spec.Home = e.Name
	return nil
}

func (e ChrootElement) apply(b *builder) error {
	b.spec.ChrootName = e.Name
	return nil
}

func (e RestartElement) apply(b *builder) error {
	b.spec.Restart.NeverDie = e.Enabled
	return nil
}

func (e RebootElement) apply(b *builder) error {
	b.spec.Restart.RebootOnDie = e.Enabled
	return nil
}

func (e UmaskElement) apply(b *builder) error {
	if e.Mask > 0o777 {
		return fmt.Errorf("umask %#o has bits outside 0777", e.Mask)
	}
	b.spec.Umask = e.Mask
	return nil
}

func (e FileCapabilitiesElement) apply(b *builder) error {
	b.spec.FileCapabilities = e.Enabled
	return nil
}
