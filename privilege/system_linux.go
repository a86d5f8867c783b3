// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package privilege

import (
	"fmt"
	"slices"

	"github.com/syndtr/gocapability/capability"
	"golang.org/x/sys/unix"
)

// KernelSystem implements System for the calling thread. The caller
// must hold runtime.LockOSThread for the whole launch.
type KernelSystem struct{}

var _ System = KernelSystem{}

// SetRlimit sets resource's soft and hard limits to value.
func (KernelSystem) SetRlimit(resource int, value uint64) error {
	return unix.Setrlimit(resource, &unix.Rlimit{Cur: value, Max: value})
}

func currentCapabilities() (capability.Capabilities, error) {
	caps, err := capability.NewPid2(0)
	if err != nil {
		return nil, fmt.Errorf("opening capability state: %w", err)
	}
	if err := caps.Load(); err != nil {
		return nil, fmt.Errorf("loading capability state: %w", err)
	}
	return caps, nil
}

// SetCapabilities replaces E/P/I with caps.
func (KernelSystem) SetCapabilities(caps []capability.Cap) error {
	state, err := currentCapabilities()
	if err != nil {
		return err
	}
	state.Clear(capability.CAPS)
	state.Set(capability.CAPS, caps...)
	if err := state.Apply(capability.CAPS); err != nil {
		return fmt.Errorf("capset: %w", err)
	}
	return nil
}

// SetFileCapabilities writes the security.capability attribute of path.
func (KernelSystem) SetFileCapabilities(path string, caps []capability.Cap) error {
	state, err := capability.NewFile2(path)
	if err != nil {
		return fmt.Errorf("opening file capabilities of %s: %w", path, err)
	}
	state.Clear(capability.CAPS)
	state.Set(capability.CAPS, caps...)
	if err := state.Apply(capability.CAPS); err != nil {
		return fmt.Errorf("writing file capabilities of %s: %w", path, err)
	}
	return nil
}

// ChangeIdentity performs the identity switch. retain must already be
// permitted and must hold SETUID, SETGID and SETPCAP. Keep-caps
// preserves the permitted set across the uid change, and the effective
// set (cleared by the kernel on leaving uid 0) is re-applied before the
// bounding set is emptied.
func (KernelSystem) ChangeIdentity(uid, gid int, retain []capability.Cap) error {
	for _, needed := range []capability.Cap{capability.CAP_SETUID, capability.CAP_SETGID, capability.CAP_SETPCAP} {
		if !slices.Contains(retain, needed) {
			return fmt.Errorf("identity switch needs cap_%s in the retained set", needed)
		}
	}
	state, err := currentCapabilities()
	if err != nil {
		return err
	}
	state.Clear(capability.CAPS)
	state.Set(capability.CAPS, retain...)
	if err := state.Apply(capability.CAPS); err != nil {
		return fmt.Errorf("capset before identity switch: %w", err)
	}

	if err := unix.Prctl(unix.PR_SET_KEEPCAPS, 1, 0, 0, 0); err != nil {
		return fmt.Errorf("prctl(PR_SET_KEEPCAPS): %w", err)
	}
	if err := unix.Setgroups(nil); err != nil {
		return fmt.Errorf("setgroups: %w", err)
	}
	if err := unix.Setresgid(gid, gid, gid); err != nil {
		return fmt.Errorf("setresgid(%d): %w", gid, err)
	}
	if err := unix.Setresuid(uid, uid, uid); err != nil {
		return fmt.Errorf("setresuid(%d): %w", uid, err)
	}

	if err := state.Apply(capability.CAPS); err != nil {
		return fmt.Errorf("capset after identity switch: %w", err)
	}
	state.Clear(capability.BOUNDS)
	if err := state.Apply(capability.BOUNDS); err != nil {
		return fmt.Errorf("clearing bounding set: %w", err)
	}
	return nil
}

// RaiseAmbient raises each capability into the ambient set. Each must
// already be permitted and inheritable.
func (KernelSystem) RaiseAmbient(caps []capability.Cap) error {
	for _, c := range caps {
		if err := unix.Prctl(unix.PR_CAP_AMBIENT, unix.PR_CAP_AMBIENT_RAISE, uintptr(c), 0, 0); err != nil {
			return fmt.Errorf("raising cap_%s into the ambient set: %w", c, err)
		}
	}
	return nil
}

// SetKeepCapabilities sets PR_SET_KEEPCAPS.
func (KernelSystem) SetKeepCapabilities(keep bool) error {
	var flag uintptr
	if keep {
		flag = 1
	}
	return unix.Prctl(unix.PR_SET_KEEPCAPS, flag, 0, 0, 0)
}

// Umask sets the file-creation mask.
func (KernelSystem) Umask(mask int) {
	unix.Umask(mask)
}

// Nice adds delta to the calling thread's niceness.
func (KernelSystem) Nice(delta int) error {
	// The raw getpriority syscall returns 20 - nice.
	priority, err := unix.Getpriority(unix.PRIO_PROCESS, 0)
	if err != nil {
		return fmt.Errorf("getpriority: %w", err)
	}
	current := 20 - priority
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, current+delta); err != nil {
		return fmt.Errorf("setpriority(%d): %w", current+delta, err)
	}
	return nil
}

// Exec replaces the process image with path.
func (KernelSystem) Exec(path string, argv, env []string) error {
	return unix.Exec(path, argv, env)
}
