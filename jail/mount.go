// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"fmt"

	"github.com/prometheus/procfs"
	"golang.org/x/sys/unix"
)

// BindOptions selects how a bind mount is restricted after it is made.
type BindOptions struct {
	// Restrict remounts the bind with MS_NODEV|MS_NOSUID. Device
	// binds (/dev and friends) are left unrestricted.
	Restrict bool

	// ReadOnly additionally remounts with MS_RDONLY. Only meaningful
	// with Restrict.
	ReadOnly bool
}

// Mounter performs the privileged filesystem operations of the engine.
type Mounter interface {
	// Bind bind-mounts source onto the existing directory target.
	Bind(source, target string, options BindOptions) error

	// Unmount lazily detaches target.
	Unmount(target string) error

	// IsMounted reports whether target is a mount point in the live
	// mount table.
	IsMounted(target string) (bool, error)

	// Chroot changes the working directory to root and makes it the
	// calling process's root directory.
	Chroot(root string) error
}

// KernelMounter implements Mounter with mount(2), umount2(2), and
// chroot(2). The mount table is read from /proc/self/mountinfo.
type KernelMounter struct{}

// Bind performs the bind and, when requested, the restricting remount.
func (KernelMounter) Bind(source, target string, options BindOptions) error {
	flags := uintptr(unix.MS_BIND | unix.MS_DIRSYNC)
	if err := unix.Mount(source, target, "", flags, ""); err != nil {
		return fmt.Errorf("bind %s on %s: %w", source, target, err)
	}
	if !options.Restrict {
		return nil
	}

	flags |= unix.MS_REMOUNT | unix.MS_NODEV | unix.MS_NOSUID | unix.MS_SYNCHRONOUS
	if options.ReadOnly {
		flags |= unix.MS_RDONLY
	}
	if err := unix.Mount(source, target, "", flags, ""); err != nil {
		return fmt.Errorf("remount %s restricted: %w", target, err)
	}
	return nil
}

// Unmount detaches target with MNT_DETACH.
func (KernelMounter) Unmount(target string) error {
	if err := unix.Unmount(target, unix.MNT_DETACH); err != nil {
		return fmt.Errorf("unmount %s: %w", target, err)
	}
	return nil
}

// IsMounted looks target up in the calling process's mount table.
func (KernelMounter) IsMounted(target string) (bool, error) {
	mounts, err := procfs.GetMounts()
	if err != nil {
		return false, fmt.Errorf("reading mount table: %w", err)
	}
	for _, mount := range mounts {
		if mount.MountPoint == target {
			return true, nil
		}
	}
	return false, nil
}

// Chroot enters root. The working directory is root before and "/"
// after, so no handle to the outer tree survives.
func (KernelMounter) Chroot(root string) error {
	if err := unix.Chdir(root); err != nil {
		return fmt.Errorf("chdir %s: %w", root, err)
	}
	if err := unix.Chroot(root); err != nil {
		return fmt.Errorf("chroot %s: %w", root, err)
	}
	if err := unix.Chdir("/"); err != nil {
		return fmt.Errorf("chdir / inside jail: %w", err)
	}
	return nil
}
