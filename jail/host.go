// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"errors"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// HostReport describes whether this host can run jails.
type HostReport struct {
	// Root is true when the process has euid 0.
	Root bool

	// ProcMounted is true when /proc/self/mountinfo is readable.
	ProcMounted bool

	// AmbientCapabilities is true when the kernel supports the ambient
	// capability set (Linux 4.3+).
	AmbientCapabilities bool

	// StorageWritable is true when the storage root, or its nearest
	// existing ancestor, is writable.
	StorageWritable bool
}

// DetectHost inspects the running host.
func DetectHost(storageRoot string) *HostReport {
	report := &HostReport{
		Root: os.Geteuid() == 0,
	}

	if _, err := os.Stat("/proc/self/mountinfo"); err == nil {
		report.ProcMounted = true
	}

	// PR_CAP_AMBIENT_IS_SET fails with EINVAL on kernels without
	// ambient support.
	_, err := unix.PrctlRetInt(unix.PR_CAP_AMBIENT, unix.PR_CAP_AMBIENT_IS_SET, unix.CAP_CHOWN, 0, 0)
	report.AmbientCapabilities = !errors.Is(err, unix.EINVAL)

	report.StorageWritable = writableAncestor(storageRoot)
	return report
}

func writableAncestor(path string) bool {
	for {
		if _, err := os.Stat(path); err == nil {
			return unix.Access(path, unix.W_OK) == nil
		}
		parent := filepath.Dir(path)
		if parent == path {
			return false
		}
		path = parent
	}
}

// CanRunJails returns true if jail construction and privilege dropping
// are possible.
func (r *HostReport) CanRunJails() bool {
	return r.SkipReason() == ""
}

// SkipReason returns a human-readable reason why jails cannot run, or
// an empty string if they can.
func (r *HostReport) SkipReason() string {
	if !r.Root {
		return "not running as root (euid 0 required for mounts and chroot)"
	}
	if !r.ProcMounted {
		return "/proc is not mounted"
	}
	if !r.AmbientCapabilities {
		return "kernel does not support ambient capabilities (Linux 4.3+ required)"
	}
	if !r.StorageWritable {
		return "jail storage root is not writable"
	}
	return ""
}
