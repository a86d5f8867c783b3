// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package jail builds and destroys the chroot filesystem a sandboxed
// process runs in.
//
// [Engine.Construct] runs in the keeper process. It creates
// <storage root>/<chroot name> with a fixed skeleton, copies the
// requested directories, files, and the target executable into it,
// bind-mounts /dev, /dev/pts, /dev/shm, /proc and the configured host
// directories, and finally chroots the calling process into the result.
// The chroot is always the last step: nothing in the jail is modified
// once the process is inside it.
//
// [Engine.Destroy] runs in the supervisor after the keeper has been
// reaped. It detaches every mount the construction may have created
// (skipping those the live mount table does not list) and then deletes
// the jail tree depth-first without crossing into other filesystems. A
// mount that refuses to detach blocks teardown: the engine logs and
// retries on an interval and never deletes beneath a live mount.
// Destroy is idempotent and safe on a partial or absent jail.
//
// Every bind, unmount, mount-table query, and chroot goes through the
// [Mounter] interface. [KernelMounter] is the production implementation;
// tests substitute a recorder to check ordering without privileges.
//
// Bind and copy entries follow the derivation rule of
// [jailspec.HostPath]: the host path and the in-jail path are the same
// absolute path.
package jail
