// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jail

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/jailkeeper/lib/jailspec"
)

// MountTargets lists, in teardown order, every mount point construction
// may have created for spec.
func (e *Engine) MountTargets(spec jailspec.JailSpec) ([]string, error) {
	root, err := e.Root(spec)
	if err != nil {
		return nil, err
	}
	var targets []string
	for _, source := range systemUnmounts {
		targets = append(targets, jailspec.InJail(root, source))
	}
	for _, entries := range [][]string{spec.BindReadOnly, spec.BindReadWrite} {
		for _, entry := range entries {
			source, err := jailspec.HostPath(entry)
			if err != nil {
				e.logger.Warn("skipping underivable bind entry", "entry", entry, "error", err)
				continue
			}
			targets = append(targets, jailspec.InJail(root, source))
		}
	}
	return targets, nil
}

// Destroy unmounts and deletes the jail for spec. It must only run after
// every process inside the jail has exited.
//
// A target that fails to detach is retried every UnmountRetry until it
// is gone from the mount table. Destroy returns ctx.Err() if ctx ends
// while a target is still mounted, and deletes nothing in that case.
func (e *Engine) Destroy(ctx context.Context, spec jailspec.JailSpec) error {
	root, err := e.Root(spec)
	if err != nil {
		return err
	}
	logger := e.logger.With("jail", spec.ChrootName, "root", root)

	targets, err := e.MountTargets(spec)
	if err != nil {
		return err
	}
	for _, target := range targets {
		if err := e.unmount(ctx, target); err != nil {
			return err
		}
	}

	if err := os.Chmod(root, 0755); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("jail root absent, nothing to delete")
			return nil
		}
		logger.Warn("cannot make jail root writable", "error", err)
	}
	failures := removeTree(root, logger)
	if failures > 0 {
		logger.Warn("jail deleted with leftovers", "failures", failures)
	} else {
		logger.Info("jail destroyed")
	}
	return nil
}

func (e *Engine) unmount(ctx context.Context, target string) error {
	mounted, err := e.mounter.IsMounted(target)
	if err != nil {
		e.logger.Warn("cannot read mount table, attempting unmount", "target", target, "error", err)
		mounted = true
	}
	if !mounted {
		e.logger.Debug("not mounted, skipping", "target", target)
		return nil
	}

	for attempt := 1; ; attempt++ {
		err := e.mounter.Unmount(target)
		if err == nil {
			return nil
		}
		e.logger.Error("unmount failed, jail deletion blocked until it detaches",
			"target", target, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.clock.After(e.unmountRetry):
		}

		if mounted, err := e.mounter.IsMounted(target); err == nil && !mounted {
			e.logger.Info("target detached externally", "target", target)
			return nil
		}
	}
}

// removeTree deletes root depth-first without descending into other
// filesystems. Each entry that cannot be removed is logged and skipped.
// It returns the number of entries left behind.
func removeTree(root string, logger *slog.Logger) int {
	var rootStat unix.Stat_t
	if err := unix.Lstat(root, &rootStat); err != nil {
		if !errors.Is(err, unix.ENOENT) {
			logger.Warn("cannot stat jail root", "path", root, "error", err)
			return 1
		}
		return 0
	}
	return removeEntry(root, uint64(rootStat.Dev), logger)
}

func removeEntry(path string, device uint64, logger *slog.Logger) int {
	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		logger.Warn("cannot stat", "path", path, "error", err)
		return 1
	}
	if uint64(stat.Dev) != device {
		logger.Warn("not crossing into another filesystem", "path", path)
		return 1
	}

	failures := 0
	if stat.Mode&unix.S_IFMT == unix.S_IFDIR {
		if err := os.Chmod(path, 0755); err != nil {
			logger.Warn("cannot make directory writable", "path", path, "error", err)
		}
		entries, err := os.ReadDir(path)
		if err != nil {
			logger.Warn("cannot read directory", "path", path, "error", err)
			failures++
		}
		for _, entry := range entries {
			failures += removeEntry(filepath.Join(path, entry.Name()), device, logger)
		}
	}

	if err := os.Remove(path); err != nil {
		logger.Warn("cannot remove", "path", path, "error", err)
		failures++
	}
	return failures
}
